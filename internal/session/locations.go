package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/parksafe/parksafe/internal/client"
	"github.com/parksafe/parksafe/internal/feed"
	"github.com/parksafe/parksafe/internal/model"
)

// DefaultLocationRefresh is how often Locations refetches without a push
const DefaultLocationRefresh = 10 * time.Second

// LocationState is what Locations exposes to its observers
type LocationState struct {
	Users []model.ProfileResponse
	Err   error
}

// Locations keeps the list of recently located users current. It
// refetches the list whenever another user's profile changes and on a
// fixed interval, since users also drop out of the active window silently.
type Locations struct {
	client   *client.Client
	interval time.Duration

	mu    sync.Mutex
	users []model.ProfileResponse
	err   error

	sub      feed.Subscription
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	refresh chan struct{}
	changes chan struct{}
}

// WatchLocations subscribes to profile updates, loads the active users and
// keeps them fresh until Stop. A failed load is kept in State and retried.
func WatchLocations(ctx context.Context, c *client.Client, interval time.Duration) (*Locations, error) {
	if interval <= 0 {
		interval = DefaultLocationRefresh
	}
	l := &Locations{
		client:   c,
		interval: interval,
		done:     make(chan struct{}),
		refresh:  make(chan struct{}, 1),
		changes:  make(chan struct{}, 1),
	}

	// subscribe first so no update between the load and the subscription is lost
	sub, err := c.Subscribe(ctx, model.TableProfiles, []feed.EventKind{feed.EventUpdate}, func(feed.Event) {
		select {
		case l.refresh <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return nil, err
	}
	l.sub = sub

	runCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.load(ctx)
	go l.run(runCtx)
	return l, nil
}

// Changes signals after the state changed. Signals coalesce.
func (l *Locations) Changes() <-chan struct{} {
	return l.changes
}

// State returns a snapshot of the active users
func (l *Locations) State() LocationState {
	l.mu.Lock()
	defer l.mu.Unlock()
	users := make([]model.ProfileResponse, len(l.users))
	copy(users, l.users)
	return LocationState{Users: users, Err: l.err}
}

// Stop closes the subscription and the refresh loop. It is safe to call
// more than once.
func (l *Locations) Stop() error {
	var err error
	l.stopOnce.Do(func() {
		l.cancel()
		<-l.done
		err = l.sub.Unsubscribe()
	})
	return err
}

func (l *Locations) run(ctx context.Context) {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.refresh:
			l.load(ctx)
		case <-ticker.C:
			l.load(ctx)
		}
	}
}

func (l *Locations) load(ctx context.Context) {
	users, err := l.client.ActiveUsers(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Printf("session: load active users: %v", err)
	}

	l.mu.Lock()
	if err == nil {
		l.users = users
	}
	l.err = err
	l.mu.Unlock()

	select {
	case l.changes <- struct{}{}:
	default:
	}
}
