package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/parksafe/parksafe/internal/feed"
	"github.com/parksafe/parksafe/internal/model"
)

const (
	// Time allowed to write a frame to the server
	writeWait = 10 * time.Second

	// The server pings well within this period
	pongWait = 60 * time.Second

	maxFrameSize = 1 << 20
)

// stream multiplexes every table subscription over one websocket. It
// reconnects with exponential backoff and re-subscribes on reconnect.
type stream struct {
	c *Client

	mu         sync.Mutex
	subs       map[*subscription]bool
	acks       map[string][]chan struct{} // table -> waiters for the next ack
	conn       *websocket.Conn
	reconnects []func()
	cancel     context.CancelFunc
	done       chan struct{}
	closed     bool

	writeMu sync.Mutex
}

type subscription struct {
	s     *stream
	table string
	kinds map[feed.EventKind]bool // empty accepts every kind
	fn    func(feed.Event)
	once  sync.Once
}

// frame is a websocket frame with its payload left undecoded
type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newStream(c *Client) *stream {
	return &stream{
		c:    c,
		subs: make(map[*subscription]bool),
		acks: make(map[string][]chan struct{}),
	}
}

func (s *stream) subscribe(ctx context.Context, table string, kinds []feed.EventKind, fn func(feed.Event)) (feed.Subscription, error) {
	sub := &subscription{s: s, table: table, kinds: make(map[feed.EventKind]bool, len(kinds)), fn: fn}
	for _, k := range kinds {
		sub.kinds[k] = true
	}
	acked := make(chan struct{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: realtime connection closed", feed.ErrTransport)
	}
	s.subs[sub] = true
	s.acks[table] = append(s.acks[table], acked)
	conn := s.conn
	if s.cancel == nil {
		runCtx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})
		go s.run(runCtx)
	}
	s.mu.Unlock()

	// Without a connection the run loop subscribes every table once connected
	if conn != nil {
		if err := s.write(conn, model.WSEventSubscribe, table); err != nil {
			log.Printf("realtime: subscribe %s: %v", table, err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.c.subscribeTimeout)
	defer cancel()
	select {
	case <-acked:
		return sub, nil
	case <-waitCtx.Done():
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("%w: subscribe %s: %v", feed.ErrTransport, table, waitCtx.Err())
	}
}

func (s *stream) onReconnect(fn func()) {
	s.mu.Lock()
	s.reconnects = append(s.reconnects, fn)
	s.mu.Unlock()
}

// Unsubscribe stops delivery to this subscription. The table is
// unsubscribed on the server once no subscription needs it.
func (sub *subscription) Unsubscribe() error {
	sub.once.Do(func() {
		s := sub.s
		s.mu.Lock()
		delete(s.subs, sub)
		needed := false
		for other := range s.subs {
			if other.table == sub.table {
				needed = true
				break
			}
		}
		conn := s.conn
		s.mu.Unlock()

		if !needed && conn != nil {
			if err := s.write(conn, model.WSEventUnsubscribe, sub.table); err != nil {
				log.Printf("realtime: unsubscribe %s: %v", sub.table, err)
			}
		}
	})
	return nil
}

func (sub *subscription) accepts(table string, kind feed.EventKind) bool {
	return sub.table == table && (len(sub.kinds) == 0 || sub.kinds[kind])
}

func (s *stream) close() {
	s.mu.Lock()
	s.closed = true
	cancel := s.cancel
	done := s.done
	conn := s.conn
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if conn != nil {
		conn.Close()
	}
	<-done
}

// run keeps a connection open until the stream is closed
func (s *stream) run(ctx context.Context) {
	defer close(s.done)

	connected := false
	attempt := 0
	for {
		conn, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			wait := s.backoff(attempt)
			attempt++
			log.Printf("realtime: connect failed (attempt %d), retrying in %v: %v", attempt, wait, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
				continue
			}
		}
		attempt = 0

		s.mu.Lock()
		if ctx.Err() != nil {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conn = conn
		tables := s.tables()
		hooks := append([]func(){}, s.reconnects...)
		s.mu.Unlock()

		for _, table := range tables {
			if err := s.write(conn, model.WSEventSubscribe, table); err != nil {
				log.Printf("realtime: subscribe %s: %v", table, err)
			}
		}
		if connected {
			for _, fn := range hooks {
				go fn()
			}
		}
		connected = true

		err = s.read(conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		log.Printf("realtime: connection lost: %v", err)
	}
}

// backoff doubles from baseBackoff up to maxBackoff
func (s *stream) backoff(attempt int) time.Duration {
	wait := time.Duration(math.Pow(2, float64(attempt))) * s.c.baseBackoff
	if wait > s.c.maxBackoff || wait <= 0 {
		wait = s.c.maxBackoff
	}
	return wait
}

func (s *stream) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(s.c.baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {s.c.Token()}}.Encode()

	conn, resp, err := s.c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

// tables returns every table with at least one subscription. Callers hold mu.
func (s *stream) tables() []string {
	seen := make(map[string]bool)
	var tables []string
	for sub := range s.subs {
		if !seen[sub.table] {
			seen[sub.table] = true
			tables = append(tables, sub.table)
		}
	}
	return tables
}

func (s *stream) write(conn *websocket.Conn, eventType, table string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(model.WSEvent{Type: eventType, Payload: model.SubscribePayload{Table: table}})
}

// read dispatches frames until the connection fails
func (s *stream) read(conn *websocket.Conn) error {
	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Printf("realtime: bad frame: %v", err)
			continue
		}
		s.handle(f)
	}
}

func (s *stream) handle(f frame) {
	switch f.Type {
	case model.WSEventChange:
		var change model.ChangePayload
		if err := json.Unmarshal(f.Payload, &change); err != nil {
			log.Printf("realtime: bad change frame: %v", err)
			return
		}
		ev := feed.Event{Table: change.Table, Kind: feed.EventKind(change.Event), Record: change.Record}

		s.mu.Lock()
		var targets []*subscription
		for sub := range s.subs {
			if sub.accepts(ev.Table, ev.Kind) {
				targets = append(targets, sub)
			}
		}
		s.mu.Unlock()

		for _, sub := range targets {
			sub.fn(ev)
		}

	case model.WSEventSubscribed:
		var p model.SubscribePayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return
		}
		s.mu.Lock()
		waiters := s.acks[p.Table]
		delete(s.acks, p.Table)
		s.mu.Unlock()
		for _, ch := range waiters {
			close(ch)
		}

	case model.WSEventError:
		log.Printf("realtime: server error: %s", f.Payload)
	}
}
