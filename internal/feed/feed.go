package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Config describes one feed
type Config[T Record] struct {
	Table string
	// Query is the initial bulk read; Limit is the page size K.
	Query Query
	// Capacity bounds the view (N); 0 keeps every record.
	Capacity int
	// Events are the push kinds to subscribe to; defaults to INSERT.
	Events []EventKind
	Decode func(json.RawMessage) (T, error)
	// Match, when set, keeps only matching records in the view. A pushed
	// record that stops matching is removed.
	Match func(T) bool
	// ResolvePartial point-reads incomplete pushed records before merging.
	ResolvePartial bool
}

// State is what a feed exposes to its observers
type State[T Record] struct {
	Records []T
	Loading bool
	Err     error
}

// Feed keeps a View in sync with a Store.
//
// Push callbacks arrive on transport goroutines; every view mutation
// happens under mu. Point reads for partial records run on their own
// goroutines. Each Initialize starts a new generation and results
// from older generations are discarded.
type Feed[T Record] struct {
	store Store
	cfg   Config[T]

	mu        sync.Mutex
	view      *View[T]
	loading   bool
	err       error
	gen       uint64
	sub       Subscription
	buffering bool
	buffer    []Event
	cancel    context.CancelFunc
	closed    bool

	changes chan struct{}
}

// New returns a feed that is idle until Initialize
func New[T Record](store Store, cfg Config[T]) *Feed[T] {
	if len(cfg.Events) == 0 {
		cfg.Events = []EventKind{EventInsert}
	}
	return &Feed[T]{
		store:   store,
		cfg:     cfg,
		view:    NewView[T](cfg.Capacity),
		changes: make(chan struct{}, 1),
	}
}

// Changes signals after the state changed. Signals coalesce: read State
// after each receive.
func (f *Feed[T]) Changes() <-chan struct{} {
	return f.changes
}

func (f *Feed[T]) notify() {
	select {
	case f.changes <- struct{}{}:
	default:
	}
}

// State returns a snapshot of the feed
func (f *Feed[T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return State[T]{Records: f.view.Records(), Loading: f.loading, Err: f.err}
}

// Initialize subscribes to pushes, then bulk reads the newest records.
// Events pushed while the bulk read is in flight are buffered and merged
// on top of its result.
//
// A failed bulk read leaves the view empty and is recorded in State.Err as
// well as returned. Calling Initialize again restarts the feed.
func (f *Feed[T]) Initialize(ctx context.Context) error {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	oldSub := f.sub
	if f.cancel != nil {
		f.cancel()
	}
	runCtx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.sub = nil
	f.view.Reset(nil)
	f.loading = true
	f.err = nil
	f.buffering = true
	f.buffer = nil
	f.closed = false
	f.mu.Unlock()
	f.notify()

	if oldSub != nil {
		_ = oldSub.Unsubscribe()
	}

	sub, err := f.store.Subscribe(ctx, f.cfg.Table, f.cfg.Events, func(ev Event) {
		f.onEvent(runCtx, gen, ev)
	})
	if err != nil {
		f.fail(gen, err)
		return err
	}

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		_ = sub.Unsubscribe()
		return nil
	}
	f.sub = sub
	f.mu.Unlock()

	rows, err := f.store.BulkRead(ctx, f.cfg.Table, f.cfg.Query)
	if err != nil {
		f.fail(gen, err)
		return err
	}
	recs := f.decodeAll(rows)

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return nil
	}
	f.view.Reset(recs)
	f.loading = false
	f.mu.Unlock()
	f.notify()

	// Buffering ends only once the buffer is empty, so events arriving
	// during the replay queue behind the older ones.
	for {
		f.mu.Lock()
		if gen != f.gen {
			f.mu.Unlock()
			return nil
		}
		buffered := f.buffer
		f.buffer = nil
		if len(buffered) == 0 {
			f.buffering = false
			f.mu.Unlock()
			return nil
		}
		f.mu.Unlock()

		for _, ev := range buffered {
			f.apply(runCtx, gen, ev)
		}
	}
}

func (f *Feed[T]) fail(gen uint64, err error) {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return
	}
	f.view.Reset(nil)
	f.loading = false
	f.err = err
	f.buffering = false
	f.buffer = nil
	f.mu.Unlock()
	f.notify()
}

func (f *Feed[T]) decodeAll(rows []json.RawMessage) []T {
	recs := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := f.cfg.Decode(row)
		if err != nil {
			log.Printf("feed %s: skipping undecodable row: %v", f.cfg.Table, err)
			continue
		}
		if f.cfg.Match != nil && !f.cfg.Match(rec) {
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

func (f *Feed[T]) onEvent(ctx context.Context, gen uint64, ev Event) {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return
	}
	if f.buffering {
		f.buffer = append(f.buffer, ev)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	f.apply(ctx, gen, ev)
}

// apply merges one pushed event into the view
func (f *Feed[T]) apply(ctx context.Context, gen uint64, ev Event) {
	rec, err := f.cfg.Decode(ev.Record)
	if err != nil {
		log.Printf("feed %s: skipping undecodable %s event: %v", f.cfg.Table, ev.Kind, err)
		return
	}

	if ev.Kind == EventDelete || (f.cfg.Match != nil && !f.cfg.Match(rec)) {
		f.mu.Lock()
		removed := gen == f.gen && f.view.Remove(rec.Key())
		f.mu.Unlock()
		if removed {
			f.notify()
		}
		return
	}

	if !rec.Complete() && f.cfg.ResolvePartial {
		f.mu.Lock()
		existing, ok := f.view.Get(rec.Key())
		f.mu.Unlock()
		if ok && existing.Complete() {
			return
		}

		// The point read must not hold up the transport goroutine
		go f.resolve(ctx, gen, rec)
		return
	}

	f.mergeIfCurrent(gen, rec)
}

// resolve replaces a partial pushed record with its point-read row
func (f *Feed[T]) resolve(ctx context.Context, gen uint64, rec T) {
	full, err := f.pointRead(ctx, rec.Key())
	switch {
	case err == nil:
		rec = full
	case errors.Is(err, ErrNotFound):
		return
	case ctx.Err() != nil:
		return
	default:
		// Keep the partial; a complete copy can still replace it later
		log.Printf("feed %s: point read %s failed: %v", f.cfg.Table, rec.Key(), err)
	}
	f.mergeIfCurrent(gen, rec)
}

func (f *Feed[T]) mergeIfCurrent(gen uint64, rec T) {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return
	}
	changed := f.view.Merge(rec)
	f.mu.Unlock()
	if changed {
		f.notify()
	}
}

func (f *Feed[T]) pointRead(ctx context.Context, key string) (T, error) {
	var zero T
	raw, err := f.store.PointRead(ctx, f.cfg.Table, key)
	if err != nil {
		return zero, err
	}
	rec, err := f.cfg.Decode(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: decode %s: %v", ErrTransport, key, err)
	}
	return rec, nil
}

// Merge applies authoritative records, such as write responses, to the
// view. It does nothing after Teardown.
func (f *Feed[T]) Merge(recs ...T) {
	keep := make([]T, 0, len(recs))
	for _, rec := range recs {
		if f.cfg.Match == nil || f.cfg.Match(rec) {
			keep = append(keep, rec)
		}
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	changed := f.view.Merge(keep...)
	f.mu.Unlock()
	if changed {
		f.notify()
	}
}

// LoadOlder reads the page behind the oldest record and merges it.
// It returns how many records the page held; fewer than the page size
// means the history is exhausted.
func (f *Feed[T]) LoadOlder(ctx context.Context) (int, error) {
	f.mu.Lock()
	gen := f.gen
	oldest, ok := f.view.Oldest()
	f.mu.Unlock()
	if !ok {
		return 0, nil
	}

	q := f.cfg.Query
	q.Before = oldest.Key()
	rows, err := f.store.BulkRead(ctx, f.cfg.Table, q)
	if err != nil {
		return 0, err
	}
	recs := f.decodeAll(rows)

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return 0, nil
	}
	changed := f.view.Merge(recs...)
	f.mu.Unlock()
	if changed {
		f.notify()
	}
	return len(rows), nil
}

// Teardown closes the push subscription and discards the results of any
// read still in flight. It is safe to call more than once, or before
// Initialize.
func (f *Feed[T]) Teardown() error {
	f.mu.Lock()
	f.gen++
	sub := f.sub
	f.sub = nil
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.loading = false
	f.buffering = false
	f.buffer = nil
	f.closed = true
	f.mu.Unlock()

	if sub == nil {
		return nil
	}
	return sub.Unsubscribe()
}
