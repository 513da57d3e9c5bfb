package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// ErrClosed is reported by refreshes of an entry torn down before they resolved.
var ErrClosed = errors.New("cache entry closed")

// Loader fetches the authoritative collection for key.
type Loader[T any] func(ctx context.Context, key string) ([]T, error)

// Options configures a Store.
type Options struct {
	// IdleTTL is how long an unread entry survives CleanExpired. Zero keeps
	// entries until Close.
	IdleTTL time.Duration
	// MaxRefetches bounds concurrent loader calls across all keys.
	MaxRefetches int64
	// RefetchTimeout bounds a single loader call.
	RefetchTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRefetches <= 0 {
		o.MaxRefetches = 8
	}
	if o.RefetchTimeout <= 0 {
		o.RefetchTimeout = 10 * time.Second
	}
	return o
}

// Snapshot is what a reader observes of an entry at one instant.
type Snapshot[T any] struct {
	Items []T
	// Loading is set while at least one refetch is in flight.
	Loading bool
	// Loaded is set once any refetch succeeded.
	Loaded bool
	// Err is the error of the latest failed refetch. It stays set until a
	// newer refetch succeeds; Items keep the last good collection meanwhile.
	Err       error
	FetchedAt time.Time
}

// IsError reports whether the latest refetch failed.
func (s Snapshot[T]) IsError() bool { return s.Err != nil }

// Refresh is one background refetch started by Invalidate.
type Refresh struct {
	gen  uint64
	done chan struct{}
	err  error
}

// Done is closed once the refetch resolved.
func (r *Refresh) Done() <-chan struct{} { return r.done }

// Wait blocks until the refetch resolved and returns its error. Cancelling ctx
// stops the wait, never the refetch.
func (r *Refresh) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Refresh) resolve(err error) {
	r.err = err
	close(r.done)
}

// Store is a keyed set of collection entries, one per identity.
type Store[T any] struct {
	load  Loader[T]
	opts  Options
	sem   *semaphore.Weighted
	group singleflight.Group
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]*Entry[T]
	wg      sync.WaitGroup
}

func NewStore[T any](load Loader[T], opts Options) *Store[T] {
	opts = opts.withDefaults()
	return &Store[T]{
		load:    load,
		opts:    opts,
		sem:     semaphore.NewWeighted(opts.MaxRefetches),
		now:     time.Now,
		entries: make(map[string]*Entry[T]),
	}
}

// Entry returns the entry for key, creating an empty one if needed.
func (s *Store[T]) Entry(key string) *Entry[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &Entry[T]{store: s, key: key, lastUsed: s.now()}
		s.entries[key] = e
	}
	return e
}

// Lookup returns the entry for key without creating it.
func (s *Store[T]) Lookup(key string) (*Entry[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

// Load returns a populated snapshot of key, waiting for the first population
// if needed. Concurrent first reads of one key share a single loader call.
// An entry torn down while being read is replaced by a fresh one.
func (s *Store[T]) Load(ctx context.Context, key string) (Snapshot[T], error) {
	for {
		e := s.Entry(key)
		snap, closed := e.read()
		if closed {
			continue
		}
		if snap.Loaded {
			return snap, nil
		}

		ch := s.group.DoChan(key, func() (any, error) {
			return nil, e.ensureRefresh().Wait(context.Background())
		})
		select {
		case res := <-ch:
			snap, closed := e.read()
			// A shared flight may have populated an entry since torn down.
			if closed || errors.Is(res.Err, ErrClosed) || (res.Err == nil && !snap.Loaded) {
				if err := ctx.Err(); err != nil {
					return Snapshot[T]{}, err
				}
				continue
			}
			if res.Err != nil && !snap.Loaded {
				return snap, res.Err
			}
			return snap, nil
		case <-ctx.Done():
			return e.peek(), ctx.Err()
		}
	}
}

// Invalidate marks key stale and starts a refetch. It is a no-op returning a
// resolved refresh when no entry exists for key.
func (s *Store[T]) Invalidate(key string) *Refresh {
	e, ok := s.Lookup(key)
	if !ok {
		r := &Refresh{done: make(chan struct{})}
		r.resolve(nil)
		return r
	}
	return e.Invalidate()
}

// Close tears down the entry of key. Refetches still in flight are discarded.
func (s *Store[T]) Close(key string) bool {
	s.mu.Lock()
	e, ok := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()
	if ok {
		e.close()
	}
	return ok
}

// CleanExpired drops entries idle longer than IdleTTL with nothing in flight.
func (s *Store[T]) CleanExpired() int {
	if s.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.opts.IdleTTL)

	s.mu.Lock()
	var expired []*Entry[T]
	for key, e := range s.entries {
		if e.idleSince(cutoff) {
			delete(s.entries, key)
			expired = append(expired, e)
		}
	}
	s.mu.Unlock()

	for _, e := range expired {
		e.close()
	}
	return len(expired)
}

// Len returns the number of live entries.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Drain waits for every background refetch to finish.
func (s *Store[T]) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store[T]) refetch(e *Entry[T], r *Refresh) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.RefetchTimeout)
	defer cancel()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		e.apply(r, nil, err)
		return
	}
	items, err := s.load(ctx, e.key)
	s.sem.Release(1)

	if err != nil {
		slog.Warn("Goal collection refetch failed",
			"component", "cache", "owner_id", e.key, "generation", r.gen, "error", err)
	}
	e.apply(r, items, err)
}

// Entry is the cached collection of one key.
type Entry[T any] struct {
	store *Store[T]
	key   string

	mu        sync.Mutex
	items     []T
	loaded    bool
	err       error
	fetchedAt time.Time
	lastUsed  time.Time
	closed    bool

	// started counts refetches handed out; dataGen and errGen record which
	// of them produced the current items and err.
	started  uint64
	dataGen  uint64
	errGen   uint64
	inflight int
	latest   *Refresh
}

// Get returns the current snapshot. The first read of an empty entry starts
// its population in the background and reports Loading.
func (e *Entry[T]) Get() Snapshot[T] {
	e.mu.Lock()
	if !e.loaded && e.inflight == 0 && !e.closed {
		e.invalidateLocked()
	}
	e.lastUsed = e.store.now()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	return snap
}

// Invalidate marks the entry stale and starts a background refetch. Readers
// keep seeing the previous items until a refetch resolves.
func (e *Entry[T]) Invalidate() *Refresh {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		r := &Refresh{done: make(chan struct{})}
		r.resolve(ErrClosed)
		return r
	}
	return e.invalidateLocked()
}

func (e *Entry[T]) invalidateLocked() *Refresh {
	e.started++
	r := &Refresh{gen: e.started, done: make(chan struct{})}
	e.inflight++
	e.latest = r

	e.store.wg.Add(1)
	go e.store.refetch(e, r)
	return r
}

// ensureRefresh returns the newest in-flight refresh or starts one.
func (e *Entry[T]) ensureRefresh() *Refresh {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.latest != nil && e.inflight > 0 {
		return e.latest
	}
	if e.closed {
		r := &Refresh{done: make(chan struct{})}
		r.resolve(ErrClosed)
		return r
	}
	return e.invalidateLocked()
}

// apply records the outcome of refresh r. Results of a refetch started before
// the one that produced the current data are discarded.
func (e *Entry[T]) apply(r *Refresh, items []T, err error) {
	e.mu.Lock()
	e.inflight--
	switch {
	case e.closed:
		err = ErrClosed
	case err != nil:
		if r.gen > e.errGen && r.gen > e.dataGen {
			e.err = err
			e.errGen = r.gen
		}
	case r.gen > e.dataGen:
		e.items = items
		e.loaded = true
		e.dataGen = r.gen
		e.fetchedAt = e.store.now()
		if r.gen > e.errGen {
			e.err = nil
		}
	}
	e.mu.Unlock()
	r.resolve(err)
}

func (e *Entry[T]) peek() Snapshot[T] {
	snap, _ := e.read()
	return snap
}

// read is peek that also reports whether the entry was torn down.
func (e *Entry[T]) read() (Snapshot[T], bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = e.store.now()
	return e.snapshotLocked(), e.closed
}

func (e *Entry[T]) snapshotLocked() Snapshot[T] {
	items := make([]T, len(e.items))
	copy(items, e.items)
	return Snapshot[T]{
		Items:     items,
		Loading:   e.inflight > 0,
		Loaded:    e.loaded,
		Err:       e.err,
		FetchedAt: e.fetchedAt,
	}
}

func (e *Entry[T]) idleSince(cutoff time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inflight == 0 && e.lastUsed.Before(cutoff)
}

func (e *Entry[T]) close() {
	e.mu.Lock()
	e.closed = true
	e.items = nil
	e.loaded = false
	e.mu.Unlock()
}
