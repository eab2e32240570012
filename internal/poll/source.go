package poll

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/deepdefend/deepdefend-cli/pkg/logger"
)

// DefaultRefreshInterval is how often the auto-revalidating sources refetch.
const DefaultRefreshInterval = 10 * time.Second

// Status describes what a consumer should render for a source.
type Status int

const (
	// Loading means no cached value exists yet.
	Loading Status = iota
	// Ready means the cached value is current as of FetchedAt.
	Ready
	// Stale means the last fetch failed; the previously cached value, if
	// any, remains visible next to the error.
	Stale
)

// FetchFunc produces a fresh value for a source.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Snapshot is the observable state of a source at one point in time.
type Snapshot[T any] struct {
	Value     T
	HasValue  bool
	Err       error
	FetchedAt time.Time
}

func (s Snapshot[T]) Status() Status {
	switch {
	case s.Err != nil:
		return Stale
	case !s.HasValue:
		return Loading
	default:
		return Ready
	}
}

// Source is a read-through cache for one request path. Concurrent refreshes
// of the same key collapse into a single fetch, so multiple consumers never
// issue redundant calls simultaneously. A failed fetch keeps the last good
// value visible. Sources with a positive interval revalidate on their own
// ticker until Close, the only teardown in their lifecycle.
type Source[T any] struct {
	key      string
	fetch    FetchFunc[T]
	interval time.Duration
	log      *logger.Logger

	group singleflight.Group

	mu        sync.Mutex
	value     T
	hasValue  bool
	err       error
	fetchedAt time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a source keyed by its request path. interval 0 means the source
// revalidates only on explicit Refresh (fetch-once semantics via Get).
func New[T any](key string, fetch FetchFunc[T], interval time.Duration) *Source[T] {
	return &Source[T]{
		key:      key,
		fetch:    fetch,
		interval: interval,
		log:      logger.GetLogger(),
		stop:     make(chan struct{}),
	}
}

func (s *Source[T]) Key() string {
	return s.key
}

// Snapshot returns the current observable state without fetching.
func (s *Source[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot[T]{
		Value:     s.value,
		HasValue:  s.hasValue,
		Err:       s.err,
		FetchedAt: s.fetchedAt,
	}
}

// Refresh fetches now, de-duplicated across concurrent callers, and returns
// the resulting snapshot.
func (s *Source[T]) Refresh(ctx context.Context) Snapshot[T] {
	s.group.Do(s.key, func() (any, error) {
		value, err := s.fetch(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.fetchedAt = time.Now()
		if err != nil {
			// Keep the previous value visible alongside the error.
			s.err = err
			s.log.Debugf("refresh of %s failed: %v", s.key, err)
			return nil, err
		}
		s.value = value
		s.hasValue = true
		s.err = nil
		return value, nil
	})
	return s.Snapshot()
}

// Get returns the cached value, fetching first when the cache is empty or
// older than the revalidation interval.
func (s *Source[T]) Get(ctx context.Context) Snapshot[T] {
	s.mu.Lock()
	fresh := s.hasValue && s.err == nil &&
		(s.interval <= 0 || time.Since(s.fetchedAt) < s.interval)
	s.mu.Unlock()

	if fresh {
		return s.Snapshot()
	}
	return s.Refresh(ctx)
}

// Start launches the revalidation ticker. Sources with no interval are
// fetch-once and ignore Start.
func (s *Source[T]) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Refresh(ctx)
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close stops the revalidation ticker. The cached value stays readable.
func (s *Source[T]) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}
