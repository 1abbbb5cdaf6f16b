package store

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// MemoryStore keeps every value in process memory behind a single mutex.
// Each entry carries a version counter; Transact re-checks the version at
// commit time, so concurrent writers linearize exactly like they would
// against the Redis backend.
type MemoryStore[T any] struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	subs    map[string]map[int]chan []byte
	nextSub int
	log     *logrus.Logger
}

type memEntry struct {
	version uint64
	data    []byte
}

// subscriberBuffer is the per-subscriber delivery queue depth. A subscriber
// that falls this far behind starts losing intermediate snapshots; it will
// still observe the latest committed state.
const subscriberBuffer = 32

func NewMemoryStore[T any](log *logrus.Logger) *MemoryStore[T] {
	return &MemoryStore[T]{
		entries: make(map[string]*memEntry),
		subs:    make(map[string]map[int]chan []byte),
		log:     log,
	}
}

func (s *MemoryStore[T]) Create(ctx context.Context, key string, value *T) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		return ErrExists
	}
	s.entries[key] = &memEntry{version: 1, data: data}
	s.notifyLocked(key, data)
	return nil
}

func (s *MemoryStore[T]) Get(ctx context.Context, key string) (*T, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decode[T](e.data)
}

func (s *MemoryStore[T]) Transact(ctx context.Context, key string, fn func(*T) (*T, error)) (*T, error) {
	for attempt := 0; attempt < maxTransactRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.mu.Lock()
		e, ok := s.entries[key]
		var (
			readVersion uint64
			cur         *T
			err         error
		)
		if ok {
			readVersion = e.version
			cur, err = decode[T](e.data)
		}
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}

		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		if next == nil {
			// No-op by convention: skip the write.
			return nil, nil
		}

		data, err := encode(next)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		e, ok = s.entries[key]
		if ok != (readVersion != 0) || (ok && e.version != readVersion) {
			// Somebody committed since our read; go around again.
			s.mu.Unlock()
			continue
		}
		if !ok {
			e = &memEntry{}
			s.entries[key] = e
		}
		e.version++
		e.data = data
		s.notifyLocked(key, data)
		s.mu.Unlock()
		return next, nil
	}
	return nil, ErrConflict
}

func (s *MemoryStore[T]) Write(ctx context.Context, key string, mutate func(*T)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return ErrNotFound
	}
	v, err := decode[T](e.data)
	if err != nil {
		return err
	}
	mutate(v)
	data, err := encode(v)
	if err != nil {
		return err
	}
	e.version++
	e.data = data
	s.notifyLocked(key, data)
	return nil
}

func (s *MemoryStore[T]) Subscribe(key string, fn func(*T)) (func(), error) {
	ch := make(chan []byte, subscriberBuffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[key] == nil {
		s.subs[key] = make(map[int]chan []byte)
	}
	s.subs[key][id] = ch
	var initial []byte
	if e, ok := s.entries[key]; ok {
		initial = e.data
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		// Initial delivery: current value, or nil if the key is absent.
		if initial == nil {
			fn(nil)
		} else if v, err := decode[T](initial); err == nil {
			fn(v)
		}
		for {
			select {
			case data := <-ch:
				v, err := decode[T](data)
				if err != nil {
					s.log.Warnf("store: dropping undecodable snapshot for %q: %v", key, err)
					continue
				}
				fn(v)
			case <-done:
				return
			}
		}
	}()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs[key], id)
		s.mu.Unlock()
		close(done)
	}
	return cancel, nil
}

// notifyLocked fans a committed snapshot out to every subscriber of key.
// Caller holds s.mu. Sends are non-blocking; a full queue means the
// subscriber is lagging and the oldest pending snapshot is evicted.
func (s *MemoryStore[T]) notifyLocked(key string, data []byte) {
	for _, ch := range s.subs[key] {
		select {
		case ch <- data:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- data:
			default:
			}
		}
	}
}
