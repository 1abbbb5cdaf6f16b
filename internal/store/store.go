// Package store implements the room synchronization channel: a keyed,
// versioned value store with conditional read-modify-write updates and
// change subscriptions. Two backends exist, an in-memory store for single
// instance deployments and tests, and a Redis-backed store for running
// several service instances against one shared room set.
package store

import (
	"context"
	"errors"

	jsoniter "github.com/json-iterator/go"
)

var (
	// ErrNotFound indicates the keyed value does not exist.
	ErrNotFound = errors.New("store: key not found")
	// ErrConflict indicates a conditional update exhausted its retry budget
	// because other writers kept committing between read and write.
	ErrConflict = errors.New("store: too many conflicting writers")
	// ErrExists indicates Create targeted a key that is already present.
	ErrExists = errors.New("store: key already exists")
)

// maxTransactRetries bounds the compare-and-swap loop. Conflicts on a single
// room come from at most a handful of clients, so this is generous.
const maxTransactRetries = 32

// Store is the synchronization channel contract. T is the room type; values
// cross the store boundary as independent copies, so callers may freely
// mutate what they receive.
//
// Transact applies fn to the latest value (nil if the key is absent) and
// commits the returned value only if no other writer committed in between,
// retrying otherwise. fn returning (nil, nil) means "leave the value as is";
// the write is skipped, subscribers are not notified and Transact returns
// nil. fn returning an error aborts the cycle, the error is surfaced to the
// caller and no value is returned. Otherwise Transact returns the committed
// value.
//
// Write is an unconditional read-mutate-write with no conflict check. It is
// reserved for updates with no read-dependent precondition (the finish
// acknowledgement flags); everything else must go through Transact.
//
// Subscribe registers fn for change delivery. fn fires once immediately with
// the current value (nil if absent) and again after every committed change,
// until the returned cancel function is called.
type Store[T any] interface {
	Create(ctx context.Context, key string, value *T) error
	Get(ctx context.Context, key string) (*T, error)
	Transact(ctx context.Context, key string, fn func(*T) (*T, error)) (*T, error)
	Write(ctx context.Context, key string, mutate func(*T)) error
	Subscribe(key string, fn func(*T)) (cancel func(), err error)
}

// json is the codec for snapshot copies. Room values are encoded once on
// commit and decoded per reader, which is what guarantees snapshot isolation.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

func encode[T any](v *T) ([]byte, error) {
	return json.Marshal(v)
}

func decode[T any](data []byte) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return v, nil
}
