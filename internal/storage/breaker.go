package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sony/gobreaker"
)

// breakerStorage guards a remote backend with a circuit breaker so an unreachable
// object store fails requests fast instead of tying up handlers until timeout.
type breakerStorage struct {
	inner Storage
	cb    *gobreaker.CircuitBreaker
}

// BreakerSettings tunes WithBreaker. Zero values take the defaults below.
type BreakerSettings struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	OnStateChange    func(name string, from, to gobreaker.State)
}

// WithBreaker wraps s with a circuit breaker. Missing objects and invalid keys
// count as successes: they are answers, not outages.
func WithBreaker(s Storage, st BreakerSettings) Storage {
	if st.Name == "" {
		st.Name = "storage"
	}
	if st.FailureThreshold == 0 {
		st.FailureThreshold = 5
	}
	if st.OpenTimeout == 0 {
		st.OpenTimeout = 30 * time.Second
	}
	threshold := st.FailureThreshold
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    st.Name,
		Timeout: st.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrObjectNotFound) || errors.Is(err, ErrInvalidKey)
		},
		OnStateChange: st.OnStateChange,
	})
	return &breakerStorage{inner: s, cb: cb}
}

type openResult struct {
	obj  Object
	info ObjectInfo
}

func (b *breakerStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Put(ctx, key, r, opt)
	})
	if err != nil {
		return ObjectInfo{}, err
	}
	return v.(ObjectInfo), nil
}

func (b *breakerStorage) Open(ctx context.Context, key string) (Object, ObjectInfo, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		obj, info, err := b.inner.Open(ctx, key)
		return openResult{obj: obj, info: info}, err
	})
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	res := v.(openResult)
	return res.obj, res.info, nil
}

func (b *breakerStorage) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Stat(ctx, key)
	})
	if err != nil {
		return ObjectInfo{}, err
	}
	return v.(ObjectInfo), nil
}

func (b *breakerStorage) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.Delete(ctx, key)
	})
	return err
}
