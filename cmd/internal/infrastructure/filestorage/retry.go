package filestorage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/labstack/gommon/log"
)

// RetryBackend decorates a Backend with exponential backoff. Backends
// themselves never retry, so this is the only place it happens.
type RetryBackend struct {
	next     Backend
	attempts uint
	initial  time.Duration
}

func NewRetryBackend(next Backend, retries int) *RetryBackend {
	return &RetryBackend{
		next:     next,
		attempts: uint(retries) + 1,
		initial:  200 * time.Millisecond,
	}
}

func (r *RetryBackend) Save(ctx context.Context, data []byte, relPath, contentType string) (string, error) {
	return backoff.Retry(ctx, func() (string, error) {
		path, err := r.next.Save(ctx, data, relPath, contentType)
		if err != nil {
			log.Warnf("save of %s failed, may retry: %v", relPath, err)
		}
		return path, err
	}, r.options()...)
}

func (r *RetryBackend) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	return backoff.Retry(ctx, func() (io.ReadCloser, error) {
		rc, err := r.next.Open(ctx, relPath)
		if errors.Is(err, ErrObjectNotFound) {
			return nil, backoff.Permanent(err)
		}
		return rc, err
	}, r.options()...)
}

func (r *RetryBackend) options() []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	return []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.attempts),
	}
}

var _ Backend = (*RetryBackend)(nil)
