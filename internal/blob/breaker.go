package blob

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("blob store unavailable")

// Breaker guards a Store with a circuit breaker. Missing blobs and bad keys
// do not count as failures.
type Breaker struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Store, name string, log logrus.FieldLogger) *Breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidKey)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("blob breaker state changed")
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Breaker) Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Put(ctx, key, r, contentType)
	})
	if err != nil {
		return Info{}, mapBreakerErr(err)
	}
	return res.(Info), nil
}

type opened struct {
	rc   io.ReadCloser
	info Info
}

func (b *Breaker) Open(ctx context.Context, key string) (io.ReadCloser, Info, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		rc, info, err := b.next.Open(ctx, key)
		if err != nil {
			return nil, err
		}
		return opened{rc: rc, info: info}, nil
	})
	if err != nil {
		return nil, Info{}, mapBreakerErr(err)
	}
	o := res.(opened)
	return o.rc, o.info, nil
}

func (b *Breaker) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Delete(ctx, key)
	})
	return mapBreakerErr(err)
}

// State reports the breaker state for health output.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}
