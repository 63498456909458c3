package queue

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.bryk.io/queue/log"
)

const (
	defaultRetryMaxAttempts  = uint(3)
	defaultRetryInitialWait  = 200 * time.Millisecond
	defaultRetryMaxElapsedTm = 10 * time.Second
)

// retryPolicy bounds the "slow instantiation" retries used whenever a queue
// or container turns out to be missing: create it, then retry the original
// operation a small, bounded number of times rather than looping forever.
type retryPolicy struct {
	maxAttempts uint
	initialWait time.Duration
	maxElapsed  time.Duration
	log         log.Logger
	retries     prometheus.Counter
}

func newRetryPolicy(maxAttempts uint, initialWait time.Duration, logger log.Logger, retries prometheus.Counter) *retryPolicy {
	if maxAttempts == 0 {
		maxAttempts = defaultRetryMaxAttempts
	}
	if initialWait <= 0 {
		initialWait = defaultRetryInitialWait
	}
	return &retryPolicy{
		maxAttempts: maxAttempts,
		initialWait: initialWait,
		maxElapsed:  defaultRetryMaxElapsedTm,
		log:         logger,
		retries:     retries,
	}
}

// do runs "op", retrying not-found errors using an exponential backoff
// bounded by the policy's max attempts; any other error is returned at once.
// "label" is only used for diagnostic logging.
func (p *retryPolicy) do(ctx context.Context, label string, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initialWait

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if attempt > 0 {
			p.retries.Inc()
		}
		attempt++
		if oerr := op(); oerr != nil {
			if !isNotFound(oerr) {
				return struct{}{}, backoff.Permanent(oerr)
			}
			p.log.WithField("operation", label).Debug("retrying after transient failure")
			return struct{}{}, oerr
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(p.maxAttempts),
		backoff.WithMaxElapsedTime(p.maxElapsed),
	)
	return err
}
