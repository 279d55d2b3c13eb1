// Package worker contains the notification redelivery queue. The workflow
// attempts every send synchronously first; only failed sends land here, and
// delivery stays best-effort — after the retry budget the message is dropped
// with an error log, never surfaced to the original caller.
//
// It is intentionally decoupled from the workflow: workflow holds the
// Enqueuer interface and never imports the concrete Runner.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/athenura/internhub-backend/internal/email"
)

// ─── ENQUEUER INTERFACE ──────────────────────────────────────────────────────

// Enqueuer is the narrow interface the workflow uses to hand off a failed
// notification. The concrete implementation is *Runner; tests use any struct
// with the three methods.
type Enqueuer interface {
	EnqueueIssued(p email.IssuedParams)
	EnqueueRejected(p email.RejectedParams)
	EnqueuePending(p email.PendingParams)
}

// ─── RUNNER ──────────────────────────────────────────────────────────────────

// RunnerConfig holds tuning parameters for the Runner. All fields have
// sensible defaults if zero-valued.
type RunnerConfig struct {
	// Workers is the number of concurrent delivery goroutines. Default: 2.
	Workers int

	// MaxAttempts is the number of redelivery attempts before a message is
	// dropped. Default: 3.
	MaxAttempts int

	// SendTimeout is the per-attempt context deadline. Default: 20s.
	SendTimeout time.Duration

	// BaseBackoff is the delay before the first retry; it doubles per
	// attempt. Default: 2s.
	BaseBackoff time.Duration
}

// DefaultRunnerConfig returns safe production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:     2,
		MaxAttempts: 3,
		SendTimeout: 20 * time.Second,
		BaseBackoff: 2 * time.Second,
	}
}

// delivery is one queued notification, captured as a closure over its params
// so the worker loop does not care which of the three kinds it is.
type delivery struct {
	describe string
	send     func(ctx context.Context, m email.Sender) error
}

// Runner manages the pool of redelivery goroutines. The queue lives in
// process only: a restart loses queued messages, which is acceptable for
// best-effort notifications (the persisted certificate state is authoritative
// and a certificate can always be re-downloaded).
type Runner struct {
	mailer email.Sender
	cfg    RunnerConfig
	logger *slog.Logger

	queue chan delivery
	wg    sync.WaitGroup
}

// NewRunner constructs a Runner. Call Start() to begin processing.
func NewRunner(mailer email.Sender, cfg RunnerConfig, logger *slog.Logger) *Runner {
	def := DefaultRunnerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = def.SendTimeout
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}

	return &Runner{
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
		// Generous buffer; if it still fills, the message is dropped rather
		// than blocking a request goroutine.
		queue: make(chan delivery, cfg.Workers*16),
	}
}

// EnqueueIssued queues a failed certificate-delivery email for redelivery.
func (r *Runner) EnqueueIssued(p email.IssuedParams) {
	r.enqueue(delivery{
		describe: "issued notification to " + p.To,
		send: func(ctx context.Context, m email.Sender) error {
			return m.SendIssued(ctx, p)
		},
	})
}

// EnqueueRejected queues a failed rejection email for redelivery.
func (r *Runner) EnqueueRejected(p email.RejectedParams) {
	r.enqueue(delivery{
		describe: "rejected notification to " + p.To,
		send: func(ctx context.Context, m email.Sender) error {
			return m.SendRejected(ctx, p)
		},
	})
}

// EnqueuePending queues a failed under-review email for redelivery.
func (r *Runner) EnqueuePending(p email.PendingParams) {
	r.enqueue(delivery{
		describe: "pending notification to " + p.To,
		send: func(ctx context.Context, m email.Sender) error {
			return m.SendPending(ctx, p)
		},
	})
}

func (r *Runner) enqueue(d delivery) {
	select {
	case r.queue <- d:
		r.logger.Info("worker: queued for redelivery", "delivery", d.describe)
	default:
		r.logger.Error("worker: redelivery queue full, dropping", "delivery", d.describe)
	}
}

// Start launches the delivery pool. It blocks until ctx is cancelled. Call it
// in a goroutine from main:
//
//	go runner.Start(ctx)
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info("worker: starting", "workers", r.cfg.Workers)

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.work(ctx, i)
	}

	r.wg.Wait()
	r.logger.Info("worker: stopped")
}

// work is the inner loop for each delivery goroutine.
func (r *Runner) work(ctx context.Context, id int) {
	defer r.wg.Done()
	log := r.logger.With("worker_id", id)

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-r.queue:
			r.deliverWithRetry(ctx, d, log)
		}
	}
}

// deliverWithRetry attempts the send up to MaxAttempts times with doubling
// backoff, then drops the message.
func (r *Runner) deliverWithRetry(ctx context.Context, d delivery, log *slog.Logger) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		// Back off before each attempt: everything in this queue has already
		// failed one synchronous send.
		backoff := r.cfg.BaseBackoff << (attempt - 1)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		sendCtx, cancel := context.WithTimeout(ctx, r.cfg.SendTimeout)
		lastErr = d.send(sendCtx, r.mailer)
		cancel()

		if lastErr == nil {
			log.Info("worker: redelivery succeeded", "delivery", d.describe, "attempt", attempt)
			return
		}

		log.Warn("worker: redelivery attempt failed",
			"delivery", d.describe,
			"attempt", attempt,
			"max", r.cfg.MaxAttempts,
			"error", lastErr,
		)
	}

	log.Error("worker: redelivery abandoned", "delivery", d.describe, "error", lastErr)
}
