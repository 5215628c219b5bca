// Package sender performs outbound Bot API calls off the update goroutine.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/quizbot/core/logger"
	"github.com/m3rciful/quizbot/core/telegram/netutil"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned when enqueue is attempted after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the chat's queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is the buffer of each worker.
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

// Job is one outbound call. Run must be safe to repeat when retries are enabled.
type Job struct {
	Chat   int64
	Action string
	Run    func() error
}

type queued struct {
	ctx context.Context
	Job
}

// Dispatcher executes outbound calls asynchronously with retries. Jobs for the
// same chat always land on the same worker, so replies keep their order.
type Dispatcher struct {
	opts   Options
	queues []chan queued
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	errs   atomic.Uint64
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewDispatcher starts the workers.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts:   opts,
		queues: make([]chan queued, opts.Workers),
		sleep:  sleepCtx,
	}
	d.wg.Add(opts.Workers)
	for i := range d.queues {
		d.queues[i] = make(chan queued, opts.QueueSize)
		go d.worker(d.queues[i])
	}
	return d
}

// Enqueue schedules j without blocking.
func (d *Dispatcher) Enqueue(ctx context.Context, j Job) error {
	if j.Run == nil {
		return errors.New("telegram sender: nil run function")
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.queues[d.shard(j.Chat)] <- queued{ctx: ctx, Job: j}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) shard(chat int64) int {
	if chat < 0 {
		chat = -chat
	}
	return int(chat % int64(len(d.queues)))
}

// ErrorCount returns the number of jobs that failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits until queued ones are done.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker(q <-chan queued) {
	defer d.wg.Done()
	for j := range q {
		d.handle(j)
	}
}

func (d *Dispatcher) handle(j queued) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	// The update that produced the job may be finished already; keep its
	// values for logging but not its cancellation.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.Run(); err == nil {
			if attempt > 1 {
				logger.Info(ctx, component, "send.retry.success",
					slog.String("action", j.Action),
					slog.Int("attempt", attempt),
					slog.Duration("elapsed", logger.Took(start)),
				)
			}
			logger.Debug(ctx, component, "send.success",
				slog.String("action", j.Action),
				slog.Duration("elapsed", logger.Took(start)),
			)
			return
		}
		if !netutil.ShouldRetry(err) || attempt == attempts {
			break
		}
		delay := d.opts.RetryBackoff * time.Duration(attempt)
		if after := netutil.RetryAfter(err); after > 0 {
			delay = time.Duration(after) * time.Second
		}
		logger.Debug(ctx, component, "send.retry.backoff",
			slog.String("action", j.Action),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)
		if sleepErr := d.sleep(runCtx, delay); sleepErr != nil {
			err = errors.Join(err, sleepErr)
			break
		}
	}

	d.errs.Add(1)
	logger.Error(ctx, component, "send.fail",
		slog.String("action", j.Action),
		slog.Int("attempts", attempts),
		slog.String("err", sanitizeErrorMessage(err)),
		slog.Duration("elapsed", logger.Took(start)),
	)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// sanitizeErrorMessage keeps bot tokens out of logs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return logger.SanitizeLimit(tokenRe.ReplaceAllString(err.Error(), "bot<redacted>"), 256)
}
