// Package worker runs inbound messages through the auto-response engine, either on
// the webhook goroutine or on a bounded pool.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/autorespond/internal/autorespond"
	"github.com/wolfman30/autorespond/internal/messaging"
	"github.com/wolfman30/autorespond/pkg/logging"
)

// Processor is the engine.
type Processor interface {
	Process(ctx context.Context, msg autorespond.InboundMessage) autorespond.DispatchResult
}

// Inline processes each message before the webhook returns.
type Inline struct {
	processor Processor
	logger    *logging.Logger
}

func NewInline(p Processor, logger *logging.Logger) *Inline {
	if p == nil {
		panic("worker: processor required")
	}
	return &Inline{processor: p, logger: logging.OrDefault(logger)}
}

// Handle never fails; dispatch problems are logged, not returned to the provider.
func (i *Inline) Handle(ctx context.Context, msg autorespond.InboundMessage) error {
	logResult(i.logger, msg, i.processor.Process(ctx, msg))
	return nil
}

// PoolOptions sizes a Pool.
type PoolOptions struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// Pool hands messages to a fixed set of goroutines through a buffered channel.
type Pool struct {
	processor Processor
	logger    *logging.Logger
	jobs      chan autorespond.InboundMessage
	workers   int
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPool(p Processor, opts PoolOptions, logger *logging.Logger) *Pool {
	if p == nil {
		panic("worker: processor required")
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 128
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = time.Minute
	}
	return &Pool{
		processor: p,
		logger:    logging.OrDefault(logger),
		jobs:      make(chan autorespond.InboundMessage, opts.QueueSize),
		workers:   opts.Workers,
		timeout:   opts.JobTimeout,
	}
}

// Start launches the workers. They exit once Shutdown closes the queue and it drains.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for msg := range p.jobs {
				p.run(ctx, id, msg)
			}
		}(i + 1)
	}
	p.logger.Info("inbound workers started", "workers", p.workers, "queue_size", cap(p.jobs))
}

func (p *Pool) run(ctx context.Context, id int, msg autorespond.InboundMessage) {
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("inbound worker panic", "worker", id, "panic", r, "message_id", msg.MessageID)
		}
	}()
	logResult(p.logger, msg, p.processor.Process(jobCtx, msg))
}

// Handle enqueues without blocking. A full queue returns messaging.ErrBusy.
func (p *Pool) Handle(_ context.Context, msg autorespond.InboundMessage) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("worker: pool is shut down")
	}
	select {
	case p.jobs <- msg:
		return nil
	default:
		return messaging.ErrBusy
	}
}

// Shutdown stops intake and waits for queued messages to finish or ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func logResult(logger *logging.Logger, msg autorespond.InboundMessage, res autorespond.DispatchResult) {
	attrs := []any{
		"channel", msg.Channel,
		"message_id", msg.MessageID,
		"response_sent", res.ResponseSent,
		"source", res.Source,
	}
	switch {
	case !res.Success:
		logger.Error("auto-response failed", append(attrs, "error", res.Error)...)
	case !res.ResponseSent:
		logger.Info("auto-response skipped", append(attrs, "reason", res.Reason)...)
	default:
		logger.Info("auto-response sent", append(attrs, "confidence", res.Confidence)...)
	}
}
