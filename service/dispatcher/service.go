package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/juicer-platform/cortex/runtime/request"
	"github.com/juicer-platform/cortex/service/messaging"
	"github.com/juicer-platform/cortex/service/messaging/memory"
	"github.com/juicer-platform/cortex/tracing"
)

// Config represents dispatcher configuration.
type Config struct {
	// Workers is the number of workers running deferred requests.
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() Config {
	return Config{Workers: 4}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0")
	}
	return nil
}

// Job asks a worker to run the deferred entry of a request.
type Job struct {
	RequestID string `json:"requestId"`
}

// Service runs deferred requests on a worker pool.
type Service struct {
	config   Config
	registry *request.Registry
	queue    messaging.Queue[Job]

	mu      sync.Mutex
	workers []*worker
	wg      sync.WaitGroup
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// New creates a dispatcher; a memory queue is used unless one is supplied.
func New(options ...Option) (*Service, error) {
	s := &Service{config: DefaultConfig()}
	for _, opt := range options {
		opt(s)
	}
	if s.registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if s.queue == nil {
		s.queue = memory.NewQueue[Job](memory.DefaultConfig())
	}
	return s, nil
}

// Start launches the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.workers) > 0 {
		return fmt.Errorf("dispatcher already started")
	}
	for i := 0; i < s.config.Workers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{id: i, service: s, ctx: workerCtx, cancelFn: cancel}
		s.workers = append(s.workers, w)
		s.wg.Add(1)
		go w.run()
	}
	return nil
}

// Submit enqueues the deferred entry of requestID.
func (s *Service) Submit(ctx context.Context, requestID string) error {
	if requestID == "" {
		return fmt.Errorf("requestID was empty")
	}
	if err := s.queue.Publish(ctx, &Job{RequestID: requestID}); err != nil {
		return fmt.Errorf("failed to submit request %v: %w", requestID, err)
	}
	return nil
}

func (w *worker) run() {
	defer w.service.wg.Done()
	for {
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, messaging.ErrClosed) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		if pErr := w.service.process(w.ctx, msg); pErr != nil {
			log.Printf("worker %d: failed to dispatch request: %v", w.id, pErr)
		}
	}
}

// process dispatches one job. The message is acknowledged even when the
// deferred entry fails since entries run at most once.
func (s *Service) process(ctx context.Context, message messaging.Message[Job]) (err error) {
	job := message.T()
	ctx, span := tracing.Start(ctx, "dispatcher.process", tracing.Consumer)
	defer func() { span.End(err) }()
	span.Set("cortex.request.id", job.RequestID)

	if aErr := message.Ack(); aErr != nil {
		return aErr
	}
	if err = s.registry.Dispatch(ctx, job.RequestID); err != nil {
		return fmt.Errorf("request %v: %w", job.RequestID, err)
	}
	return nil
}

// Shutdown stops the workers and waits for running entries to return.
func (s *Service) Shutdown() {
	s.mu.Lock()
	workers := s.workers
	s.workers = nil
	s.mu.Unlock()
	for _, w := range workers {
		w.cancelFn()
	}
	s.wg.Wait()
}
