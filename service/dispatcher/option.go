package dispatcher

import (
	"github.com/juicer-platform/cortex/runtime/request"
	"github.com/juicer-platform/cortex/service/messaging"
)

// Option customises the dispatcher.
type Option func(*Service)

// WithRegistry sets the request registry holding deferred entries.
func WithRegistry(registry *request.Registry) Option {
	return func(s *Service) {
		s.registry = registry
	}
}

// WithQueue sets the job queue implementation.
func WithQueue(queue messaging.Queue[Job]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithWorkers sets the number of worker goroutines.
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.Workers = count
	}
}

// WithConfig sets the configuration for the service.
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}
