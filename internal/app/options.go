package service

import (
	"context"
	"time"

	"github.com/okian/trophycase/internal/domain/display"
	"github.com/okian/trophycase/internal/domain/model"
	"github.com/okian/trophycase/pkg/logger"
)

// IconPrefetcher downloads achievement icons and calls done when finished.
type IconPrefetcher interface {
	Prefetch(ctx context.Context, achievements []model.Achievement, done func())
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines. More than one worker
// lets feed messages be applied out of order.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued messages.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many message keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithTickInterval sets how often the display cycle is advanced.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithBaseGamerscore sets the gamerscore the player had before this session.
func WithBaseGamerscore(v int64) Option {
	return func(s *Service) {
		s.baseGamerscore = v
	}
}

// WithDisplayOptions passes options to the display cycle.
func WithDisplayOptions(opts ...display.Option) Option {
	return func(s *Service) {
		s.displayOpts = append(s.displayOpts, opts...)
	}
}

// WithIconPrefetcher sets the icon downloader. Without one the session
// becomes ready as soon as definitions are merged.
func WithIconPrefetcher(p IconPrefetcher) Option {
	return func(s *Service) {
		if p != nil {
			s.icons = p
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
