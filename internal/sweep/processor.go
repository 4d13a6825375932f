package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Processor invokes the sweep service on a fixed interval. It is the
// in-process periodic caller; external schedulers can hit the protected
// trigger endpoint instead, and both may overlap safely.
type Processor struct {
	service  *Service
	interval time.Duration
}

func NewProcessor(service *Service, interval time.Duration) *Processor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Processor{
		service:  service,
		interval: interval,
	}
}

// Start begins the sweep loop and blocks until the context is cancelled.
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "sweep_processor").Logger()
	logger.Info().Dur("interval", p.interval).Msg("starting sweep processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down sweep processor")
			return
		case <-ticker.C:
			if _, err := p.service.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}
