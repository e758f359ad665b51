package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Poller re-imports a fixed set of feeds on an interval.
type Poller struct {
	importer *Importer
	urls     []string
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPoller creates a background poller. Intervals below the minimum are raised.
func NewPoller(importer *Importer, urls []string, intervalMinutes int) *Poller {
	if intervalMinutes < MinPollingIntervalMinutes {
		intervalMinutes = MinPollingIntervalMinutes
	}
	return &Poller{
		importer: importer,
		urls:     urls,
		interval: time.Duration(intervalMinutes) * time.Minute,
		stopChan: make(chan struct{}),
	}
}

// Interval returns the effective polling interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start begins the polling loop.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			results, err := p.importer.ImportAll(ctx, p.urls)
			cancel()

			if err != nil {
				log.Error().Err(err).Msg("Poller error")
			} else {
				total := 0
				for _, c := range results {
					total += c
				}
				log.Info().Int("new_resources", total).Int("feeds", len(results)).Msg("Poller finished")
			}

			select {
			case <-p.stopChan:
				return
			case <-time.After(p.interval):
			}
		}
	}()
}

// Stop stops the poller gracefully.
func (p *Poller) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}
