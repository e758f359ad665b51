package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openverse/openverse/internal/cache"
	"github.com/openverse/openverse/internal/feed"
	"github.com/openverse/openverse/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var opts []server.Option
		importer := feed.NewImporter(store)

		if cfg.Redis.Enabled() {
			client, err := cache.NewRedisClient(cfg)
			if err != nil {
				return err
			}
			defer client.Close()
			cached := cache.New(store, client, cfg.Redis.TTL)
			importer.AfterImport = func(ctx context.Context) {
				if err := cached.Invalidate(ctx); err != nil {
					log.Warn().Err(err).Msg("Failed to invalidate resource snapshot")
				}
			}
			opts = append(opts, server.WithProvider(cached))
			log.Info().Str("redis", cfg.Redis.Addr()).Dur("ttl", cfg.Redis.TTL).Msg("Resource cache enabled")
		}

		if len(cfg.Feeds.URLs) > 0 {
			poller := feed.NewPoller(importer, cfg.Feeds.URLs, int(cfg.Feeds.IntervalMinutes))
			opts = append(opts, server.WithPoller(poller))
			log.Info().Int("feeds", len(cfg.Feeds.URLs)).Dur("interval", poller.Interval()).Msg("Feed polling enabled")
		}

		srv, err := server.New(store, opts...)
		if err != nil {
			return err
		}

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(cfg.Listen.Addr())
		}()

		select {
		case err := <-errCh:
			return err
		case <-shutdown:
			log.Info().Msg("Shutdown signal received")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			return err
		}
		log.Info().Msg("Server gracefully stopped")
		return nil
	},
}
