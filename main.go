package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openverse/openverse/internal/config"
	"github.com/openverse/openverse/internal/database"
	"github.com/openverse/openverse/internal/logging"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "openverse",
	Short:         "OpenVerse site and Aral resource list",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadErr := godotenv.Load()
		cfg = config.DefaultConfig()
		cfg.LoadFromEnv()
		logging.Setup(cfg.Log.Level, cfg.Log.Format)
		if loadErr != nil {
			log.Warn().Err(loadErr).Msg("Error loading .env file, using environment variables")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, seedCmd, importFeedCmd, importOPMLCmd, exportOPMLCmd)
}

// openStore opens the configured database and logs which one.
func openStore() (database.Store, error) {
	store, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("database", store.DatabaseType()).Msg("Database opened")
	return store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
