package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openverse/openverse/internal/feed"
	"github.com/openverse/openverse/internal/model"
	"github.com/openverse/openverse/internal/opml"
)

var demoResources = []model.Resource{
	{SourceName: "NASA Exoplanet Archive", Category: "Dataset", Field: "Astronomy", Link: model.NewLink("https://exoplanetarchive.ipac.caltech.edu")},
	{SourceName: "Sloan Digital Sky Survey", Category: "Dataset", Field: "Astronomy", Link: model.NewLink("https://www.sdss.org")},
	{SourceName: "arXiv", Category: "Preprints", Field: "Physics", Link: model.NewLink("https://arxiv.org")},
	{SourceName: "OpenStreetMap", Category: "Dataset", Field: "Geography", Link: model.NewLink("https://www.openstreetmap.org")},
	{SourceName: "Project Gutenberg", Category: "Library", Field: "Literature", Link: model.NewLink("https://www.gutenberg.org")},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert a few demo resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		added := 0
		for _, r := range demoResources {
			isNew, err := store.UpsertResource(cmd.Context(), &r)
			if err != nil {
				return fmt.Errorf("seed %s: %w", r.SourceName, err)
			}
			if isNew {
				added++
			}
		}
		log.Info().Int("added", added).Int("total", len(demoResources)).Msg("Seeded resources")
		return nil
	},
}

var importFeedCmd = &cobra.Command{
	Use:   "import-feed <url>...",
	Short: "Import resources from RSS or Atom feeds",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		results, err := feed.NewImporter(store).ImportAll(ctx, args)
		if err != nil {
			return err
		}
		total := 0
		for _, c := range results {
			total += c
		}
		log.Info().Int("new_resources", total).Int("feeds", len(results)).Msg("Import finished")
		return nil
	},
}

var importOPMLCmd = &cobra.Command{
	Use:   "import-opml <file>",
	Short: "Import resources from an OPML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		resources, err := opml.Parse(f)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		imported := 0
		for _, r := range resources {
			if err := r.ValidateNew(); err != nil {
				log.Warn().Err(err).Str("source", r.SourceName).Msg("Skipping invalid entry")
				continue
			}
			isNew, err := store.UpsertResource(cmd.Context(), &r)
			if err != nil {
				log.Error().Err(err).Str("source", r.SourceName).Msg("Error importing entry")
				continue
			}
			if isNew {
				imported++
			}
		}
		log.Info().Int("imported", imported).Int("total", len(resources)).Msg("OPML import finished")
		return nil
	},
}

var exportOutput string

var exportOPMLCmd = &cobra.Command{
	Use:   "export-opml",
	Short: "Export the resource list as OPML",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		resources, err := store.ListResources(cmd.Context())
		if err != nil {
			return fmt.Errorf("list resources: %w", err)
		}
		data, err := opml.Export("OpenVerse Aral", resources)
		if err != nil {
			return err
		}
		if exportOutput == "" || exportOutput == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := atomic.WriteFile(exportOutput, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("write %s: %w", exportOutput, err)
		}
		log.Info().Int("resources", len(resources)).Str("file", exportOutput).Msg("Exported OPML")
		return nil
	},
}

func init() {
	exportOPMLCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file to write (default stdout)")
}
