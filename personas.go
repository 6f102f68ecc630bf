package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maastricht-university/speakidol/clients"
	"github.com/maastricht-university/speakidol/features"
	"github.com/maastricht-university/speakidol/persona"
)

var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "Manage the persona catalogue",
}

var buildDir string

var personasBuildCmd = &cobra.Command{
	Use:   "build --dir <dir>",
	Short: "Build a profile for every <dir>/*.wav and store it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		conf, log, err := setup()
		if err != nil {
			return err
		}
		dir := buildDir
		if dir == "" {
			dir = conf.Personas.AudioDir
		}
		store, err := persona.Open(conf.Personas)
		if err != nil {
			return err
		}
		defer store.Close()

		b := &persona.Builder{
			Store:      store,
			Prosody:    features.ProsodyOptionsFrom(conf.Prosody),
			SampleRate: conf.Audio.SampleRate,
			Version:    conf.Pipeline.Version,
			Log:        log,
		}
		if url := conf.Services.Embedding.URL; url != "" {
			h := clients.NewHTTPTimeout(conf.Services.Embedding.Timeout)
			b.Embed = func(ctx context.Context, wav string) ([]float64, error) {
				return h.Embed(ctx, url, wav)
			}
		} else {
			log.Warn("services.embedding.url unset, profiles get no embedding")
		}

		built, err := b.BuildDir(cmd.Context(), dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "built %d personas into %s\n", len(built), conf.Personas.Path)
		return nil
	},
}

var personasShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one persona profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, _, err := setup()
		if err != nil {
			return err
		}
		store, err := persona.Open(conf.Personas)
		if err != nil {
			return err
		}
		defer store.Close()

		p, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

var personasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persona ids",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		conf, _, err := setup()
		if err != nil {
			return err
		}
		store, err := persona.Open(conf.Personas)
		if err != nil {
			return err
		}
		defer store.Close()

		ids, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func init() {
	personasBuildCmd.Flags().StringVar(&buildDir, "dir", "", "directory of reference recordings (default: personas.audio_dir)")
	personasCmd.AddCommand(personasBuildCmd, personasShowCmd, personasListCmd)
	rootCmd.AddCommand(personasCmd)
}
