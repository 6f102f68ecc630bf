package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maastricht-university/speakidol/orchestrator"
)

var analyzeOpts struct {
	audio   string
	persona string
	coach   string
	runID   string
	json    bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [--audio] <path/to/audio.wav> --persona <id>",
	Short: "Run one analysis and print the report location",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeOpts.audio, "audio", "", "path to the recording (wav)")
	f.StringVarP(&analyzeOpts.persona, "persona", "p", "", "persona id to compare against")
	f.StringVar(&analyzeOpts.coach, "coach", "", "coach strategy (openai, gemini, local, rest, ollama)")
	f.StringVar(&analyzeOpts.runID, "run-id", "", "run identifier (default: random uuid)")
	f.BoolVar(&analyzeOpts.json, "json", false, "print the full result as JSON")
	_ = analyzeCmd.MarkFlagRequired("persona")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	in := analyzeOpts.audio
	if in == "" && len(args) > 0 {
		in = args[0]
	}
	if in == "" {
		return errors.New("usage: speakidol analyze [--audio] <path/to/audio.wav> --persona <id>")
	}

	conf, log, err := setup()
	if err != nil {
		return err
	}
	if analyzeOpts.coach != "" {
		conf.Coach.Strategy = analyzeOpts.coach
	}

	ctx := cmd.Context()
	p, err := orchestrator.Bootstrap(ctx, conf, log)
	if err != nil {
		return err
	}
	defer p.Close()

	res, err := p.Run(ctx, orchestrator.Request{
		AudioPath: in,
		PersonaID: analyzeOpts.persona,
		RunID:     analyzeOpts.runID,
	})
	if err != nil {
		return err
	}
	if analyzeOpts.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.ReportPath)
	return nil
}
