package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfg "github.com/maastricht-university/speakidol/config"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "speakidol",
	Short: "Compare a speaker's delivery against a reference persona",
	Long: `speakidol analyzes a recording, compares its prosody and language
metrics against a reference persona and writes an HTML report with
coaching tips.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		conf, err := cfg.Load(cfgFile)
		if err != nil {
			return err
		}
		b, err := conf.YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config/$CONFIG_ENV/config.yaml, then ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override pipeline.log_level")
	rootCmd.AddCommand(configCmd)
}

// setup loads the configuration and the logger every command runs with.
func setup() (*cfg.Root, *logrus.Logger, error) {
	conf, err := cfg.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		conf.Pipeline.LogLvl = logLevel
	}
	log, err := newLogger(conf.Pipeline.LogLvl, conf.Pipeline.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return conf, log, nil
}

func newLogger(level, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return log, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
