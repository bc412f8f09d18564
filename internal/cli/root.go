// Package cli is the sentigraph command tree.
package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/sentigraph/internal/app"
	"github.com/ibeckermayer/sentigraph/internal/config"
	"github.com/ibeckermayer/sentigraph/internal/logging"
)

// rootOptions holds the persistent flags shared by every command
type rootOptions struct {
	configPath string
	verbose    bool
	logFormat  string
	cacheDir   string
}

// NewRootCmd returns the root command for the sentigraph CLI
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "sentigraph",
		Short:         "Sentiment statistics and quote graphs from social post archives",
		Long:          "sentigraph reads raw post archives, scores each post's sentiment, prints per-day statistics and writes one quote graph per day.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			fmt.Fprintln(cmd.OutOrStdout(), "\nTip: run 'sentigraph analyze --interactive' to pick archive files.")
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: text|json (default from config)")
	rootCmd.PersistentFlags().StringVar(&opts.cacheDir, "cache-dir", "", "step cache directory (default is the user cache dir)")

	rootCmd.AddCommand(newAnalyzeCmd(opts))
	rootCmd.AddCommand(newSourcesCmd(opts))
	rootCmd.AddCommand(newScheduleCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))

	return rootCmd
}

// loadConfig reads the config file. A missing default file yields the
// defaults; a missing explicit --config file is an error. The returned path
// is empty when no file was read.
func (o *rootOptions) loadConfig() (*config.Config, string, error) {
	path := o.configPath
	explicit := path != ""
	if !explicit {
		p, err := config.ConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return config.Default(), "", nil
		}
		return nil, "", fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, path, nil
}

// pipelineOptions returns the app options shared by the commands that run
// the pipeline.
func (o *rootOptions) pipelineOptions(cmd *cobra.Command, configPath string) []app.Option {
	opts := []app.Option{app.WithOutput(cmd.OutOrStdout()), app.WithConfigPath(configPath)}
	if o.cacheDir != "" {
		opts = append(opts, app.WithCacheDir(o.cacheDir))
	}
	return opts
}

// logger builds the logger from config and flags.
func (o *rootOptions) logger(cfg *config.Config) *logrus.Logger {
	level := cfg.Logging.Level
	if o.verbose {
		level = "debug"
	}
	format := cfg.Logging.Format
	if o.logFormat != "" {
		format = o.logFormat
	}
	return logging.New(level, format)
}
