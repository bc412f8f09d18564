package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/sentigraph/internal/app"
	"github.com/ibeckermayer/sentigraph/internal/archive"
	"github.com/ibeckermayer/sentigraph/internal/config"
)

type analyzeOptions struct {
	dir            string
	pattern        string
	outDir         string
	scorer         string
	include        []string
	exclude        []string
	toggle         []int
	excludeNeutral bool
	interactive    bool
	open           bool
	noHTML         bool
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score archive files and write statistics, graphs and reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := root.loadConfig()
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)

			p, err := app.New(cfg, nil, root.logger(cfg), root.pipelineOptions(cmd, path)...)
			if err != nil {
				return err
			}
			defer p.Close()

			sel := app.Selection{Include: opts.include, Exclude: opts.exclude}
			if cmd.Flags().Changed("exclude-neutral") {
				sel.ExcludeNeutral = &opts.excludeNeutral
			}

			if opts.interactive || len(opts.toggle) > 0 {
				candidates, err := p.Sources()
				if err != nil {
					return err
				}
				mask := initialMask(candidates, opts.exclude, opts.toggle)
				picked := archive.SelectMask(candidates, mask)
				if opts.interactive {
					if picked, err = pickSources(candidates, mask); err != nil {
						return err
					}
				}
				sel.Include = archive.Names(picked)
			}

			res, err := p.Run(cmd.Context(), sel)
			if err != nil {
				return err
			}

			if opts.open && res.ReportPath != "" {
				if err := p.ViewLastReport(); err != nil {
					return fmt.Errorf("failed to open report: %w", err)
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.dir, "dir", "d", "", "archive directory (default from config)")
	f.StringVar(&opts.pattern, "pattern", "", "archive file name regexp (default from config)")
	f.StringVarP(&opts.outDir, "out", "o", "", "output directory (default from config)")
	f.StringVar(&opts.scorer, "scorer", "", "sentiment scorer: vader|anthropic (default from config)")
	f.StringSliceVar(&opts.include, "include", nil, "only analyze these archive files")
	f.StringSliceVar(&opts.exclude, "exclude", nil, "skip these archive files")
	f.IntSliceVar(&opts.toggle, "toggle", nil, "flip these positions (as numbered by sources) in the selection")
	f.BoolVar(&opts.excludeNeutral, "exclude-neutral", true, "leave records with neutral sentiment out of statistics")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "pick archive files interactively")
	f.BoolVar(&opts.open, "open", false, "open the HTML report when done")
	f.BoolVar(&opts.noHTML, "no-html", false, "skip the HTML report")
	cmd.MarkFlagsMutuallyExclusive("include", "toggle")
	cmd.MarkFlagsMutuallyExclusive("include", "interactive")

	return cmd
}

// apply overrides config values with the flags that were set.
func (o *analyzeOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if o.dir != "" {
		cfg.Archives.Dir = o.dir
	}
	if o.pattern != "" {
		cfg.Archives.Pattern = o.pattern
	}
	if o.outDir != "" {
		cfg.Output.Dir = o.outDir
	}
	if o.scorer != "" {
		cfg.Analysis.Scorer = o.scorer
	}
	if o.noHTML {
		cfg.Output.HTML = false
	}
}
