package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/sentigraph/internal/archive"
)

func newSourcesCmd(root *rootOptions) *cobra.Command {
	var dir, pattern string

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List archive files in ingestion order (oldest first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.loadConfig()
			if err != nil {
				return err
			}
			if dir != "" {
				cfg.Archives.Dir = dir
			}
			if pattern != "" {
				cfg.Archives.Pattern = pattern
			}

			sources, err := archive.Discover(cfg.Archives.Dir, cfg.Archives.Pattern)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No archive files in %s\n", cfg.Archives.Dir)
				return nil
			}
			for i, s := range sources {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s  %9s  %s\n",
					i+1, s.ModTime.Format("2006-01-02 15:04:05"), humanSize(s.Size), s.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "archive directory (default from config)")
	cmd.Flags().StringVar(&pattern, "pattern", "", "archive file name regexp (default from config)")
	return cmd
}
