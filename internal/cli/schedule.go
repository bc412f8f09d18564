package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/sentigraph/internal/app"
	"github.com/ibeckermayer/sentigraph/internal/scheduler"
)

func newScheduleCmd(root *rootOptions) *cobra.Command {
	var cronSpec, dir, outDir string
	var now bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Re-run the analysis periodically as new archive files arrive",
		Long:  "Runs the analysis on the configured cron schedule until interrupted. SIGHUP reloads the config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cronSpec != "" {
				cfg.Schedule.Cron = cronSpec
			}
			if dir != "" {
				cfg.Archives.Dir = dir
			}
			if outDir != "" {
				cfg.Output.Dir = outDir
			}
			if cfg.Schedule.Cron == "" {
				return fmt.Errorf("schedule.cron is empty")
			}

			log := root.logger(cfg)
			p, err := app.New(cfg, nil, log, root.pipelineOptions(cmd, path)...)
			if err != nil {
				return err
			}
			defer p.Close()

			sched, err := scheduler.New(cfg.Schedule.Timezone, log)
			if err != nil {
				return err
			}
			timeout, err := cfg.Schedule.JobTimeout()
			if err != nil {
				return err
			}
			if err := sched.Reconfigure(scheduler.JobAnalyze, cfg.Schedule.Cron, timeout, p.Job()); err != nil {
				return err
			}

			if now {
				if err := sched.RunNow(scheduler.JobAnalyze, p.Job()); err != nil {
					log.WithError(err).Error("Initial analysis failed")
				}
			}

			sched.Start()
			for _, job := range sched.ListJobs() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s next run: %s\n", job.Name, job.NextRun.Format("2006-01-02 15:04:05 MST"))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			for {
				select {
				case <-ctx.Done():
					<-sched.Stop().Done()
					return nil
				case <-hup:
					if err := reloadSchedule(p, sched, cronSpec); err != nil {
						log.WithError(err).Error("Failed to reload config")
					}
				}
			}
		},
	}

	f := cmd.Flags()
	f.StringVar(&cronSpec, "cron", "", "cron schedule (default from config)")
	f.StringVarP(&dir, "dir", "d", "", "archive directory (default from config)")
	f.StringVarP(&outDir, "out", "o", "", "output directory (default from config)")
	f.BoolVar(&now, "now", false, "run once immediately before waiting for the schedule")
	return cmd
}

// reloadSchedule rereads the config file and applies its schedule. A --cron
// flag keeps precedence over the file.
func reloadSchedule(p *app.Pipeline, sched *scheduler.Scheduler, cronSpec string) error {
	if err := p.ReloadConfig(); err != nil {
		return err
	}
	cfg := p.Config()
	spec := cfg.Schedule.Cron
	if cronSpec != "" {
		spec = cronSpec
	}
	timeout, err := cfg.Schedule.JobTimeout()
	if err != nil {
		return err
	}
	return sched.Reconfigure(scheduler.JobAnalyze, spec, timeout, p.Job())
}
