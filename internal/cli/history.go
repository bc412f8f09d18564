package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/sentigraph/internal/report"
	"github.com/ibeckermayer/sentigraph/internal/stats"
	"github.com/ibeckermayer/sentigraph/internal/store"
	"github.com/ibeckermayer/sentigraph/internal/types"
)

type historyOptions struct {
	limit    int
	runID    string
	recordID string
	records  bool
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history [YYYY-MM-DD]",
		Short: "Show past runs, or how a date's statistics changed across runs",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Output.DBPath == "" {
				return fmt.Errorf("run history is disabled; set output.db_path")
			}

			db, err := store.New(cfg.Output.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			switch {
			case opts.runID != "":
				return showRun(out, db, opts.runID)
			case opts.recordID != "":
				return showRecord(out, db, opts.recordID)
			case len(args) == 1:
				date, err := types.ParseDate(args[0])
				if err != nil {
					return fmt.Errorf("invalid date %q: %w", args[0], err)
				}
				if err := showDay(out, db, date); err != nil {
					return err
				}
				if opts.records {
					return showDayRecords(out, db, date)
				}
				return nil
			default:
				return listRuns(out, db, opts.limit)
			}
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.limit, "limit", "n", 20, "number of runs to list")
	f.StringVar(&opts.runID, "run", "", "show the statistics saved by one run")
	f.StringVar(&opts.recordID, "record", "", "show one stored record")
	f.BoolVar(&opts.records, "records", false, "with a date, also list the records stored for it")
	cmd.MarkFlagsMutuallyExclusive("run", "record")
	return cmd
}

func listRuns(out io.Writer, db *store.Store, limit int) error {
	runs, err := db.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}
	for _, r := range runs {
		status := "unfinished"
		if !r.FinishedAt.IsZero() {
			status = fmt.Sprintf("%d records, %d skipped", r.Records, r.Skipped)
		}
		fmt.Fprintf(out, "%s  %s  %-9s  %d sources  %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.ID, r.Scorer, len(r.Sources), status)
	}

	n, err := db.RecordCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d records stored\n", n)
	return nil
}

func showRun(out io.Writer, db *store.Store, runID string) error {
	res, err := db.GetRun(runID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no run %s", runID)
	}
	if err != nil {
		return err
	}

	r := res.Run
	fmt.Fprintf(out, "Run %s  %s  scorer %s\n", r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Scorer)
	fmt.Fprintf(out, "Sources: %s\n", strings.Join(r.Sources, ", "))

	saved := stats.Result{ExcludeNeutral: r.ExcludeNeutral, Days: res.Days, Global: res.Correlation}
	fmt.Fprintln(out, report.DailyTable(report.DailyRows(saved)))
	fmt.Fprintln(out, report.GlobalTable(report.GlobalRow(res.Correlation)))
	return nil
}

func showDay(out io.Writer, db *store.Store, date types.Date) error {
	history, err := db.DailyHistory(date)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintf(out, "No runs covered %s\n", date)
		return nil
	}
	for _, h := range history {
		fmt.Fprintf(out, "%s  %s  mean %s  weighted %s  n=%d\n",
			h.StartedAt.Local().Format("2006-01-02 15:04"), h.RunID,
			report.Format(h.Mean), report.Format(h.WeightedMean), h.Count)
	}
	return nil
}

func showDayRecords(out io.Writer, db *store.Store, date types.Date) error {
	recs, err := db.RecordsByDate(date)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d records stored for %s\n", len(recs), date)
	for _, r := range recs {
		fmt.Fprintf(out, "%s  %-15s  %6s  %s\n", r.ID, r.Author, report.Format(r.Sentiment), truncate(r.Text, 60))
	}
	return nil
}

func showRecord(out io.Writer, db *store.Store, id string) error {
	r, err := db.GetRecord(id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no record %s", id)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s  %s  by %s\n", r.ID, r.Date, r.Author)
	fmt.Fprintf(out, "sentiment %s  influence %d\n", report.Format(r.Sentiment), r.Influence())
	fmt.Fprintln(out, r.Text)
	if r.Referenced != nil {
		fmt.Fprintf(out, "quotes %s by %s: %s\n", r.Referenced.ID, r.Referenced.Author, r.Referenced.Text)
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
