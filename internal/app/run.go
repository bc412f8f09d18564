package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/sentigraph/internal/annotations"
	"github.com/ibeckermayer/sentigraph/internal/archive"
	"github.com/ibeckermayer/sentigraph/internal/config"
	"github.com/ibeckermayer/sentigraph/internal/graph"
	"github.com/ibeckermayer/sentigraph/internal/logging"
	"github.com/ibeckermayer/sentigraph/internal/records"
	"github.com/ibeckermayer/sentigraph/internal/report"
	"github.com/ibeckermayer/sentigraph/internal/sentiment"
	"github.com/ibeckermayer/sentigraph/internal/stats"
	"github.com/ibeckermayer/sentigraph/internal/store"
	"github.com/ibeckermayer/sentigraph/internal/tags"
)

// Selection narrows a run. The zero value analyzes every discovered source
// with the configured neutral handling.
type Selection struct {
	Include        []string // source names or paths; nil means all
	Exclude        []string
	ExcludeNeutral *bool // overrides analysis.exclude_neutral when set
}

// Result describes a finished run
type Result struct {
	RunID       string
	Sources     []archive.Source
	Ingest      *records.IngestReport
	Records     *records.Store
	Neutral     int
	Stats       stats.Result
	Graphs      []graph.Graph
	GraphFiles  []string
	Tags        []tags.Count
	Annotations *annotations.File
	ReportPath  string
	TagsPath    string
}

// keepStepOutputs bounds the cached outputs kept per step.
const keepStepOutputs = 20

// ingestSummary is the cached output of the ingest step
type ingestSummary struct {
	Sources       []string `json:"sources"`
	Read          int      `json:"read"`
	Replaced      int      `json:"replaced"`
	Records       int      `json:"records"`
	Skipped       []string `json:"skipped,omitempty"`
	FailedSources []string `json:"failed_sources,omitempty"`
}

// Run performs the full discover -> ingest -> score -> aggregate/graph ->
// report flow. The record store lives only for the duration of the call.
func (p *Pipeline) Run(ctx context.Context, sel Selection) (*Result, error) {
	s := p.getSnapshot()
	cfg := s.config
	log := logging.Component(p.log, "pipeline")

	excludeNeutral := cfg.Analysis.ExcludeNeutral
	if sel.ExcludeNeutral != nil {
		excludeNeutral = *sel.ExcludeNeutral
	}

	// Step 1: Pick sources
	sources, err := archive.Discover(cfg.Archives.Dir, cfg.Archives.Pattern)
	if err != nil {
		return nil, err
	}
	if sel.Include != nil {
		sources = archive.Select(sources, sel.Include)
	}
	sources = archive.Exclude(sources, sel.Exclude)
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	log.WithField("sources", len(sources)).Info("Reading archive sources")

	res := &Result{Sources: sources}
	started := time.Now()

	// Step 2: Ingest, deduplicated by record ID
	recs, ingest, err := records.Ingest(ctx, sources, p.log)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest sources: %w", err)
	}
	res.Ingest = ingest
	p.cacheStep(store.StepIngest, summarize(ingest, sources, recs), log)

	if excludeNeutral {
		log.Info("Neutral records will be discarded from statistics")
	} else {
		log.Info("Neutral records will be kept in statistics")
	}

	// Step 3: Score sentiment
	scored, err := sentiment.Annotate(ctx, recs, s.scorer, cfg.Analysis.BatchSize, p.log)
	if err != nil {
		return nil, fmt.Errorf("failed to score records: %w", err)
	}
	res.Records = scored
	for _, r := range scored.All() {
		if r.Sentiment == sentiment.Neutral {
			res.Neutral++
		}
	}
	p.cacheStep(store.StepScores, scored.All(), log)

	// Step 4: Statistics and graphs over the frozen store
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res.Stats, err = stats.AggregateParallel(gctx, scored, excludeNeutral)
		return err
	})
	g.Go(func() error {
		var err error
		res.Graphs, err = graph.BuildAll(gctx, scored)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, empty := range res.Stats.Empty {
		log.WithField("date", empty.Date).Warn(empty.Error())
	}
	if res.Stats.GlobalErr != nil {
		log.WithError(res.Stats.GlobalErr).Warn("Correlation is undefined")
	}
	p.cacheStep(store.StepAggregates, res.Stats.Days, log)

	// Step 5: Write outputs
	if err := p.writeOutputs(cfg, res, log); err != nil {
		return nil, err
	}
	p.cacheStep(store.StepGraphs, res.GraphFiles, log)

	// Step 6: Record the run
	if p.db != nil {
		runID, err := p.saveRun(cfg, excludeNeutral, started, res)
		if err != nil {
			return nil, fmt.Errorf("failed to save run: %w", err)
		}
		res.RunID = runID
	}

	data := report.Data{
		RunID:       res.RunID,
		GeneratedAt: time.Now(),
		Sources:     archive.Names(sources),
		Result:      res.Stats,
		Ingest:      ingest,
		Records:     scored.Len(),
		Neutral:     res.Neutral,
		Annotations: res.Annotations,
		Tags:        res.Tags,
		GraphFiles:  res.GraphFiles,
	}
	if err := report.WriteTerminal(p.out, data); err != nil {
		return nil, fmt.Errorf("failed to print report: %w", err)
	}
	if cfg.Output.HTML {
		res.ReportPath = filepath.Join(cfg.Output.Dir, ReportFile)
		if err := p.html.Write(res.ReportPath, data); err != nil {
			return nil, fmt.Errorf("failed to write report: %w", err)
		}
		log.WithField("path", res.ReportPath).Info("Report saved")
	}

	return res, nil
}

func (p *Pipeline) writeOutputs(cfg *config.Config, res *Result, log logging.Logger) error {
	files, err := graph.WriteAll(cfg.GraphPath(), res.Graphs)
	if err != nil {
		return fmt.Errorf("failed to write graphs: %w", err)
	}
	res.GraphFiles = files
	log.WithFields(logging.Fields{"graphs": len(files), "dir": cfg.GraphPath()}).Info("Graphs saved")

	res.Tags = tags.Counts(res.Records)
	res.TagsPath = filepath.Join(cfg.Output.Dir, TagsFile)
	if err := tags.Write(res.TagsPath, res.Tags); err != nil {
		return fmt.Errorf("failed to write tags: %w", err)
	}

	if path := annotationsPath(cfg); path != "" {
		notes, err := annotations.Load(path)
		switch {
		case err == nil:
			res.Annotations = notes
		case os.IsNotExist(err):
			log.WithField("path", path).Debug("No annotations file")
		default:
			log.WithError(err).Warn("Failed to read annotations")
		}
	}
	return nil
}

func (p *Pipeline) saveRun(cfg *config.Config, excludeNeutral bool, started time.Time, res *Result) (string, error) {
	run := &store.Run{
		StartedAt:      started,
		Scorer:         cfg.Analysis.Scorer,
		ExcludeNeutral: excludeNeutral,
		Sources:        archive.Names(res.Sources),
	}
	if err := p.db.BeginRun(run); err != nil {
		return "", err
	}
	if err := p.db.SaveRecords(run.ID, res.Records.All()); err != nil {
		return "", err
	}
	if err := p.db.SaveAggregates(run.ID, res.Stats.Days, res.Stats.Global); err != nil {
		return "", err
	}
	if err := p.db.FinishRun(run.ID, res.Records.Len(), len(res.Ingest.Skipped)); err != nil {
		return "", err
	}
	return run.ID, nil
}

// cacheStep saves a step's output for debugging; failures are only logged.
func (p *Pipeline) cacheStep(step store.StepName, data any, log logging.Logger) {
	if p.cacheDir == "" {
		return
	}
	path, err := store.SaveStepOutput(p.cacheDir, step, data)
	if err != nil {
		log.WithError(err).WithField("step", step).Warn("Failed to cache step output")
		return
	}
	log.WithFields(logging.Fields{"step": step, "path": path}).Debug("Cached step output")

	if _, err := store.PruneStepOutputs(p.cacheDir, step, keepStepOutputs); err != nil {
		log.WithError(err).WithField("step", step).Warn("Failed to prune step cache")
	}
}

// annotationsPath resolves output.annotations against the archive dir.
func annotationsPath(cfg *config.Config) string {
	path := cfg.Output.Annotations
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cfg.Archives.Dir, path)
}

func summarize(ingest *records.IngestReport, sources []archive.Source, recs *records.Store) ingestSummary {
	sum := ingestSummary{
		Sources:  archive.Names(sources),
		Read:     ingest.Read,
		Replaced: ingest.Replaced,
		Records:  recs.Len(),
	}
	for _, m := range ingest.Skipped {
		sum.Skipped = append(sum.Skipped, m.Error())
	}
	for _, f := range ingest.FailedSources {
		sum.FailedSources = append(sum.FailedSources, f.Error())
	}
	return sum
}
