// Package app wires the analysis pipeline: archive sources in, statistics,
// graphs and reports out.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/browser"

	"github.com/ibeckermayer/sentigraph/internal/archive"
	"github.com/ibeckermayer/sentigraph/internal/config"
	"github.com/ibeckermayer/sentigraph/internal/logging"
	"github.com/ibeckermayer/sentigraph/internal/report"
	"github.com/ibeckermayer/sentigraph/internal/sentiment"
	"github.com/ibeckermayer/sentigraph/internal/store"
)

// Output file names inside the output directory
const (
	ReportFile = "report.html"
	TagsFile   = "tags.json"
)

// maxReportTags caps the hashtags listed in the HTML report.
const maxReportTags = 50

// ErrNoSources is returned when no archive file is selected.
var ErrNoSources = errors.New("no archive sources selected")

// Pipeline holds the application state.
type Pipeline struct {
	mu         sync.RWMutex
	configPath string // empty when the config did not come from a file

	// Mutable fields - use getSnapshot() for concurrent access.
	config *config.Config
	scorer sentiment.Scorer

	db       *store.Store // nil when run history is disabled
	html     *report.HTMLBuilder
	cacheDir string
	out      io.Writer
	log      logging.Logger
}

// snapshot holds fields that may be replaced by ReloadConfig.
// Use getSnapshot() to obtain a consistent, point-in-time copy.
type snapshot struct {
	config *config.Config
	scorer sentiment.Scorer
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (p *Pipeline) getSnapshot() snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return snapshot{
		config: p.config,
		scorer: p.scorer,
	}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOutput sets where the terminal report is printed (default stdout).
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

// WithCacheDir overrides the step cache directory.
func WithCacheDir(dir string) Option {
	return func(p *Pipeline) { p.cacheDir = dir }
}

// WithConfigPath records the file the config was loaded from so
// ReloadConfig can read it again.
func WithConfigPath(path string) Option {
	return func(p *Pipeline) { p.configPath = path }
}

// New creates a Pipeline. A nil scorer is built from the analysis config.
// When output.db_path is set the run history database is opened and owned
// by the Pipeline until Close.
func New(cfg *config.Config, scorer sentiment.Scorer, log logging.Logger, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		config: cfg,
		scorer: scorer,
		out:    os.Stdout,
		log:    log,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.cacheDir == "" {
		dir, err := config.CacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cache dir: %w", err)
		}
		p.cacheDir = dir
	}

	if p.scorer == nil {
		s, err := sentiment.New(cfg.Analysis, p.cacheDir)
		if err != nil {
			return nil, err
		}
		p.scorer = s
	}

	html, err := report.NewHTML(maxReportTags)
	if err != nil {
		return nil, err
	}
	p.html = html

	if cfg.Output.DBPath != "" {
		db, err := store.New(cfg.Output.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
		p.db = db
	}

	return p, nil
}

// Close releases the run history database.
func (p *Pipeline) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Config returns the current configuration.
func (p *Pipeline) Config() *config.Config {
	return p.getSnapshot().config
}

// Sources lists the archive files of the configured directory, oldest first.
func (p *Pipeline) Sources() ([]archive.Source, error) {
	cfg := p.getSnapshot().config
	return archive.Discover(cfg.Archives.Dir, cfg.Archives.Pattern)
}

// ReportPath returns the path of the HTML report.
func (p *Pipeline) ReportPath() string {
	return filepath.Join(p.getSnapshot().config.Output.Dir, ReportFile)
}

// ViewLastReport opens the most recent HTML report.
func (p *Pipeline) ViewLastReport() error {
	path := p.ReportPath()
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no report found: %w", err)
	}

	p.log.WithField("path", path).Info("Opening report")
	return browser.OpenFile(path)
}

// ReloadConfig reloads the configuration from disk and rebuilds the scorer.
// Run history settings take effect on the next New.
func (p *Pipeline) ReloadConfig() error {
	if p.configPath == "" {
		return fmt.Errorf("config was not loaded from a file")
	}
	cfg, err := config.LoadFrom(p.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	scorer, err := sentiment.New(cfg.Analysis, p.cacheDir)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.config = cfg
	p.scorer = scorer
	p.mu.Unlock()

	p.log.Info("Configuration reloaded")
	return nil
}

// Job returns the pipeline as a scheduler job analyzing every source.
func (p *Pipeline) Job() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := p.Run(ctx, Selection{})
		return err
	}
}
