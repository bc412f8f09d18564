package records

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ibeckermayer/sentigraph/internal/archive"
	"github.com/ibeckermayer/sentigraph/internal/logging"
)

// IngestReport summarizes an ingestion run.
type IngestReport struct {
	Sources       int
	Read          int // valid records read, duplicates included
	Replaced      int // records overwritten by a later copy
	Warnings      int
	Skipped       []*archive.MalformedRecordError
	FailedSources []*archive.SourceError
}

// Ingest reads sources in the given order (oldest first) and returns the
// frozen store. Malformed records and broken sources are recorded in the
// report; only context cancellation aborts the run.
func Ingest(ctx context.Context, sources []archive.Source, log logging.Logger) (*Store, *IngestReport, error) {
	log = logging.Component(log, "ingest")
	b := NewBuilder()
	report := &IngestReport{}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		log.WithField("source", src.Name).Info("Reading source")
		r, err := archive.Open(src.Path)
		if err != nil {
			recordSourceFailure(report, log, err)
			continue
		}
		err = b.Consume(r, report, log)
		r.Close()
		if err != nil {
			recordSourceFailure(report, log, err)
		}
	}

	store := b.Freeze()
	log.WithFields(logging.Fields{
		"records":  store.Len(),
		"replaced": report.Replaced,
		"skipped":  len(report.Skipped),
		"failed":   len(report.FailedSources),
	}).Infof("%d records read", store.Len())

	return store, report, nil
}

// Consume drains one reader into the builder. It returns a
// *archive.SourceError if the stream breaks; records read before the break
// are kept.
func (b *Builder) Consume(r *archive.Reader, report *IngestReport, log logging.Logger) error {
	report.Sources++
	for {
		raw, index, err := r.Next()
		if err == io.EOF {
			return nil
		}

		var malformed *archive.MalformedRecordError
		switch {
		case errors.As(err, &malformed):
			report.Skipped = append(report.Skipped, malformed)
			log.WithError(err).Warn("Skipping malformed record")
			continue
		case err != nil:
			return err
		}

		rec, warn, err := archive.ToRecord(raw, r.Name(), index)
		if err != nil {
			if errors.As(err, &malformed) {
				report.Skipped = append(report.Skipped, malformed)
				log.WithError(err).Warn("Skipping malformed record")
				continue
			}
			return fmt.Errorf("failed to convert record: %w", err)
		}
		if warn != "" {
			report.Warnings++
			log.WithField("id", rec.ID).Debug(warn)
		}

		report.Read++
		if b.Add(rec) {
			report.Replaced++
		}
	}
}

func recordSourceFailure(report *IngestReport, log logging.Logger, err error) {
	var srcErr *archive.SourceError
	if !errors.As(err, &srcErr) {
		srcErr = &archive.SourceError{Cause: err}
	}
	report.FailedSources = append(report.FailedSources, srcErr)
	log.WithError(err).Error("Source ingestion aborted")
}
