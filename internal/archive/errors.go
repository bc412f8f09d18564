package archive

import "fmt"

// MalformedRecordError reports a record that lacks a required field or
// has a field of the wrong type. The record is skipped; ingestion continues.
type MalformedRecordError struct {
	Source string
	Index  int // position of the record within its source, 0-based
	ID     string
	Reason string
	Cause  error
}

func (e *MalformedRecordError) Error() string {
	id := e.ID
	if id == "" {
		id = "<unknown>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("malformed record %s (#%d in %s): %s: %v", id, e.Index, e.Source, e.Reason, e.Cause)
	}
	return fmt.Sprintf("malformed record %s (#%d in %s): %s", id, e.Index, e.Source, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return e.Cause }

// SourceError is a structural failure of a whole source: it could not be
// opened, or its stream stopped being parseable.
type SourceError struct {
	Path  string
	Cause error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("failed to read source %s: %v", e.Path, e.Cause)
}

func (e *SourceError) Unwrap() error { return e.Cause }
