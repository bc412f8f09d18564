package archive

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/ibeckermayer/sentigraph/internal/types"
)

// Reader streams raw posts out of a concatenated-JSON archive, one object
// at a time. Objects may span many lines and may be glued together ("}{").
// A Reader is finite and cannot be restarted; reopen the source instead.
type Reader struct {
	name   string
	dec    *json.Decoder
	closer io.Closer
	index  int
	failed bool
}

// Open opens an archive file for streaming.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Path: path, Cause: err}
	}
	r := NewReader(f, path)
	r.closer = f
	return r, nil
}

// NewReader wraps r. name is used in error reports.
func NewReader(r io.Reader, name string) *Reader {
	return &Reader{
		name: name,
		dec:  json.NewDecoder(bufio.NewReader(r)),
	}
}

// Next returns the next raw post, or io.EOF when the stream is exhausted.
//
// A *MalformedRecordError means the object was well-formed JSON but not a
// valid post; the caller may keep calling Next. A *SourceError means the
// stream itself is broken and every later call returns the same failure.
func (r *Reader) Next() (types.RawPost, int, error) {
	if r.failed {
		return types.RawPost{}, r.index, &SourceError{Path: r.name, Cause: errors.New("stream already failed")}
	}

	var raw json.RawMessage
	if err := r.dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return types.RawPost{}, r.index, io.EOF
		}
		r.failed = true
		return types.RawPost{}, r.index, &SourceError{Path: r.name, Cause: err}
	}

	index := r.index
	r.index++

	var post types.RawPost
	if err := json.Unmarshal(raw, &post); err != nil {
		return types.RawPost{}, index, &MalformedRecordError{
			Source: r.name,
			Index:  index,
			Reason: "not a post object",
			Cause:  err,
		}
	}
	return post, index, nil
}

// Name returns the source name given at construction.
func (r *Reader) Name() string { return r.name }

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
