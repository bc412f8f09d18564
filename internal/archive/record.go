package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/ibeckermayer/sentigraph/internal/types"
)

// timestamp layouts accepted for created_at, most common first
var timestampLayouts = []string{
	time.RubyDate, // "Mon Feb 15 23:55:07 +0000 2021", the API v1.1 form
	time.RFC3339,
	"2006-01-02 15:04:05",
	types.DateLayout,
}

// ParseCreatedAt parses an archived creation timestamp.
func ParseCreatedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// CleanText drops URL tokens and collapses whitespace to single spaces.
func CleanText(text string) string {
	fields := strings.Fields(text)
	kept := fields[:0]
	for _, f := range fields {
		if isURL(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func isURL(token string) bool {
	lower := strings.ToLower(token)
	return strings.HasPrefix(lower, "https:") || strings.HasPrefix(lower, "http:")
}

// ToRecord validates a raw post and converts it into a Record with cleaned
// text. Sentiment is left at zero; scoring happens downstream.
//
// A quote flag without the quoted payload does not make the record
// malformed: the reference is dropped and warn is set.
func ToRecord(raw types.RawPost, source string, index int) (rec types.Record, warn string, err error) {
	malformed := func(id, reason string, cause error) error {
		return &MalformedRecordError{Source: source, Index: index, ID: id, Reason: reason, Cause: cause}
	}

	if raw.IDStr == nil || strings.TrimSpace(*raw.IDStr) == "" {
		return types.Record{}, "", malformed("", "missing id_str", nil)
	}
	id := *raw.IDStr

	text := raw.FullText
	if text == nil {
		text = raw.Text
	}
	if text == nil {
		return types.Record{}, "", malformed(id, "missing full_text", nil)
	}

	if raw.CreatedAt == nil {
		return types.Record{}, "", malformed(id, "missing created_at", nil)
	}
	createdAt, err := ParseCreatedAt(*raw.CreatedAt)
	if err != nil {
		return types.Record{}, "", malformed(id, "bad created_at", err)
	}

	if raw.RetweetCount == nil {
		return types.Record{}, "", malformed(id, "missing retweet_count", nil)
	}
	if raw.FavoriteCount == nil {
		return types.Record{}, "", malformed(id, "missing favorite_count", nil)
	}
	if *raw.RetweetCount < 0 || *raw.FavoriteCount < 0 {
		return types.Record{}, "", malformed(id, "negative counts", nil)
	}

	rec = types.Record{
		ID:        id,
		Date:      types.DateOf(createdAt),
		Text:      CleanText(*text),
		Shares:    *raw.RetweetCount,
		Favorites: *raw.FavoriteCount,
	}
	if raw.User != nil {
		rec.Author = raw.User.Name
	}
	if raw.Entities != nil {
		for _, h := range raw.Entities.Hashtags {
			if h.Text != "" {
				rec.Tags = append(rec.Tags, h.Text)
			}
		}
	}

	if raw.IsQuoteStatus {
		q := raw.QuotedStatus
		if q == nil || q.IDStr == "" {
			warn = "quote flag set without quoted_status; reference dropped"
		} else {
			quoted := q.FullText
			if quoted == "" {
				quoted = q.Text
			}
			rec.Referenced = &types.ReferencedRecord{
				ID:     q.IDStr,
				Author: q.User.Name,
				Text:   CleanText(quoted),
			}
		}
	}

	return rec, warn, nil
}
