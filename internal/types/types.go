package types

import "time"

// DateLayout is the calendar-date format used for keys, file names and reports.
const DateLayout = "2006-01-02"

// Date is a calendar day in YYYY-MM-DD form. Lexical order is chronological order.
type Date string

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", err
	}
	return DateOf(t), nil
}

func (d Date) String() string { return string(d) }

// RawPost is one archived post as written by the fetcher (X API v1.1 shape).
// Pointer fields distinguish "absent" from zero values during validation.
type RawPost struct {
	IDStr         *string    `json:"id_str"`
	CreatedAt     *string    `json:"created_at"`
	User          *RawUser   `json:"user"`
	FullText      *string    `json:"full_text"`
	Text          *string    `json:"text"`
	RetweetCount  *int       `json:"retweet_count"`
	FavoriteCount *int       `json:"favorite_count"`
	IsQuoteStatus bool       `json:"is_quote_status"`
	QuotedStatus  *RawQuoted `json:"quoted_status"`
	Entities      *struct {
		Hashtags []struct {
			Text string `json:"text"`
		} `json:"hashtags"`
	} `json:"entities"`
}

type RawUser struct {
	Name string `json:"name"`
}

type RawQuoted struct {
	IDStr    string  `json:"id_str"`
	User     RawUser `json:"user"`
	FullText string  `json:"full_text"`
	Text     string  `json:"text"`
}

// Record is one ingested post
type Record struct {
	ID         string            `json:"id"`
	Date       Date              `json:"date"`
	Author     string            `json:"author"`
	Text       string            `json:"text"`
	Shares     int               `json:"shares"`
	Favorites  int               `json:"favorites"`
	Tags       []string          `json:"tags,omitempty"`
	Sentiment  float64           `json:"sentiment"`
	Referenced *ReferencedRecord `json:"referenced,omitempty"`
}

// ReferencedRecord is the post quoted by a Record. Its sentiment is never scored.
type ReferencedRecord struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

// Influence is shares plus favorites.
func (r Record) Influence() int {
	return r.Shares + r.Favorites
}

// Weight is the sharing weight used for weighted averages; never zero.
func (r Record) Weight() float64 {
	return float64(r.Influence() + 1)
}

// IsReference reports whether the record quotes another record.
func (r Record) IsReference() bool {
	return r.Referenced != nil
}

// DailyAggregate holds the sentiment statistics of one calendar day
type DailyAggregate struct {
	Date           Date    `json:"date"`
	Mean           float64 `json:"mean"`
	StdDev         float64 `json:"std_dev"`
	WeightedMean   float64 `json:"weighted_mean"`
	WeightedStdDev float64 `json:"weighted_std_dev"`
	Count          int     `json:"count"`
}

// Correlation relates influence to sentiment across all days.
type Correlation struct {
	AvgInfluence float64 `json:"avg_influence"`
	Covariance   float64 `json:"covariance"`
	Correlation  float64 `json:"correlation"`
	Count        int     `json:"count"`
	Defined      bool    `json:"defined"`
}
