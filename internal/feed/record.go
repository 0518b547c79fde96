// Package feed keeps live, deduplicated, newest-first views of server
// records (messages, alerts) in sync with a bulk read plus a push stream.
package feed

import (
	"encoding/json"
	"time"
)

// Record is one row of a feed.
type Record interface {
	// Key is the dedup key, stable across bulk reads and pushes.
	Key() string
	// Timestamp is the sort key; views are newest first.
	Timestamp() time.Time
	// Complete reports whether the record carries every joined field.
	// A complete record is never replaced by an incomplete one.
	Complete() bool
}

// Decoder returns a decoder for records whose pointer type implements Record,
// e.g. Decoder[model.Message]().
func Decoder[M any, P interface {
	*M
	Record
}]() func(json.RawMessage) (P, error) {
	return func(raw json.RawMessage) (P, error) {
		p := P(new(M))
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, err
		}
		return p, nil
	}
}
