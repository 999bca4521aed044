// Package ids provides the sharable-identifier primitive.
package ids

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewSharableID returns a new ULID string (26 chars). ULIDs are opaque to
// guests but lexicographically sortable, which keeps the unique index on
// providers.sharable_id cheap to maintain.
func NewSharableID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
