package ids

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns a lexicographically sortable identifier suitable for storage keys.
// ulid.Make is monotonic within a millisecond and safe for concurrent use.
func New() string {
	return ulid.Make().String()
}

// Time extracts the creation instant encoded in an identifier produced by New.
func Time(id string) (time.Time, bool) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(parsed.Time()), true
}
