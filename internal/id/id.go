package id

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns a lowercase ULID, sortable by creation time.
func New() string {
	return strings.ToLower(ulid.Make().String())
}

// Time extracts the creation time encoded in an id from New.
func Time(id string) (time.Time, error) {
	u, err := ulid.ParseStrict(strings.ToUpper(id))
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
