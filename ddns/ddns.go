// Package ddns talks to the Cloudflare DNS API for a single zone: locate
// the A record for a hostname, create or update it, and check that the
// change became visible to resolvers.
package ddns

import (
	"context"
	"errors"
)

// Record is one provider-side DNS entry. ID is the provider's opaque
// handle; it is empty for records that do not exist yet.
type Record struct {
	ID      string
	Type    string
	Name    string
	Content string
}

// ErrRecordNotFound reports that the zone holds no matching record. The
// workflow routes it to create mode; it is not a failure.
var ErrRecordNotFound = errors.New("record not found")

type Interface interface {
	// FindRecord returns the first A record whose name exactly matches,
	// or ErrRecordNotFound.
	FindRecord(ctx context.Context, name string) (Record, error)
	// WriteRecord creates r when r.ID is empty, updates it otherwise.
	WriteRecord(ctx context.Context, r Record) (Record, error)
}
