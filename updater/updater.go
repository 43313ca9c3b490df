// Package updater runs one full update cycle: discover the public IPv4
// address, locate the hostname's A record, create or update it, then
// check propagation.
package updater

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"cfupdater/ddns"
	"cfupdater/log"
	"cfupdater/sources"

	"go.uber.org/zap"
)

// Verifier is the advisory post-write propagation check.
type Verifier interface {
	Verify(ctx context.Context, name string, expected netip.Addr) ddns.VerifyOutcome
}

// Outcome records what a single cycle did. It is logged and discarded;
// nothing carries over to the next cycle.
type Outcome struct {
	IP       netip.Addr
	RecordID string
	Created  bool
	Applied  bool
	Verify   ddns.VerifyOutcome
}

type Updater struct {
	Source   sources.Interface
	Provider ddns.Interface
	Verifier Verifier
	Record   string
}

// Run executes one cycle. The returned error means discovery, lookup or
// write failed; a verification mismatch alone never fails the cycle.
func (u *Updater) Run(ctx context.Context) (Outcome, error) {
	ctx = log.SWith(ctx, log.Stage("update"), "domain", u.Record)
	cycleTime := log.Elapsed("cycle_time")

	var out Outcome

	ip, err := u.Source.Lookup(ctx)
	if err != nil {
		// Without a known address nothing can be written safely.
		log.S(ctx).Errorw("failed discover public IP", zap.Error(err))
		return out, fmt.Errorf("failed discover public IP: %w", err)
	}
	out.IP = ip
	log.S(ctx).Infow("discovered public IP", "ip", ip.String(), "source_type", u.Source.Typename())

	record, err := u.Provider.FindRecord(ctx, u.Record)
	switch {
	case err == nil:
		out.RecordID = record.ID
		log.S(ctx).Infow("found record", "id", record.ID, "old_ip", record.Content)
	case errors.Is(err, ddns.ErrRecordNotFound):
		out.Created = true
		log.S(ctx).Infow("no record found, will create")
	default:
		// Ambiguous zone state. Creating blindly could leave a duplicate.
		log.S(ctx).Errorw("failed find record", zap.Error(err))
		return out, fmt.Errorf("failed find record: %w", err)
	}

	written, err := u.Provider.WriteRecord(ctx, ddns.Record{
		ID:      out.RecordID,
		Type:    "A",
		Name:    u.Record,
		Content: ip.String(),
	})
	if err != nil {
		log.S(ctx).Errorw("failed write record", zap.Error(err))
		return out, fmt.Errorf("failed write record: %w", err)
	}
	out.Applied = true
	out.RecordID = written.ID
	log.S(ctx).Infow("record written", "id", written.ID, "ip", ip.String(), "created", out.Created)

	out.Verify = u.Verifier.Verify(ctx, u.Record, ip)
	if out.Verify == ddns.VerifyMatched {
		log.S(ctx).Infow("propagation verified", "ip", ip.String())
	} else {
		// Advisory only. Propagation can lag well past the grace period.
		log.S(ctx).Warnw("propagation not confirmed", "result", out.Verify.String())
	}

	log.S(ctx).Infow("cycle complete", cycleTime)

	return out, nil
}
