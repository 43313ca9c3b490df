package ddns

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"cfupdater/common"
	"cfupdater/log"

	"go.uber.org/zap"
)

// VerifyOutcome classifies the post-write resolution check.
type VerifyOutcome int

const (
	VerifySkipped VerifyOutcome = iota
	VerifyMatched
	VerifyMismatched
	VerifyNoResolution
)

func (o VerifyOutcome) String() string {
	switch o {
	case VerifySkipped:
		return "skipped"
	case VerifyMatched:
		return "matched"
	case VerifyMismatched:
		return "mismatched"
	case VerifyNoResolution:
		return "no-resolution"
	default:
		return fmt.Sprintf("unknown<%d>", int(o))
	}
}

const defaultGrace = 5 * time.Second

// hostResolver matches *net.Resolver.
type hostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Verifier checks whether a freshly written record is visible to
// resolvers. The outcome is advisory: propagation regularly outlasts the
// grace period and that is not an error.
type Verifier struct {
	resolver hostResolver
	clock    common.Clock
	grace    time.Duration
}

func NewVerifier() *Verifier {
	return &Verifier{
		resolver: net.DefaultResolver,
		clock:    common.RealClock(),
		grace:    defaultGrace,
	}
}

func (v *Verifier) Verify(ctx context.Context, name string, expected netip.Addr) VerifyOutcome {
	ctx = log.SWith(ctx,
		"action", "verify",
		"domain", name,
		"expected", expected.String())

	// Give propagation a head start before asking.
	if v.grace > 0 {
		select {
		case <-v.clock.After(v.grace):
		case <-ctx.Done():
			log.S(ctx).Warnw("verify interrupted", zap.Error(ctx.Err()))
			return VerifyNoResolution
		}
	}

	addrs, err := v.resolver.LookupHost(ctx, name)
	if err != nil {
		log.S(ctx).Warnw("resolution failed", zap.Error(err))
		return VerifyNoResolution
	}

	for _, addr := range addrs {
		resolved, err := netip.ParseAddr(addr)
		if err != nil {
			continue
		}
		if resolved.Unmap() == expected {
			log.S(ctx).Debugw("record resolves to expected address")
			return VerifyMatched
		}
	}

	log.S(ctx).Debugw("record resolves elsewhere", "resolved", addrs)
	return VerifyMismatched
}
