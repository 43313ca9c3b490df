// Package sources discovers the host's public IPv4 address from external
// HTTP endpoints.
package sources

import (
	"context"
	"fmt"
	"net/netip"

	"cfupdater/config"
	"cfupdater/log"
)

type Interface interface {
	Lookup(ctx context.Context) (netip.Addr, error)
	Typename() string
}

var Sources = map[string]func(ctx context.Context, source config.Discovery) (Interface, error){
	"meta":  newMeta,
	"trace": newTrace,
}

func New(ctx context.Context, c config.Discovery) (Interface, error) {
	ctx = log.SWith(ctx, log.Stage("init:source"), "type", c.Type)

	create, ok := Sources[c.Type]
	if !ok {
		log.S(ctx).Errorw("unknown source type")
		return nil, fmt.Errorf("unknown source type: %s", c.Type)
	}

	return create(ctx, c)
}
