// Package secrets resolves the opaque credential references the updater
// needs before the first cycle. Resolution failures are fatal: without a
// token, zone and hostname there is nothing to update.
package secrets

import (
	"context"
	"fmt"

	"cfupdater/log"

	"go.uber.org/zap"
)

// Resolver turns an opaque reference into the secret value behind it.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// Refs names the three credential references, in vault-reference form.
type Refs struct {
	APIToken   string
	ZoneID     string
	RecordName string
}

// Credentials is the resolved set, immutable for the process lifetime.
type Credentials struct {
	APIToken   string
	ZoneID     string
	RecordName string
}

// Load resolves every reference in order. Any resolver error or empty
// value aborts the load; a partial credential set is never returned.
func Load(ctx context.Context, r Resolver, refs Refs) (Credentials, error) {
	ctx = log.SWith(ctx, log.Stage("init:secrets"))

	var creds Credentials
	for _, item := range []struct {
		name string
		ref  string
		dst  *string
	}{
		{"api_token", refs.APIToken, &creds.APIToken},
		{"zone_id", refs.ZoneID, &creds.ZoneID},
		{"record_name", refs.RecordName, &creds.RecordName},
	} {
		if item.ref == "" {
			log.S(ctx).Errorw("missing credential reference", "credential", item.name)
			return Credentials{}, fmt.Errorf("missing credential reference: %s", item.name)
		}

		value, err := r.Resolve(ctx, item.ref)
		if err != nil {
			log.S(ctx).Errorw("failed resolving credential", "credential", item.name, zap.Error(err))
			return Credentials{}, fmt.Errorf("failed resolving credential %s: %w", item.name, err)
		}

		if value == "" {
			log.S(ctx).Errorw("credential resolved to empty value", "credential", item.name)
			return Credentials{}, fmt.Errorf("credential resolved to empty value: %s", item.name)
		}

		*item.dst = value
	}

	log.S(ctx).Debugw("credentials resolved", "record_name", creds.RecordName)

	return creds, nil
}
