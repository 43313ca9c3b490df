package ddns

import (
	"context"
	"fmt"
	"net/http"

	"cfupdater/common"
	"cfupdater/config"
	"cfupdater/log"
	"cfupdater/secrets"

	cfapi "github.com/cloudflare/cloudflare-go"
	"go.uber.org/zap"
)

const recordType = "A"

type cloudflare struct {
	token  string
	zoneID string
	ttl    int
	apiURL string
}

type logger struct {
	ctx context.Context
}

func (l *logger) Printf(format string, v ...interface{}) {
	log.S(l.ctx).Debugf(format, v...)
}

// New builds the client from resolved credentials. The zone is fixed for
// the client's lifetime; TTL 1 means provider-auto.
func New(ctx context.Context, c config.Provider, creds secrets.Credentials) (Interface, error) {
	ctx = log.SWith(ctx, log.Stage("init:provider"), "type", "cloudflare")

	d := &cloudflare{
		token:  creds.APIToken,
		zoneID: creds.ZoneID,
		ttl:    c.TTL,
		apiURL: c.APIURL,
	}

	if d.ttl == 0 {
		d.ttl = 1
	}

	// Fail on bad credentials now rather than in the first cycle.
	if _, err := d.getAPI(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *cloudflare) getAPI(ctx context.Context) (*cfapi.API, error) {
	client := http.DefaultClient

	if ctxClient := ctx.Value(common.HttpClientKey); ctxClient != nil {
		client = ctxClient.(*http.Client)
	}

	opts := []cfapi.Option{cfapi.HTTPClient(client), cfapi.UsingLogger(&logger{ctx: ctx})}
	if d.apiURL != "" {
		opts = append(opts, cfapi.BaseURL(d.apiURL))
	}

	api, err := cfapi.NewWithAPIToken(d.token, opts...)
	if err != nil {
		log.S(ctx).Errorw("failed create cloudflare API", zap.Error(err))
		return nil, fmt.Errorf("failed create cloudflare API: %w", err)
	}

	return api, nil
}

func (d *cloudflare) FindRecord(ctx context.Context, name string) (Record, error) {
	ctx = log.SWith(ctx,
		"action", "find",
		"ns_type", recordType,
		"domain", name)

	api, err := d.getAPI(ctx)
	if err != nil {
		return Record{}, err
	}

	params := cfapi.ListDNSRecordsParams{
		Name: name,
	}

	cfRecords, info, err := api.ListDNSRecords(ctx, cfapi.ZoneIdentifier(d.zoneID), params)
	if err != nil {
		log.S(ctx).Errorw("failed list records", zap.Error(err))
		return Record{}, fmt.Errorf("failed list records: %w", err)
	}

	if info.HasMorePages() {
		log.S(ctx).Warnw("partial result, ignore remaining", "count", len(cfRecords), "total", info.Count, "pages", info.TotalPages)
	}

	// First A-type exact match wins; any extra records are ignored.
	for _, record := range cfRecords {
		if record.Type != recordType || record.Name != name {
			continue
		}

		found := Record{
			ID:      record.ID,
			Type:    record.Type,
			Name:    record.Name,
			Content: record.Content,
		}
		log.S(ctx).Debugw("found record", "record", found)
		return found, nil
	}

	log.S(ctx).Debugw("no matching record", "count", len(cfRecords))
	return Record{}, ErrRecordNotFound
}

func (d *cloudflare) WriteRecord(ctx context.Context, r Record) (Record, error) {
	pCtx := ctx
	ctx = log.SWith(ctx,
		"action", "write",
		"ns_type", recordType,
		"domain", r.Name,
		"address", r.Content,
		"id", r.ID)

	api, err := d.getAPI(ctx)
	if err != nil {
		return Record{}, err
	}

	zoneRc := cfapi.ZoneIdentifier(d.zoneID)

	var cfRecord cfapi.DNSRecord

	if r.ID != "" {
		log.S(ctx).Debugw("updating record")

		params := cfapi.UpdateDNSRecordParams{
			ID:      r.ID,
			Type:    recordType,
			Name:    r.Name,
			Content: r.Content,
			TTL:     d.ttl,
			Proxied: cfapi.BoolPtr(false),
		}

		cfRecord, err = api.UpdateDNSRecord(ctx, zoneRc, params)
		if err != nil {
			log.S(ctx).Warnw("failed update record", zap.Error(err))
			return Record{}, fmt.Errorf("failed update record: %w", err)
		}
	} else {
		log.S(ctx).Debugw("creating record")

		params := cfapi.CreateDNSRecordParams{
			Type:    recordType,
			Name:    r.Name,
			Content: r.Content,
			TTL:     d.ttl,
			Proxied: cfapi.BoolPtr(false),
		}

		cfRecord, err = api.CreateDNSRecord(ctx, zoneRc, params)
		if err != nil {
			log.S(ctx).Warnw("failed create record", zap.Error(err))
			return Record{}, fmt.Errorf("failed create record: %w", err)
		}
	}

	record := Record{
		ID:      cfRecord.ID,
		Type:    cfRecord.Type,
		Name:    cfRecord.Name,
		Content: cfRecord.Content,
	}

	log.S(pCtx).Debugw("record written", "record", record)

	return record, nil
}
