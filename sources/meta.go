package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"time"

	"cfupdater/common"
	"cfupdater/config"
	"cfupdater/log"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const maxReadMeta = 4 * 1024

// meta queries a JSON IP-metadata endpoint and reads the clientIp field.
// The Cloudflare speed-test meta endpoint is the stock instance.
type meta struct {
	config.DiscoveryMetaConfig `mapstructure:",squash"`

	url string
}

func (s *meta) Typename() string {
	return "meta"
}

type metaBody struct {
	ClientIP string `json:"clientIp"`
}

func (s *meta) Lookup(ctx context.Context) (result netip.Addr, err error) {
	client := ctxClient(ctx)
	timeout := time.Duration(s.Timeout)

	ctx = log.SWith(ctx, "url", s.url, "timeout", timeout)

	defer func() {
		if err == nil {
			log.S(ctx).Debugw("got ip", log.Addr(result))
		}
	}()

	if s.Timeout > 0 {
		tCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		ctx = tCtx
	}

	if s.Force4 {
		log.S(ctx).Debug("patching http.Client")
		client, err = clientForcing4(ctx, client)
		if err != nil {
			return netip.Addr{}, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", s.url, nil)
	if err != nil {
		log.S(ctx).Errorw("new request failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf("new request failed: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.S(ctx).Warnw("connection failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf(`connection failed: %w`, err)
	}

	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			log.S(ctx).Warnw("close body failed", zap.Error(err))
		}
	}(resp.Body)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReadMeta))
	if err != nil {
		log.S(ctx).Warnw("receiving response failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf(`failed receiving response: %w`, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.S(ctx).Warnw("unexpected status", "status", resp.StatusCode, log.ByteField("body", data))
		return netip.Addr{}, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var body metaBody
	if err := json.Unmarshal(data, &body); err != nil {
		log.S(ctx).Warnw("malformed response", log.ByteField("body", data), zap.Error(err))
		return netip.Addr{}, fmt.Errorf(`malformed response: %w`, err)
	}

	if body.ClientIP == "" {
		log.S(ctx).Warnw("no IP found in response", log.ByteField("body", data))
		return netip.Addr{}, fmt.Errorf("no IP found in response")
	}

	nip, err := netip.ParseAddr(body.ClientIP)
	if err != nil {
		log.S(ctx).Errorw("found bad IP", "ip", body.ClientIP, zap.Error(err))
		return netip.Addr{}, fmt.Errorf(`found bad IP: %w`, err)
	}

	return requireIPv4(ctx, nip)
}

func newMeta(ctx context.Context, c config.Discovery) (Interface, error) {
	ctx = log.SWith(ctx, "type", "meta")

	s := &meta{url: c.Source}
	if err := common.WeakDecodeMap(c.Config, s); err != nil {
		log.S(ctx).Errorw("bad config", zap.Error(err), "config", c.Config)
		return nil, fmt.Errorf(`bad config: %w`, err)
	}

	if s.url == "" {
		s.url = config.DefaultMetaURL
	}

	return s, nil
}
