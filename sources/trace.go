package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"cfupdater/common"
	"cfupdater/config"
	"cfupdater/log"

	"go.uber.org/zap"
)

const maxReadTrace = 1024
const defaultTraceHost = "www.cloudflare.com"

// trace reads the ip= line of a Cloudflare /cdn-cgi/trace response. Any
// zone fronted by Cloudflare serves it, so it survives the metadata
// endpoint going away.
type trace struct {
	config.DiscoveryTraceConfig `mapstructure:",squash"`

	host string
}

func (s *trace) Typename() string {
	return "trace"
}

func (s *trace) Lookup(ctx context.Context) (result netip.Addr, err error) {
	client := ctxClient(ctx)
	timeout := time.Duration(s.Timeout)

	ctx = log.SWith(ctx, "host", s.host, "timeout", timeout)

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

	url := fmt.Sprintf("https://%s/cdn-cgi/trace", s.host)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
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

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReadTrace))
	if err != nil {
		log.S(ctx).Warnw("receiving response failed", zap.Error(err))
		return netip.Addr{}, fmt.Errorf(`failed receiving response: %w`, err)
	}

	if resp.StatusCode != http.StatusOK {
		log.S(ctx).Warnw("unexpected status", "status", resp.StatusCode, log.ByteField("body", data))
		return netip.Addr{}, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	ipString := ""
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "ip=") {
			ipString = strings.TrimPrefix(line, "ip=")
			break
		}
	}

	if ipString == "" {
		log.S(ctx).Warnw("no IP found in response", log.ByteField("body", data))
		return netip.Addr{}, fmt.Errorf("no IP found in response")
	}

	nip, err := netip.ParseAddr(ipString)
	if err != nil {
		log.S(ctx).Errorw("found bad IP", "ip", ipString, zap.Error(err))
		return netip.Addr{}, fmt.Errorf(`found bad IP: %w`, err)
	}

	return requireIPv4(ctx, nip)
}

func newTrace(ctx context.Context, c config.Discovery) (Interface, error) {
	ctx = log.SWith(ctx, "type", "trace")

	s := &trace{host: c.Source}
	if err := common.WeakDecodeMap(c.Config, s); err != nil {
		log.S(ctx).Errorw("bad config", zap.Error(err), "config", c.Config)
		return nil, fmt.Errorf(`bad config: %w`, err)
	}

	if s.host == "" {
		s.host = defaultTraceHost
	}

	return s, nil
}
