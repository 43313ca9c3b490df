package sources

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"reflect"

	"cfupdater/common"
	"cfupdater/log"
)

func ctxClient(ctx context.Context) *http.Client {
	if ctxClient := ctx.Value(common.HttpClientKey); ctxClient != nil {
		return ctxClient.(*http.Client)
	}
	return http.DefaultClient
}

type transportDialer func(ctx context.Context, network, addr string) (net.Conn, error)

func dialer4(upstream transportDialer) transportDialer {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return upstream(ctx, network+"4", addr)
	}
}

// clientForcing4 copies client with a transport that only dials IPv4, so
// the endpoint observes a v4 source address.
func clientForcing4(ctx context.Context, client *http.Client) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport)
	if client.Transport != nil {
		t, ok := client.Transport.(*http.Transport)
		if !ok {
			log.S(ctx).Errorw("found unknown custom http.Client.Transport",
				"transport_type", reflect.TypeOf(client.Transport).String())
			return nil, fmt.Errorf("unknown custom http.Client.Transport")
		}

		transport = t
	}

	transport = transport.Clone()
	transport.DialContext = dialer4(transport.DialContext)

	if transport.DialTLSContext != nil {
		transport.DialTLSContext = dialer4(transport.DialTLSContext)
	}

	clientCopy := *client
	clientCopy.Transport = transport
	return &clientCopy, nil
}

// requireIPv4 rejects anything an A record cannot carry.
func requireIPv4(ctx context.Context, nip netip.Addr) (netip.Addr, error) {
	if nip.Zone() != "" {
		log.S(ctx).Warnw("found zone in IP", "ip", nip.String(), "zone", nip.Zone())
		return netip.Addr{}, fmt.Errorf(`unsupported: found zone in IP`)
	}

	nip = nip.Unmap()
	if !nip.Is4() {
		log.S(ctx).Warnw("not an IPv4 address", "ip", nip.String())
		return netip.Addr{}, fmt.Errorf("not an IPv4 address: %s", nip)
	}

	return nip, nil
}
