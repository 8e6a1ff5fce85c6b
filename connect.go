package xmpp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/lesswhite810/xmpp-client-sub000/discover"
)

// connectTarget is one candidate host:port this module may try, in the
// priority order built by buildTargets (spec §4.7).
type connectTarget struct {
	host string
	port uint16
}

func (t connectTarget) String() string {
	return net.JoinHostPort(t.host, strconv.Itoa(int(t.port)))
}

// buildTargets assembles the ordered candidate list: an explicit IP or
// host from config wins outright; otherwise a DNS SRV lookup is tried,
// falling back to the service domain itself on the default port (spec
// §4.7).
func buildTargets(ctx context.Context, resolver *net.Resolver, cfg *Config) ([]connectTarget, error) {
	if cfg.IPAddress != nil {
		return []connectTarget{{host: cfg.IPAddress.String(), port: cfg.Port}}, nil
	}
	if cfg.Host != "" {
		return []connectTarget{{host: cfg.Host, port: cfg.Port}}, nil
	}

	srvTargets, err := discover.LookupXMPPClient(ctx, resolver, cfg.ServiceDomain)
	if err != nil && err != discover.ErrNoServiceAtAddress {
		return nil, newError(NetworkError, err)
	}
	if len(srvTargets) > 0 {
		targets := make([]connectTarget, len(srvTargets))
		for i, t := range srvTargets {
			targets[i] = connectTarget{host: t.Host, port: t.Port}
		}
		return targets, nil
	}

	return []connectTarget{{host: cfg.ServiceDomain, port: cfg.Port}}, nil
}

// dialFirst attempts a TCP connect to each target in order under the
// configured connect timeout, returning the first success. Every failure
// is recorded and aggregated into the final error if all targets fail
// (spec §4.7, and the §9 open question about aggregating per-target
// causes).
func dialFirst(ctx context.Context, cfg *Config, targets []connectTarget) (net.Conn, error) {
	if len(targets) == 0 {
		return nil, newErrorf(NetworkError, "no connect targets for %q", cfg.ServiceDomain)
	}

	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	var failures []string
	for _, target := range targets {
		select {
		case <-ctx.Done():
			return nil, newError(CancellationError, ctx.Err())
		default:
		}
		conn, err := dialer.DialContext(ctx, "tcp", target.String())
		if err == nil {
			return conn, nil
		}
		failures = append(failures, fmt.Sprintf("%s: %s", target, err))
	}
	return nil, newErrorf(NetworkError, "all connect targets failed: %s", strings.Join(failures, "; "))
}
