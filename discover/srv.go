// Package discover looks up the DNS SRV records used to find a server
// endpoint for an XMPP domain (RFC 2782).
package discover

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
)

// ErrNoServiceAtAddress is returned when the SRV answer is a single record
// with a "." target, which RFC 2782 defines to mean the service is
// decidedly not available at this domain.
var ErrNoServiceAtAddress = errors.New("discover: service decidedly not available at this domain")

// Target is one resolved connection endpoint.
type Target struct {
	Host     string
	Port     uint16
	Priority uint16
	Weight   uint16
}

// LookupXMPPClient queries _xmpp-client._tcp.<domain> and returns the
// resolved targets sorted ascending by priority, then descending by weight
// within each priority class (spec §4.6; a deliberate deviation from RFC
// 2782's weighted-random selection within a priority class).
//
// A DNS NXDOMAIN response yields a nil, nil result so the caller can fall
// back to connecting to the domain directly on the default port. Any other
// resolution failure is returned as an error.
func LookupXMPPClient(ctx context.Context, resolver *net.Resolver, domain string) ([]Target, error) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	_, srvs, err := resolver.LookupSRV(ctx, "xmpp-client", "tcp", domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, nil
		}
		return nil, err
	}

	if len(srvs) == 1 && srvs[0].Target == "." {
		return nil, ErrNoServiceAtAddress
	}

	targets := make([]Target, len(srvs))
	for i, s := range srvs {
		targets[i] = Target{
			Host:     strings.TrimSuffix(s.Target, "."),
			Port:     s.Port,
			Priority: s.Priority,
			Weight:   s.Weight,
		}
	}
	sortTargets(targets)
	return targets, nil
}

// sortTargets orders targets ascending by priority, then descending by
// weight (spec §4.6 "Ordering").
func sortTargets(targets []Target) {
	sort.SliceStable(targets, func(i, j int) bool {
		if targets[i].Priority != targets[j].Priority {
			return targets[i].Priority < targets[j].Priority
		}
		return targets[i].Weight > targets[j].Weight
	})
}
