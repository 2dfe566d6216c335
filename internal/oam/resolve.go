package oam

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

var ErrNoAddress = errors.New("no A record")

// DNSResolver resolves management hostnames to IPv4 addresses by querying a
// DNS server directly, so tower hostnames can live in an OAM-only zone.
type DNSResolver struct {
	server string
	client *dns.Client
}

// NewDNSResolver queries server (host or host:port). An empty server uses the
// first nameserver from /etc/resolv.conf.
func NewDNSResolver(server string, timeout time.Duration) (*DNSResolver, error) {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	server = strings.TrimSpace(server)
	if server == "" {
		conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, fmt.Errorf("reading resolv.conf: %w", err)
		}
		if len(conf.Servers) == 0 {
			return nil, errors.New("no nameserver configured")
		}
		server = net.JoinHostPort(conf.Servers[0], conf.Port)
	} else if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &DNSResolver{server: server, client: &dns.Client{Timeout: timeout}}, nil
}

// Resolve returns the first A record of host. Literal IPs are returned as is.
func (r *DNSResolver) Resolve(ctx context.Context, host string) (string, error) {
	host = strings.TrimSpace(host)
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}
	if host == "" {
		return "", errors.New("empty host")
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)
	m.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("resolve %s: %s", host, dns.RcodeToString[in.Rcode])
	}
	for _, rr := range in.Answer {
		if a, ok := rr.(*dns.A); ok {
			return a.A.String(), nil
		}
	}
	return "", fmt.Errorf("resolve %s: %w", host, ErrNoAddress)
}
