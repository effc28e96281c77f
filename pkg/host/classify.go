// Package host decides which tenant an inbound request is addressed to.
package host

import (
	"net"
	"net/http"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

const wwwPrefix = "www."

// Classification is the parsed authority of a single request.
type Classification struct {
	// RawHost is the literal connection host, without port.
	RawHost string
	// Host is the effective host after the trusted override, lower-cased and
	// without port.
	Host string
	// HostPort is the effective host as received, port included.
	HostPort string

	Apex       bool
	ApexDomain string
	Subdomain  string
	Reserved   bool

	// RedirectWWW is set when the host starts with "www." and must be
	// permanently redirected to the bare host.
	RedirectWWW bool
}

// HasSubdomain reports whether the request resolved to a user subdomain.
func (c Classification) HasSubdomain() bool {
	return c.Subdomain != ""
}

// Known reports whether the host matched one of the accepted apex domains.
func (c Classification) Known() bool {
	return c.ApexDomain != ""
}

// Classifier holds the static inputs of classification.
type Classifier struct {
	ApexDomains        []string
	ReservedSubdomains sets.String
	OriginalHostHeader string
}

// Classify inspects the request, preferring the trusted original-host header
// over the connection host.
func (c Classifier) Classify(r *http.Request) Classification {
	hostPort := r.Host
	if c.OriginalHostHeader != "" {
		if h := strings.TrimSpace(r.Header.Get(c.OriginalHostHeader)); h != "" {
			hostPort = h
		}
	}

	cl := c.ClassifyHost(hostPort)
	cl.RawHost = StripPort(r.Host)
	return cl
}

// ClassifyHost classifies a bare host or host:port string.
func (c Classifier) ClassifyHost(hostPort string) Classification {
	h := strings.ToLower(StripPort(hostPort))
	cl := Classification{
		RawHost:  h,
		Host:     h,
		HostPort: hostPort,
	}

	if strings.HasPrefix(h, wwwPrefix) {
		cl.RedirectWWW = true
		return cl
	}

	for _, apex := range c.ApexDomains {
		if h == apex {
			cl.Apex = true
			cl.ApexDomain = apex
			return cl
		}

		suffix := "." + apex
		if !strings.HasSuffix(h, suffix) {
			continue
		}

		cl.ApexDomain = apex
		sub := strings.TrimSuffix(h, suffix)
		switch {
		case sub == "", strings.Contains(sub, "."):
		case c.ReservedSubdomains.Has(sub):
			cl.Reserved = true
		default:
			cl.Subdomain = sub
		}
		return cl
	}

	return cl
}

// StripPort removes a trailing :port, keeping bracketed IPv6 hosts intact.
func StripPort(hostPort string) string {
	if h, _, err := net.SplitHostPort(hostPort); err == nil {
		return h
	}
	return strings.TrimSuffix(strings.TrimPrefix(hostPort, "["), "]")
}

// WWWRedirectURL is the request URL with a single leading "www." removed from
// the effective host.
func WWWRedirectURL(r *http.Request, cl Classification) string {
	target := cl.HostPort
	if strings.HasPrefix(strings.ToLower(target), wwwPrefix) {
		target = target[len(wwwPrefix):]
	}
	return Scheme(r) + "://" + target + r.URL.RequestURI()
}

// Scheme is the scheme the client used, as reported by a fronting proxy.
func Scheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		return proto
	}
	return "https"
}
