package host

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/util/sets"
)

func testClassifier() Classifier {
	return Classifier{
		ApexDomains:        []string{"example.com", "example.org"},
		ReservedSubdomains: sets.NewString("www", "admin", "api"),
		OriginalHostHeader: "X-Original-Host",
	}
}

func TestClassifyHost(t *testing.T) {
	tests := []struct {
		host        string
		apex        bool
		apexDomain  string
		subdomain   string
		reserved    bool
		redirectWWW bool
	}{
		{host: "example.com", apex: true, apexDomain: "example.com"},
		{host: "example.org:8443", apex: true, apexDomain: "example.org"},
		{host: "EXAMPLE.com", apex: true, apexDomain: "example.com"},
		{host: "alice.example.com", apexDomain: "example.com", subdomain: "alice"},
		{host: "ALICE.example.com", apexDomain: "example.com", subdomain: "alice"},
		{host: "Bob.Example.Org:443", apexDomain: "example.org", subdomain: "bob"},
		{host: "admin.example.com", apexDomain: "example.com", reserved: true},
		{host: "API.example.com", apexDomain: "example.com", reserved: true},
		{host: "a.b.example.com", apexDomain: "example.com"},
		{host: "www.example.com", redirectWWW: true},
		{host: "www.alice.example.com", redirectWWW: true},
		{host: "notexample.com"},
		{host: "alice.example.net"},
		{host: "localhost:8080"},
	}

	c := testClassifier()
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			cl := c.ClassifyHost(tt.host)
			assert.Equal(t, tt.apex, cl.Apex, "apex")
			assert.Equal(t, tt.apexDomain, cl.ApexDomain, "apex domain")
			assert.Equal(t, tt.subdomain, cl.Subdomain, "subdomain")
			assert.Equal(t, tt.reserved, cl.Reserved, "reserved")
			assert.Equal(t, tt.redirectWWW, cl.RedirectWWW, "www redirect")
			assert.NotContains(t, cl.Subdomain, ".")
		})
	}
}

func TestClassifyReservedAndMultiLevelNeverResolve(t *testing.T) {
	c := testClassifier()
	for _, apex := range c.ApexDomains {
		for _, sub := range []string{"admin", "api", "a.b", "x.y.z"} {
			cl := c.ClassifyHost(sub + "." + apex)
			assert.False(t, cl.HasSubdomain(), "%s.%s", sub, apex)
		}
	}
}

func TestClassifyPrefersOriginalHostHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "http://router.internal/", nil)
	r.Header.Set("X-Original-Host", "carol.example.com")

	cl := testClassifier().Classify(r)

	assert.Equal(t, "router.internal", cl.RawHost)
	assert.Equal(t, "carol.example.com", cl.Host)
	assert.Equal(t, "carol", cl.Subdomain)
}

func TestClassifyWithoutOverrideUsesRequestHost(t *testing.T) {
	r := httptest.NewRequest("GET", "http://dave.example.org/profile", nil)

	cl := testClassifier().Classify(r)

	assert.Equal(t, "dave", cl.Subdomain)
	assert.Equal(t, "example.org", cl.ApexDomain)
	assert.False(t, cl.Apex)
}

func TestWWWRedirectURL(t *testing.T) {
	tests := []struct {
		target string
		proto  string
		want   string
	}{
		{"http://www.example.com/", "", "https://example.com/"},
		{"http://www.example.com/video/1?x=2", "", "https://example.com/video/1?x=2"},
		{"http://www.www.example.org/a", "http", "http://www.example.org/a"},
		{"http://WWW.alice.example.com:8443/", "https", "https://alice.example.com:8443/"},
	}
	c := testClassifier()
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if tt.proto != "" {
				r.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			cl := c.Classify(r)
			assert.True(t, cl.RedirectWWW)
			assert.Equal(t, tt.want, WWWRedirectURL(r, cl))
		})
	}
}

func TestStripPort(t *testing.T) {
	assert.Equal(t, "example.com", StripPort("example.com:80"))
	assert.Equal(t, "example.com", StripPort("example.com"))
	assert.Equal(t, "::1", StripPort("[::1]:80"))
	assert.Equal(t, "::1", StripPort("[::1]"))
}
