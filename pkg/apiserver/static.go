package apiserver

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/acorn-io/acorn-edge/pkg/backend"
	"github.com/sirupsen/logrus"
)

// Upstreams are the external collaborators requests can be handed to.
type Upstreams struct {
	StaticOrigin  *url.URL
	ReportBackend *url.URL
	Timeout       time.Duration
}

func newTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		t.ResponseHeaderTimeout = timeout
	}
	return t
}

// newStaticProxy forwards requests to the static content server. The origin's
// caching headers pass through untouched unless modify rewrites them; the
// tenant Vary set by the host middleware is kept alongside the origin's.
func newStaticProxy(origin *url.URL, timeout time.Duration, modify func(*http.Response) error) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(origin)
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		forwardedHost := r.Host
		director(r)
		r.Host = origin.Host
		r.Header.Set("X-Forwarded-Host", forwardedHost)
	}
	proxy.Transport = newTransport(timeout)
	proxy.ModifyResponse = modify
	proxy.ErrorHandler = proxyErrorHandler("static content server")
	return proxy
}

func proxyErrorHandler(upstream string) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		status := http.StatusBadGateway
		if backend.IsTimeout(err) {
			status = http.StatusGatewayTimeout
		}
		logrus.WithError(err).Errorf("%s request %s %s failed", upstream, r.Method, r.URL.Path)
		writeError(w, status, http.StatusText(status))
	}
}
