package apiserver

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"
)

// newReportProxy passes report submissions through to the ticketing backend
// unchanged, bounded by timeout.
func newReportProxy(target *url.URL, timeout time.Duration) http.Handler {
	proxy := &httputil.ReverseProxy{
		Director: func(r *http.Request) {
			r.URL.Scheme = target.Scheme
			r.URL.Host = target.Host
			r.URL.Path = target.Path
			r.URL.RawPath = target.RawPath
			r.URL.RawQuery = target.RawQuery
			r.Host = target.Host
			if _, ok := r.Header["User-Agent"]; !ok {
				r.Header.Set("User-Agent", "")
			}
		},
		Transport: newTransport(timeout),
		ModifyResponse: func(resp *http.Response) error {
			disableCaching(resp.Header)
			return nil
		},
		ErrorHandler: proxyErrorHandler("report backend"),
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if timeout > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			r = r.WithContext(ctx)
		}
		proxy.ServeHTTP(w, r)
	})
}
