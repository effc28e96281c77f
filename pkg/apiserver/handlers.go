package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/acorn-io/acorn-edge/pkg/backend"
	"github.com/acorn-io/acorn-edge/pkg/config"
	"github.com/acorn-io/acorn-edge/pkg/version"
	"github.com/sirupsen/logrus"
)

type handler struct {
	cfg     config.Config
	backend backend.Backend
	// static is the external static content server; nil means none is
	// configured and unmatched paths are 404s.
	static        http.Handler
	serviceWorker http.Handler
	report        http.Handler
	ready         func() error
}

func newHandler(cfg config.Config, b backend.Backend, upstreams Upstreams) *handler {
	h := &handler{
		cfg:     cfg,
		backend: b,
	}
	if upstreams.StaticOrigin != nil {
		h.static = newStaticProxy(upstreams.StaticOrigin, upstreams.Timeout, nil)
		h.serviceWorker = newStaticProxy(upstreams.StaticOrigin, upstreams.Timeout, func(resp *http.Response) error {
			disableCaching(resp.Header)
			return nil
		})
	}
	if upstreams.ReportBackend != nil {
		h.report = newReportProxy(upstreams.ReportBackend, upstreams.Timeout)
	}
	return h
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	v := version.Get()
	res, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", cacheControlNoStore)
	_, _ = w.Write(res)
}

func redirectHandler(path string, r config.Redirect) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		logrus.Debugf("redirect table: %s -> %s (%d)", path, r.Location, r.Status)
		http.Redirect(w, req, r.Location, r.Status)
	})
}

func (h *handler) serveServiceWorker(w http.ResponseWriter, r *http.Request) {
	if h.serviceWorker == nil {
		disableCaching(w.Header())
		http.NotFound(w, r)
		return
	}
	h.serviceWorker.ServeHTTP(w, r)
}

// fallback hands everything no other route claimed to the static content
// server.
func (h *handler) fallback(w http.ResponseWriter, r *http.Request) {
	if h.static == nil {
		http.NotFound(w, r)
		return
	}
	h.static.ServeHTTP(w, r)
}

func (h *handler) readyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", cacheControlNoStore)
	if h.ready != nil {
		if err := h.ready(); err != nil {
			logrus.Debugf("not ready: %v", err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
