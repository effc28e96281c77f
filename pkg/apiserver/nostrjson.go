package apiserver

import (
	"net/http"
	"strings"

	"github.com/acorn-io/acorn-edge/pkg/backend"
	"github.com/acorn-io/acorn-edge/pkg/model"
	"github.com/sirupsen/logrus"
)

const (
	wellKnownNostrPath = "/.well-known/nostr.json"
	subdomainName      = "_"
)

func (h *handler) discoveryHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", publicMaxAge(h.cfg.DiscoveryMaxAge))
}

// apexDiscovery serves /.well-known/nostr.json?name=<username>. An unknown
// name is an empty document, not an error.
func (h *handler) apexDiscovery(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("name")))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}

	h.discoveryHeaders(w)

	res := h.backend.LookupIdentity(r.Context(), name)
	switch res.Status {
	case backend.StatusFound:
		if !res.Value.IsActive() {
			writeJSON(w, http.StatusOK, model.DiscoveryDocument{Names: map[string]string{}})
			return
		}
		writeJSON(w, http.StatusOK, model.NewDiscoveryDocument(name, res.Value))
	case backend.StatusNotFound:
		writeJSON(w, http.StatusOK, model.DiscoveryDocument{Names: map[string]string{}})
	default:
		logrus.WithError(res.Err).Errorf("identity lookup for %q %s", name, res.Status)
		w.Header().Set("Cache-Control", cacheControlNoStore)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// subdomainDiscovery serves /.well-known/nostr.json on <sub>.<apex>, mapping
// "_" to the subdomain owner's key.
func (h *handler) subdomainDiscovery(w http.ResponseWriter, r *http.Request) {
	sub := classificationFromContext(r.Context()).Subdomain

	h.discoveryHeaders(w)

	res := h.backend.LookupIdentity(r.Context(), sub)
	switch {
	case res.Found() && res.Value.IsActive():
		writeJSON(w, http.StatusOK, model.NewDiscoveryDocument(subdomainName, res.Value))
	case res.Found(), res.Status == backend.StatusNotFound:
		writeError(w, http.StatusNotFound, "user not found")
	default:
		logrus.WithError(res.Err).Errorf("identity lookup for subdomain %q %s", sub, res.Status)
		w.Header().Set("Cache-Control", cacheControlNoStore)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
