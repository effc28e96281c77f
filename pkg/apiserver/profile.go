package apiserver

import (
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/acorn-io/acorn-edge/pkg/backend"
	"github.com/acorn-io/acorn-edge/pkg/bech32"
	"github.com/acorn-io/acorn-edge/pkg/host"
	"github.com/acorn-io/acorn-edge/pkg/model"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const (
	subdomainHeader = "X-Subdomain"
	degradedHeader  = "X-Profile-Degraded"

	degradedNpub       = "npub"
	degradedEnrichment = "enrichment"
)

// isStaticAsset matches paths the static content server owns outright.
func (h *handler) isStaticAsset(r *http.Request, _ *mux.RouteMatch) bool {
	p := r.URL.Path
	if h.cfg.AssetPathPrefix != "" && strings.HasPrefix(p, h.cfg.AssetPathPrefix) {
		return true
	}
	ext := strings.ToLower(path.Ext(p))
	return ext != "" && h.cfg.AssetExtensions.Has(ext)
}

// profile serves the application shell for <sub>.<apex> with the owner's
// profile embedded and the preview tags rewritten.
func (h *handler) profile(w http.ResponseWriter, r *http.Request) {
	cl := classificationFromContext(r.Context())
	log := logrus.WithField("subdomain", cl.Subdomain)

	ident := h.backend.LookupIdentity(r.Context(), cl.Subdomain)
	switch {
	case ident.Found() && ident.Value.IsActive() && ident.Value.Pubkey != "":
	case ident.Found(), ident.Status == backend.StatusNotFound:
		writeText(w, http.StatusNotFound, "profile not found")
		return
	default:
		log.WithError(ident.Err).Errorf("identity lookup %s", ident.Status)
		w.Header().Set("Cache-Control", cacheControlNoStore)
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}
	record := ident.Value

	var degraded []string
	npub, err := bech32.EncodePubkey(record.Pubkey)
	if err != nil {
		log.WithError(err).Warn("unable to encode pubkey")
		degraded = append(degraded, degradedNpub)
	}

	enrichment := h.backend.FetchProfile(r.Context(), record.Pubkey)
	if !enrichment.Found() {
		log.WithError(enrichment.Err).Infof("profile enrichment %s", enrichment.Status)
		degraded = append(degraded, degradedEnrichment)
	}

	shell := h.backend.LoadContent(r.Context(), h.cfg.ShellPath)
	var doc string
	if shell.Found() {
		doc = string(shell.Value.Body)
	}
	if !shell.Found() || headCloseIndex(doc) < 0 {
		target := canonicalProfileURL(r, cl, npub, record.Pubkey)
		log.WithError(shell.Err).Warnf("application shell %s, redirecting to %s", shell.Status, target)
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	payload := buildProfilePayload(cl, record, npub, enrichment)
	tags := profileMetaValues(payload, h.cfg, fmt.Sprintf("%s://%s/", host.Scheme(r), cl.HostPort))

	doc, counts := rewriteMeta(doc, tags)
	for _, t := range tags {
		if counts[t.name] == 0 {
			log.Warnf("application shell has no %s tag to rewrite", t.name)
		}
	}
	doc, err = injectPayload(doc, cl.Subdomain, payload)
	if err != nil {
		log.WithError(err).Error("unable to inject profile")
		writeText(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Cache-Control", publicMaxAge(h.cfg.ProfileMaxAge))
	addVary(w.Header(), h.cfg.OriginalHostHeader)
	w.Header().Set(subdomainHeader, cl.Subdomain)
	if len(degraded) > 0 {
		w.Header().Set(degradedHeader, strings.Join(degraded, ", "))
	}
	writeHTML(w, http.StatusOK, []byte(doc))
}

// canonicalProfileURL is the apex profile page for an identity, used when the
// shell cannot be served from the subdomain.
func canonicalProfileURL(r *http.Request, cl host.Classification, npub, pubkey string) string {
	id := npub
	if id == "" {
		id = pubkey
	}
	return fmt.Sprintf("%s://%s/profile/%s", host.Scheme(r), cl.ApexDomain, url.PathEscape(id))
}

func buildProfilePayload(cl host.Classification, record model.IdentityRecord, npub string,
	enrichment backend.Result[model.UserResponse]) model.ProfilePayload {
	username := record.Username
	if username == "" {
		username = cl.Subdomain
	}

	p := model.ProfilePayload{
		Subdomain:   cl.Subdomain,
		Pubkey:      record.Pubkey,
		Username:    username,
		DisplayName: username,
		Nip05:       fmt.Sprintf("%s@%s", username, cl.ApexDomain),
		ApexDomain:  cl.ApexDomain,
	}
	if npub != "" {
		p.Npub = &npub
	}
	if !enrichment.Found() {
		return p
	}

	v := enrichment.Value
	if prof := v.Profile; prof != nil {
		switch {
		case prof.DisplayName != "":
			p.DisplayName = prof.DisplayName
		case prof.Name != "":
			p.DisplayName = prof.Name
		}
		p.Picture = optional(prof.Picture)
		p.Banner = optional(prof.Banner)
		p.About = optional(prof.About)
		if prof.Nip05 != "" {
			p.Nip05 = prof.Nip05
		}
	}
	if v.Social != nil {
		p.FollowersCount = v.Social.FollowerCount
		p.FollowingCount = v.Social.FollowingCount
	}
	if v.Stats != nil {
		p.VideoCount = v.Stats.VideoCount
	}
	return p
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
