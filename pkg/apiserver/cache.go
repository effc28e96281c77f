package apiserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	cacheControlNoStore = "no-cache, no-store, must-revalidate"
)

// addVary appends field to the Vary header unless it is already listed.
func addVary(h http.Header, field string) {
	for _, v := range h.Values("Vary") {
		for _, existing := range strings.Split(v, ",") {
			existing = strings.TrimSpace(existing)
			if existing == "*" || strings.EqualFold(existing, field) {
				return
			}
		}
	}
	h.Add("Vary", field)
}

func publicMaxAge(d time.Duration) string {
	return fmt.Sprintf("public, max-age=%d", int(d.Seconds()))
}

// disableCaching overrides whatever caching the origin assigned.
func disableCaching(h http.Header) {
	h.Set("Cache-Control", cacheControlNoStore)
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}
