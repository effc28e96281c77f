package apiserver

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/acorn-io/acorn-edge/pkg/backend"
	"github.com/acorn-io/acorn-edge/pkg/host"
	"github.com/acorn-io/acorn-edge/pkg/model"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const maxDescriptionRunes = 280

// isCrawler reports whether the User-Agent contains a known link-preview or
// search crawler signature.
func (h *handler) isCrawler(r *http.Request, _ *mux.RouteMatch) bool {
	ua := strings.ToLower(r.UserAgent())
	if ua == "" {
		return false
	}
	for sig := range h.cfg.CrawlerSignatures {
		if strings.Contains(ua, sig) {
			return true
		}
	}
	return false
}

// videoPreview answers crawlers with a static Open Graph document. Upstream
// failures degrade to generic metadata; crawlers never see an error.
func (h *handler) videoPreview(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cl := classificationFromContext(r.Context())
	canonical := fmt.Sprintf("%s://%s/video/%s", host.Scheme(r), cl.HostPort, url.PathEscape(id))

	res := h.backend.FetchVideo(r.Context(), id)
	if !res.Found() {
		logrus.WithError(res.Err).Infof("video %s metadata %s, serving generic preview", id, res.Status)
	}
	meta := describeVideo(res, h.cfg.AppName, h.cfg.DefaultThumbnail)

	w.Header().Set("Cache-Control", publicMaxAge(h.cfg.PreviewMaxAge))
	addVary(w.Header(), "User-Agent")
	writeHTML(w, http.StatusOK, []byte(renderVideoPreview(meta, canonical, h.cfg.AppName)))
}

// videoPage hands browsers the application shell for a video. The response
// shares its URL with the crawler preview, so it varies on User-Agent too.
func (h *handler) videoPage(w http.ResponseWriter, r *http.Request) {
	addVary(w.Header(), "User-Agent")
	h.fallback(w, r)
}

// describeVideo turns an upstream response into display metadata, defaulting
// each field on its own.
func describeVideo(res backend.Result[model.VideoResponse], appName, defaultThumbnail string) model.VideoMetadata {
	meta := model.VideoMetadata{
		Title:        "Video on " + appName,
		Description:  "Watch this video on " + appName,
		ThumbnailURL: defaultThumbnail,
	}
	if !res.Found() {
		return meta
	}

	v := res.Value
	if v.Event != nil {
		if title := firstTagValue(v.Event.Tags, "title"); title != "" {
			meta.Title = title
		}
		if thumb := thumbnail(v.Event.Tags); thumb != "" {
			meta.ThumbnailURL = thumb
		}
	}
	if v.Stats != nil {
		meta.Reactions = v.Stats.Reactions
		meta.Comments = v.Stats.Comments
		meta.Reposts = v.Stats.Reposts
	}
	if v.Author != nil {
		meta.AuthorName = v.Author.DisplayName
		if meta.AuthorName == "" {
			meta.AuthorName = v.Author.Name
		}
	}

	switch {
	case v.Event != nil && strings.TrimSpace(v.Event.Content) != "":
		meta.Description = truncateRunes(strings.TrimSpace(v.Event.Content), maxDescriptionRunes)
	case meta.Reactions+meta.Comments+meta.Reposts > 0:
		meta.Description = fmt.Sprintf("%d likes, %d comments, %d reposts on %s",
			meta.Reactions, meta.Comments, meta.Reposts, appName)
	}
	return meta
}

func firstTagValue(tags [][]string, name string) string {
	for _, tag := range tags {
		if len(tag) >= 2 && tag[0] == name && strings.TrimSpace(tag[1]) != "" {
			return strings.TrimSpace(tag[1])
		}
	}
	return ""
}

// thumbnail prefers a thumb tag, then an image tag, then the image entry of an
// imeta tag.
func thumbnail(tags [][]string) string {
	if v := firstTagValue(tags, "thumb"); v != "" {
		return v
	}
	if v := firstTagValue(tags, "image"); v != "" {
		return v
	}
	for _, tag := range tags {
		if len(tag) == 0 || tag[0] != "imeta" {
			continue
		}
		for _, entry := range tag[1:] {
			if v, ok := strings.CutPrefix(entry, "image "); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func renderVideoPreview(meta model.VideoMetadata, canonicalURL, appName string) string {
	e := html.EscapeString
	redirect, _ := json.Marshal(canonicalURL)

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", e(meta.Title))
	fmt.Fprintf(&sb, "<meta name=\"description\" content=\"%s\">\n", e(meta.Description))
	if meta.AuthorName != "" {
		fmt.Fprintf(&sb, "<meta name=\"author\" content=\"%s\">\n", e(meta.AuthorName))
	}
	fmt.Fprintf(&sb, "<meta property=\"og:site_name\" content=\"%s\">\n", e(appName))
	sb.WriteString("<meta property=\"og:type\" content=\"video.other\">\n")
	fmt.Fprintf(&sb, "<meta property=\"og:title\" content=\"%s\">\n", e(meta.Title))
	fmt.Fprintf(&sb, "<meta property=\"og:description\" content=\"%s\">\n", e(meta.Description))
	fmt.Fprintf(&sb, "<meta property=\"og:image\" content=\"%s\">\n", e(meta.ThumbnailURL))
	fmt.Fprintf(&sb, "<meta property=\"og:url\" content=\"%s\">\n", e(canonicalURL))
	sb.WriteString("<meta name=\"twitter:card\" content=\"summary_large_image\">\n")
	fmt.Fprintf(&sb, "<meta name=\"twitter:title\" content=\"%s\">\n", e(meta.Title))
	fmt.Fprintf(&sb, "<meta name=\"twitter:description\" content=\"%s\">\n", e(meta.Description))
	fmt.Fprintf(&sb, "<meta name=\"twitter:image\" content=\"%s\">\n", e(meta.ThumbnailURL))
	fmt.Fprintf(&sb, "<link rel=\"canonical\" href=\"%s\">\n", e(canonicalURL))
	fmt.Fprintf(&sb, "<meta http-equiv=\"refresh\" content=\"0;url=%s\">\n", e(canonicalURL))
	fmt.Fprintf(&sb, "<script>window.location.replace(%s);</script>\n", redirect)
	sb.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&sb, "<p><a href=\"%s\">%s</a></p>\n", e(canonicalURL), e(meta.Title))
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}
