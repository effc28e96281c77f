package apiserver

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"

	"github.com/acorn-io/acorn-edge/pkg/config"
	"github.com/acorn-io/acorn-edge/pkg/model"
)

var headClose = regexp.MustCompile(`(?i)</head\s*>`)

// metaTag is one preview tag of the application shell and the value it is
// rewritten to.
type metaTag struct {
	name    string
	pattern *regexp.Regexp
	value   string
}

// shellTag matches a meta tag of the shell's fixed markup, capturing the text
// before and after the content value.
func shellTag(attr, name string) *regexp.Regexp {
	return regexp.MustCompile(`(<meta\s+` + attr + `="` + regexp.QuoteMeta(name) + `"\s+content=")[^"]*(")`)
}

var (
	titleTag              = regexp.MustCompile(`(<title>)[^<]*(</title>)`)
	descriptionTag        = shellTag("name", "description")
	ogTitleTag            = shellTag("property", "og:title")
	ogDescriptionTag      = shellTag("property", "og:description")
	ogImageTag            = shellTag("property", "og:image")
	ogURLTag              = shellTag("property", "og:url")
	twitterTitleTag       = shellTag("name", "twitter:title")
	twitterDescriptionTag = shellTag("name", "twitter:description")
	twitterImageTag       = shellTag("name", "twitter:image")
)

func profileMetaValues(p model.ProfilePayload, cfg config.Config, pageURL string) []metaTag {
	title := fmt.Sprintf("%s on %s", p.DisplayName, cfg.AppName)
	description := fmt.Sprintf("Watch videos from %s on %s", p.DisplayName, cfg.AppName)
	if p.About != nil {
		description = *p.About
	}
	image := cfg.DefaultThumbnail
	if p.Picture != nil {
		image = *p.Picture
	}

	return []metaTag{
		{name: "title", pattern: titleTag, value: title},
		{name: "description", pattern: descriptionTag, value: description},
		{name: "og:title", pattern: ogTitleTag, value: title},
		{name: "og:description", pattern: ogDescriptionTag, value: description},
		{name: "og:image", pattern: ogImageTag, value: image},
		{name: "og:url", pattern: ogURLTag, value: pageURL},
		{name: "twitter:title", pattern: twitterTitleTag, value: title},
		{name: "twitter:description", pattern: twitterDescriptionTag, value: description},
		{name: "twitter:image", pattern: twitterImageTag, value: image},
	}
}

// rewriteMeta replaces the value of the first occurrence of each tag and
// returns how many replacements were made per tag name.
func rewriteMeta(doc string, tags []metaTag) (string, map[string]int) {
	counts := make(map[string]int, len(tags))
	for _, t := range tags {
		loc := t.pattern.FindStringSubmatchIndex(doc)
		if loc == nil {
			counts[t.name] = 0
			continue
		}
		// loc[3] ends the opening group, loc[4] starts the closing one.
		doc = doc[:loc[3]] + html.EscapeString(t.value) + doc[loc[4]:]
		counts[t.name]++
	}
	return doc, counts
}

func headCloseIndex(doc string) int {
	loc := headClose.FindStringIndex(doc)
	if loc == nil {
		return -1
	}
	return loc[0]
}

// injectPayload places the profile script, preceded by a marker comment,
// immediately before </head>.
func injectPayload(doc, subdomain string, p model.ProfilePayload) (string, error) {
	i := headCloseIndex(doc)
	if i < 0 {
		return "", fmt.Errorf("document has no closing head tag")
	}
	// encoding/json escapes <, > and & so the payload cannot close the script.
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	snippet := fmt.Sprintf("<!-- subdomain profile: %s -->\n<script>window.__GLOBAL_USER__ = %s;</script>\n",
		html.EscapeString(subdomain), data)
	return doc[:i] + snippet + doc[i:], nil
}
