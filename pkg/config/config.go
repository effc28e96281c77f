// Package config holds the immutable routing configuration of the edge
// server: which domains it answers for, which subdomains are reserved, which
// user agents are crawlers and where legacy paths redirect to.
package config

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	DefaultOriginalHostHeader = "X-Original-Host"
	DefaultShellPath          = "/index.html"
)

// Redirect is a single entry of the static redirect table.
type Redirect struct {
	Location string `yaml:"location"`
	Status   int    `yaml:"status"`
}

// Config is built once at startup and passed by value to the server. Nothing
// mutates it afterwards.
type Config struct {
	AppName            string
	ApexDomains        []string
	ReservedSubdomains sets.String
	CrawlerSignatures  sets.String
	Redirects          map[string]Redirect
	OriginalHostHeader string

	PublishID  string
	Collection string
	ShellPath  string

	AssetExtensions   sets.String
	AssetPathPrefix   string
	ServiceWorkerPath string
	ReportPath        string
	DefaultThumbnail  string

	ProfileMaxAge   time.Duration
	PreviewMaxAge   time.Duration
	DiscoveryMaxAge time.Duration
}

// fileConfig is the YAML shape of the config file. Empty fields keep defaults.
type fileConfig struct {
	AppName            string              `yaml:"appName"`
	ApexDomains        []string            `yaml:"apexDomains"`
	ReservedSubdomains []string            `yaml:"reservedSubdomains"`
	CrawlerSignatures  []string            `yaml:"crawlerSignatures"`
	Redirects          map[string]Redirect `yaml:"redirects"`
	OriginalHostHeader string              `yaml:"originalHostHeader"`
	PublishID          string              `yaml:"publishId"`
	Collection         string              `yaml:"collection"`
	ShellPath          string              `yaml:"shellPath"`
	AssetExtensions    []string            `yaml:"assetExtensions"`
	AssetPathPrefix    string              `yaml:"assetPathPrefix"`
	DefaultThumbnail   string              `yaml:"defaultThumbnail"`
	ProfileMaxAge      time.Duration       `yaml:"profileMaxAge"`
	PreviewMaxAge      time.Duration       `yaml:"previewMaxAge"`
	DiscoveryMaxAge    time.Duration       `yaml:"discoveryMaxAge"`
}

// Default returns the production configuration for divine.video.
func Default() Config {
	return Config{
		AppName:            "diVine",
		ApexDomains:        []string{"divine.video", "dvine.video"},
		ReservedSubdomains: sets.NewString("www", "admin", "api", "app", "mail", "static", "cdn", "relay", "blog", "help", "support", "status"),
		CrawlerSignatures: sets.NewString(
			"facebookexternalhit", "facebot", "twitterbot", "linkedinbot", "slackbot",
			"slack-imgproxy", "discordbot", "telegrambot", "whatsapp", "skypeuripreview",
			"pinterest", "redditbot", "applebot", "googlebot", "bingbot", "embedly",
			"quora link preview", "vkshare", "mastodon", "bluesky", "iframely",
			"ia_archiver", "archive.org_bot", "tumblr", "snapchat", "signal",
		),
		Redirects:          map[string]Redirect{},
		OriginalHostHeader: DefaultOriginalHostHeader,
		PublishID:          "divine-web",
		Collection:         "live",
		ShellPath:          DefaultShellPath,
		AssetExtensions: sets.NewString(
			".js", ".mjs", ".css", ".map", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".webp",
			".avif", ".woff", ".woff2", ".ttf", ".otf", ".json", ".txt", ".xml", ".webmanifest",
			".mp4", ".webm", ".wasm",
		),
		AssetPathPrefix:   "/assets/",
		ServiceWorkerPath: "/sw.js",
		ReportPath:        "/api/report",
		DefaultThumbnail:  "https://divine.video/og-image.png",
		ProfileMaxAge:     30 * time.Second,
		PreviewMaxAge:     5 * time.Minute,
		DiscoveryMaxAge:   time.Minute,
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty path
// yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		err := cfg.Validate()
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.apply(fc)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) apply(fc fileConfig) {
	setString(&c.AppName, fc.AppName)
	setString(&c.OriginalHostHeader, fc.OriginalHostHeader)
	setString(&c.PublishID, fc.PublishID)
	setString(&c.Collection, fc.Collection)
	setString(&c.ShellPath, fc.ShellPath)
	setString(&c.AssetPathPrefix, fc.AssetPathPrefix)
	setString(&c.DefaultThumbnail, fc.DefaultThumbnail)

	if len(fc.ApexDomains) > 0 {
		c.ApexDomains = nil
		for _, d := range fc.ApexDomains {
			c.ApexDomains = append(c.ApexDomains, strings.ToLower(strings.TrimSpace(d)))
		}
	}
	if len(fc.ReservedSubdomains) > 0 {
		c.ReservedSubdomains = lowerSet(fc.ReservedSubdomains)
	}
	if len(fc.CrawlerSignatures) > 0 {
		c.CrawlerSignatures = lowerSet(fc.CrawlerSignatures)
	}
	if len(fc.AssetExtensions) > 0 {
		c.AssetExtensions = lowerSet(fc.AssetExtensions)
	}
	if len(fc.Redirects) > 0 {
		c.Redirects = make(map[string]Redirect, len(fc.Redirects))
		maps.Copy(c.Redirects, fc.Redirects)
	}

	if fc.ProfileMaxAge > 0 {
		c.ProfileMaxAge = fc.ProfileMaxAge
	}
	if fc.PreviewMaxAge > 0 {
		c.PreviewMaxAge = fc.PreviewMaxAge
	}
	if fc.DiscoveryMaxAge > 0 {
		c.DiscoveryMaxAge = fc.DiscoveryMaxAge
	}
}

// Validate checks the configuration and fills in redirect status defaults.
func (c *Config) Validate() error {
	if len(c.ApexDomains) == 0 {
		return fmt.Errorf("at least one apex domain is required")
	}
	for _, d := range c.ApexDomains {
		if d == "" || strings.HasPrefix(d, ".") || strings.HasSuffix(d, ".") {
			return fmt.Errorf("invalid apex domain %q", d)
		}
	}
	if c.OriginalHostHeader == "" {
		return fmt.Errorf("original host header must not be empty")
	}
	if !strings.HasPrefix(c.ShellPath, "/") {
		return fmt.Errorf("shell path %q must start with /", c.ShellPath)
	}

	for path, r := range c.Redirects {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("redirect path %q must start with /", path)
		}
		u, err := url.Parse(r.Location)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("redirect %s: location %q is not an absolute URL", path, r.Location)
		}
		switch r.Status {
		case 0:
			r.Status = http.StatusFound
			c.Redirects[path] = r
		case http.StatusMovedPermanently, http.StatusFound:
		default:
			return fmt.Errorf("redirect %s: unsupported status %d", path, r.Status)
		}
	}
	return nil
}

// RedirectPaths returns the redirect table's paths in stable order.
func (c Config) RedirectPaths() []string {
	paths := maps.Keys(c.Redirects)
	slices.Sort(paths)
	return paths
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func lowerSet(values []string) sets.String {
	s := sets.NewString()
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			s.Insert(v)
		}
	}
	return s
}
