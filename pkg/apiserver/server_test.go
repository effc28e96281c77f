package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/acorn-io/acorn-edge/pkg/backend"
	"github.com/acorn-io/acorn-edge/pkg/config"
	"github.com/acorn-io/acorn-edge/pkg/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const (
	alicePubkey = "7e7e9c42a91bfef19fa929e5fda1b72e0ebc1a4c1141673e2794234d86addf4e"
	aliceNpub   = "npub10elfcs4fr0l0r8af98jlmgdh9c8tcxjvz9qkw038js35mp4dma8qzvjptg"

	testShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>diVine</title>
<meta name="description" content="Short looping videos">
<meta property="og:title" content="diVine">
<meta property="og:description" content="Short looping videos">
<meta property="og:image" content="https://divine.video/og.png">
<meta property="og:url" content="https://divine.video/">
<meta name="twitter:title" content="diVine">
<meta name="twitter:description" content="Short looping videos">
<meta name="twitter:image" content="https://divine.video/og.png">
</head>
<body><div id="root"></div></body>
</html>`
)

type fakeBackend struct {
	identities  map[string]model.IdentityRecord
	identityErr error
	content     map[string]backend.Content
	videos      map[string]model.VideoResponse
	videoErr    error
	profiles    map[string]model.UserResponse
}

func (f *fakeBackend) LookupIdentity(_ context.Context, name string) backend.Result[model.IdentityRecord] {
	if f.identityErr != nil {
		return backend.Result[model.IdentityRecord]{Status: backend.StatusFailed, Err: f.identityErr}
	}
	rec, ok := f.identities[strings.ToLower(name)]
	if !ok {
		return backend.Result[model.IdentityRecord]{Status: backend.StatusNotFound, Err: errors.New("no such user")}
	}
	return backend.Result[model.IdentityRecord]{Status: backend.StatusFound, Value: rec}
}

func (f *fakeBackend) LoadContent(_ context.Context, path string) backend.Result[backend.Content] {
	c, ok := f.content[path]
	if !ok {
		return backend.Result[backend.Content]{Status: backend.StatusNotFound, Err: errors.New("no such content")}
	}
	return backend.Result[backend.Content]{Status: backend.StatusFound, Value: c}
}

func (f *fakeBackend) FetchVideo(_ context.Context, id string) backend.Result[model.VideoResponse] {
	if f.videoErr != nil {
		return backend.Result[model.VideoResponse]{Status: backend.StatusFailed, Err: f.videoErr}
	}
	v, ok := f.videos[id]
	if !ok {
		return backend.Result[model.VideoResponse]{Status: backend.StatusNotFound, Err: errors.New("no such video")}
	}
	return backend.Result[model.VideoResponse]{Status: backend.StatusFound, Value: v}
}

func (f *fakeBackend) FetchProfile(_ context.Context, pubkey string) backend.Result[model.UserResponse] {
	p, ok := f.profiles[pubkey]
	if !ok {
		return backend.Result[model.UserResponse]{Status: backend.StatusTimedOut, Err: context.DeadlineExceeded}
	}
	return backend.Result[model.UserResponse]{Status: backend.StatusFound, Value: p}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		identities: map[string]model.IdentityRecord{
			"alice":   {Username: "alice", Pubkey: alicePubkey, Status: model.StatusActive, Relays: []string{"wss://relay.divine.video"}},
			"retired": {Username: "retired", Pubkey: alicePubkey, Status: "inactive"},
			"nokey":   {Username: "nokey", Status: model.StatusActive},
		},
		content: map[string]backend.Content{
			"/index.html": {Path: "/index.html", ContentType: "text/html", Body: []byte(testShell)},
		},
		videos:   map[string]model.VideoResponse{},
		profiles: map[string]model.UserResponse{},
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ApexDomains = []string{"example.com"}
	cfg.DefaultThumbnail = "https://example.com/og.png"
	cfg.Redirects = map[string]config.Redirect{
		"/discord": {Location: "https://discord.gg/divine", Status: http.StatusFound},
		"/ios":     {Location: "https://apps.apple.com/app/divine", Status: http.StatusMovedPermanently},
	}
	return cfg
}

// testEdge wires the router to a fake backend and a recording static origin.
type testEdge struct {
	router http.Handler
	static *httptest.Server
	paths  []string
}

func newTestEdge(t *testing.T, cfg config.Config, b backend.Backend) *testEdge {
	t.Helper()
	e := &testEdge{}
	e.static = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.paths = append(e.paths, r.URL.Path)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Vary", "Accept-Encoding")
		_, _ = w.Write([]byte("static:" + r.URL.Path))
	}))
	t.Cleanup(e.static.Close)

	origin, err := url.Parse(e.static.URL)
	require.NoError(t, err)

	e.router = NewRouter(cfg, b, Upstreams{StaticOrigin: origin}, nil, logrus.NewEntry(logrus.New()))
	return e
}

func (e *testEdge) do(method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEdge) get(target string) *httptest.ResponseRecorder {
	return e.do(http.MethodGet, target, nil)
}

func varies(h http.Header, field string) bool {
	for _, v := range h.Values("Vary") {
		for _, f := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(f), field) {
				return true
			}
		}
	}
	return false
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// injectedPayload extracts the JSON assigned to window.__GLOBAL_USER__.
func injectedPayload(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	const marker = "window.__GLOBAL_USER__ = "
	start := strings.Index(body, marker)
	require.GreaterOrEqual(t, start, 0, "payload not injected")
	rest := body[start+len(marker):]
	end := strings.Index(rest, ";</script>")
	require.GreaterOrEqual(t, end, 0)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(rest[:end]), &out))
	return out
}

// metaContent returns the content of the first meta tag whose name or
// property is key.
func metaContent(t *testing.T, body, key string) string {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	require.NoError(t, err)

	var found string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var match bool
			var content string
			for _, a := range n.Attr {
				switch a.Key {
				case "name", "property", "http-equiv":
					match = match || a.Val == key
				case "content":
					content = a.Val
				}
			}
			if match {
				found = content
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return found
}

func TestHealthz(t *testing.T) {
	e := newTestEdge(t, testConfig(), newFakeBackend())
	rec := e.get("http://example.com/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestProbesStayOffSubdomains(t *testing.T) {
	e := newTestEdge(t, testConfig(), newFakeBackend())

	for _, p := range []string{"/healthz", "/readyz"} {
		rec := e.get("http://alice.example.com" + p)
		require.Equal(t, http.StatusOK, rec.Code, p)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"), p)
		assert.Equal(t, "alice", injectedPayload(t, rec.Body.String())["subdomain"], p)
	}
}

func TestStaticOriginTimeout(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://example.com/discover", nil)
	proxyErrorHandler("static content server")(rec, req, context.DeadlineExceeded)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	rec = httptest.NewRecorder()
	proxyErrorHandler("static content server")(rec, req, errors.New("connection refused"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestReadyz(t *testing.T) {
	notReady := errors.New("shell missing")
	router := NewRouter(testConfig(), newFakeBackend(), Upstreams{}, func() error { return notReady }, logrus.NewEntry(logrus.New()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	notReady = nil
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://example.com/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestWWWRedirect(t *testing.T) {
	e := newTestEdge(t, testConfig(), newFakeBackend())

	rec := e.get("http://www.example.com/video/abc?t=1")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "https://example.com/video/abc?t=1", rec.Header().Get("Location"))

	rec = e.do(http.MethodGet, "http://edge.internal/", http.Header{"X-Original-Host": {"www.alice.example.com"}})
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "https://alice.example.com/", rec.Header().Get("Location"))
}

func TestApexDiscovery(t *testing.T) {
	b := newFakeBackend()
	e := newTestEdge(t, testConfig(), b)

	rec := e.get("http://example.com/.well-known/nostr.json?name=Alice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
	assert.True(t, varies(rec.Header(), "X-Original-Host"))
	assert.JSONEq(t, `{"names":{"alice":"`+alicePubkey+`"},"relays":{"`+alicePubkey+`":["wss://relay.divine.video"]}}`, rec.Body.String())

	for _, name := range []string{"nobody", "retired"} {
		rec = e.get("http://example.com/.well-known/nostr.json?name=" + name)
		assert.Equal(t, http.StatusOK, rec.Code, name)
		assert.JSONEq(t, `{"names":{}}`, rec.Body.String(), name)
	}

	rec = e.get("http://example.com/.well-known/nostr.json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	b.identityErr = errors.New("store unavailable")
	rec = e.get("http://example.com/.well-known/nostr.json?name=alice")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "store unavailable")
}

func TestDiscoveryOmitsEmptyRelays(t *testing.T) {
	b := newFakeBackend()
	b.identities["bob"] = model.IdentityRecord{Username: "bob", Pubkey: alicePubkey, Status: model.StatusActive}
	e := newTestEdge(t, testConfig(), b)

	rec := e.get("http://example.com/.well-known/nostr.json?name=bob")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"names":{"bob":"`+alicePubkey+`"}}`, rec.Body.String())
	assert.NotContains(t, decodeJSON(t, rec), "relays")
}

func TestSubdomainDiscovery(t *testing.T) {
	e := newTestEdge(t, testConfig(), newFakeBackend())

	rec := e.get("http://alice.example.com/.well-known/nostr.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"names":{"_":"`+alicePubkey+`"},"relays":{"`+alicePubkey+`":["wss://relay.divine.video"]}}`, rec.Body.String())

	for _, sub := range []string{"retired", "nobody"} {
		rec = e.get("http://" + sub + ".example.com/.well-known/nostr.json")
		assert.Equal(t, http.StatusNotFound, rec.Code, sub)
	}
}

func TestProfileInjection(t *testing.T) {
	e := newTestEdge(t, testConfig(), newFakeBackend())

	rec := e.get("http://alice.example.com/")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=30", rec.Header().Get("Cache-Control"))
	assert.True(t, varies(rec.Header(), "X-Original-Host"))
	assert.Equal(t, "alice", rec.Header().Get(subdomainHeader))
	assert.Equal(t, degradedEnrichment, rec.Header().Get(degradedHeader))

	body := rec.Body.String()
	assert.Contains(t, body, "<!-- subdomain profile: alice -->")
	assert.Less(t, strings.Index(body, "__GLOBAL_USER__"), strings.Index(body, "</head>"))

	payload := injectedPayload(t, body)
	assert.Equal(t, "alice", payload["subdomain"])
	assert.Equal(t, "alice", payload["displayName"])
	assert.Equal(t, alicePubkey, payload["pubkey"])
	assert.Equal(t, aliceNpub, payload["npub"])
	assert.Equal(t, "alice@example.com", payload["nip05"])
	assert.Equal(t, "example.com", payload["apexDomain"])
	assert.Contains(t, payload, "picture")
	assert.Nil(t, payload["picture"])

	assert.Equal(t, "alice on diVine", metaContent(t, body, "og:title"))
	assert.Equal(t, "https://alice.example.com/", metaContent(t, body, "og:url"))
	assert.Equal(t, "https://example.com/og.png", metaContent(t, body, "twitter:image"))
	assert.NotContains(t, body, "Short looping videos")
}

func TestProfileInjectionEnriched(t *testing.T) {
	b := newFakeBackend()
	b.profiles[alicePubkey] = model.UserResponse{
		Profile: &model.UserProfile{
			DisplayName: `Alice "A" <Lastname>`,
			Picture:     "https://img.example.com/a.png",
			About:       "Loops & cats",
		},
		Social: &model.UserSocial{FollowerCount: 12, FollowingCount: 3},
		Stats:  &model.UserStats{VideoCount: 40},
	}
	e := newTestEdge(t, testConfig(), b)

	rec := e.get("http://alice.example.com/some/page")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(degradedHeader))

	body := rec.Body.String()
	payload := injectedPayload(t, body)
	assert.Equal(t, `Alice "A" <Lastname>`, payload["displayName"])
	assert.Equal(t, "https://img.example.com/a.png", payload["picture"])
	assert.EqualValues(t, 12, payload["followersCount"])
	assert.EqualValues(t, 40, payload["videoCount"])

	assert.NotContains(t, body, "<Lastname>")
	assert.Equal(t, `Alice "A" <Lastname> on diVine`, metaContent(t, body, "og:title"))
	assert.Equal(t, "Loops & cats", metaContent(t, body, "description"))
	assert.Equal(t, "https://img.example.com/a.png", metaContent(t, body, "og:image"))
}

func TestProfileNotFound(t *testing.T) {
	e := newTestEdge(t, testConfig(), newFakeBackend())

	for _, sub := range []string{"nobody", "retired", "nokey"} {
		rec := e.get("http://" + sub + ".example.com/")
		assert.Equal(t, http.StatusNotFound, rec.Code, sub)
		assert.Contains(t, rec.Body.String(), "profile not found", sub)
	}
}

func TestProfileStoreFailure(t *testing.T) {
	b := newFakeBackend()
	b.identityErr = errors.New("store unavailable")
	e := newTestEdge(t, testConfig(), b)

	rec := e.get("http://alice.example.com/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestProfileShellMissingRedirects(t *testing.T) {
	b := newFakeBackend()
	b.content = map[string]backend.Content{}
	e := newTestEdge(t, testConfig(), b)

	rec := e.get("http://alice.example.com/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/profile/"+aliceNpub, rec.Header().Get("Location"))

	b.content["/index.html"] = backend.Content{Body: []byte("<html><body>no head</body></html>")}
	rec = e.get("http://alice.example.com/")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestSubdomainAssetsGoToStatic(t *testing.T) {
	e := newTestEdge(t, testConfig(), newFakeBackend())

	for _, p := range []string{"/assets/index-abc.js", "/favicon.ico", "/manifest.webmanifest"} {
		rec := e.get("http://nobody.example.com" + p)
		assert.Equal(t, http.StatusOK, rec.Code, p)
		assert.Equal(t, "static:"+p, rec.Body.String())
	}
}

func TestReservedSubdomainIsApex(t *testing.T) {
	e := newTestEdge(t, testConfig(), newFakeBackend())

	rec := e.get("http://api.example.com/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "static:/", rec.Body.String())
}

func TestRedirectTable(t *testing.T) {
	e := newTestEdge(t, testConfig(), newFakeBackend())

	rec := e.get("http://example.com/discord")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://discord.gg/divine", rec.Header().Get("Location"))

	rec = e.get("http://example.com/ios")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)

	rec = e.get("http://example.com/discord/extra")
	assert.Equal(t, "static:/discord/extra", rec.Body.String())
}

func TestCrawlerPreview(t *testing.T) {
	b := newFakeBackend()
	b.videos["abc123"] = model.VideoResponse{
		Event: &model.VideoEvent{
			Tags:    [][]string{{"title", "<script>alert(1)</script>"}, {"imeta", "url https://cdn.example.com/v.mp4", "image https://cdn.example.com/t.jpg"}},
			Content: "Cats & dogs",
		},
		Stats: &model.VideoStats{Reactions: 5},
	}
	e := newTestEdge(t, testConfig(), b)

	ua := http.Header{"User-Agent": {"Mozilla/5.0 (compatible; Twitterbot/1.0)"}}
	rec := e.do(http.MethodGet, "http://example.com/video/abc123", ua)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))
	assert.True(t, varies(rec.Header(), "User-Agent"))

	body := rec.Body.String()
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Equal(t, "<script>alert(1)</script>", metaContent(t, body, "og:title"))
	assert.Equal(t, "Cats & dogs", metaContent(t, body, "og:description"))
	assert.Equal(t, "https://cdn.example.com/t.jpg", metaContent(t, body, "twitter:image"))
}

func TestCrawlerPreviewUpstreamUnreachable(t *testing.T) {
	b := newFakeBackend()
	b.videoErr = errors.New("dial tcp: connection refused")
	e := newTestEdge(t, testConfig(), b)

	rec := e.do(http.MethodGet, "http://example.com/video/abc123", http.Header{"User-Agent": {"facebookexternalhit/1.1"}})
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Video on diVine</title>")
	assert.Equal(t, "https://example.com/og.png", metaContent(t, body, "og:image"))
	assert.Equal(t, "0;url=https://example.com/video/abc123", metaContent(t, body, "refresh"))
}

func TestBrowserVideoGoesToStatic(t *testing.T) {
	e := newTestEdge(t, testConfig(), newFakeBackend())

	rec := e.do(http.MethodGet, "http://example.com/video/abc123", http.Header{"User-Agent": {"Mozilla/5.0 (X11; Linux x86_64) Firefox/120.0"}})
	assert.Equal(t, "static:/video/abc123", rec.Body.String())
	assert.True(t, varies(rec.Header(), "User-Agent"))
	assert.True(t, varies(rec.Header(), "X-Original-Host"))
	assert.True(t, varies(rec.Header(), "Accept-Encoding"))

	rec = e.get("http://example.com/discover")
	assert.False(t, varies(rec.Header(), "User-Agent"))
}

func TestStaticFallbackKeepsOriginCaching(t *testing.T) {
	e := newTestEdge(t, testConfig(), newFakeBackend())

	rec := e.get("http://example.com/discover")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.True(t, varies(rec.Header(), "Accept-Encoding"))
	assert.True(t, varies(rec.Header(), "X-Original-Host"))
	assert.Equal(t, []string{"/discover"}, e.paths)
}

func TestServiceWorkerNeverCached(t *testing.T) {
	e := newTestEdge(t, testConfig(), newFakeBackend())

	rec := e.get("http://example.com/sw.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cacheControlNoStore, rec.Header().Get("Cache-Control"))
	assert.Equal(t, "static:/sw.js", rec.Body.String())
}

func TestFallbackWithoutStaticOrigin(t *testing.T) {
	router := NewRouter(testConfig(), newFakeBackend(), Upstreams{}, nil, logrus.NewEntry(logrus.New()))

	for _, target := range []string{"http://example.com/anything", "http://example.com/sw.js"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}
}

func TestReportPassthrough(t *testing.T) {
	var gotBody, gotPath string
	report := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody, gotPath = string(data), r.URL.Path
		w.Header().Set("Cache-Control", "public, max-age=600")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ticket":42}`))
	}))
	defer report.Close()

	target, err := url.Parse(report.URL + "/tickets")
	require.NoError(t, err)
	router := NewRouter(testConfig(), newFakeBackend(), Upstreams{ReportBackend: target}, nil, logrus.NewEntry(logrus.New()))

	req := httptest.NewRequest(http.MethodPost, "http://example.com/api/report", strings.NewReader(`{"reason":"spam"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"ticket":42}`, rec.Body.String())
	assert.Equal(t, cacheControlNoStore, rec.Header().Get("Cache-Control"))
	assert.Equal(t, `{"reason":"spam"}`, gotBody)
	assert.Equal(t, "/tickets", gotPath)
}
