package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/acorn-io/acorn-edge/pkg/db"
	"github.com/acorn-io/acorn-edge/pkg/model"
)

const defaultTimeout = 3 * time.Second

// Backend resolves identities, published content and upstream metadata for
// the edge server. Every call is bounded by the configured timeout.
type Backend interface {
	LookupIdentity(ctx context.Context, name string) Result[model.IdentityRecord]
	LoadContent(ctx context.Context, path string) Result[Content]
	FetchVideo(ctx context.Context, id string) Result[model.VideoResponse]
	FetchProfile(ctx context.Context, pubkey string) Result[model.UserResponse]
}

type Options struct {
	PublishID  string
	Collection string
	APIBaseURL string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type backend struct {
	db         db.Database
	publishID  string
	collection string
	apiBaseURL string
	userAgent  string
	timeout    time.Duration
	client     *http.Client
}

func NewBackend(database db.Database, opts Options) Backend {
	b := &backend{
		db:         database,
		publishID:  opts.PublishID,
		collection: opts.Collection,
		apiBaseURL: strings.TrimSuffix(opts.APIBaseURL, "/"),
		userAgent:  opts.UserAgent,
		timeout:    opts.Timeout,
		client:     opts.HTTPClient,
	}
	if b.timeout <= 0 {
		b.timeout = defaultTimeout
	}
	if b.client == nil {
		b.client = &http.Client{Timeout: b.timeout}
	}
	return b
}

func (b *backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}
