package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/acorn-io/acorn-edge/pkg/model"
	"github.com/sirupsen/logrus"
)

const maxUpstreamBody = 1 << 20

// FetchVideo calls GET /api/videos/{id} on the metadata API.
func (b *backend) FetchVideo(ctx context.Context, id string) Result[model.VideoResponse] {
	var resp model.VideoResponse
	status, err := b.getJSON(ctx, "/api/videos/"+url.PathEscape(id), &resp)
	switch {
	case err != nil:
		return failed[model.VideoResponse](err)
	case status == http.StatusNotFound:
		return notFound[model.VideoResponse](fmt.Errorf("video %s not found upstream", id))
	}
	return found(resp)
}

// FetchProfile calls GET /api/users/{pubkey} on the profile API.
func (b *backend) FetchProfile(ctx context.Context, pubkey string) Result[model.UserResponse] {
	var resp model.UserResponse
	status, err := b.getJSON(ctx, "/api/users/"+url.PathEscape(pubkey), &resp)
	switch {
	case err != nil:
		return failed[model.UserResponse](err)
	case status == http.StatusNotFound:
		return notFound[model.UserResponse](fmt.Errorf("user %s not found upstream", pubkey))
	}
	return found(resp)
}

// getJSON decodes a 2xx response into out. A 404 is returned as a status with
// no error; any other non-2xx status is an error.
func (b *backend) getJSON(ctx context.Context, path string, out interface{}) (int, error) {
	if b.apiBaseURL == "" {
		return 0, fmt.Errorf("no upstream api configured")
	}

	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	u := b.apiBaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if b.userAgent != "" {
		req.Header.Set("User-Agent", b.userAgent)
	}

	logrus.Debugf("upstream GET %s", u)
	resp, err := b.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("upstream GET %s: unexpected status %d", u, resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUpstreamBody)).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("upstream GET %s: decoding body: %w", u, err)
	}
	return resp.StatusCode, nil
}
