package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/acorn-io/acorn-edge/pkg/db"
	"github.com/acorn-io/acorn-edge/pkg/model"
	"github.com/sirupsen/logrus"
)

const hashSHA256 = "sha256"

// Content is a published file resolved through the content index.
type Content struct {
	Path        string
	ContentType string
	Body        []byte
}

func indexKey(publishID, collection string) string {
	return fmt.Sprintf("%s_index_%s", publishID, collection)
}

func fileKey(publishID, algorithm, digest string) string {
	return fmt.Sprintf("%s_files_%s_%s", publishID, algorithm, digest)
}

// LoadContent resolves a logical path to its stored bytes: path to
// content-addressed key through the index, then key to body. A break at either
// step is reported, never panicked on.
func (b *backend) LoadContent(ctx context.Context, path string) Result[Content] {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	ik := indexKey(b.publishID, b.collection)
	raw, err := b.db.Get(ctx, ik)
	if errors.Is(err, db.ErrNotFound) {
		return notFound[Content](fmt.Errorf("content index %s missing", ik))
	}
	if err != nil {
		return failed[Content](fmt.Errorf("reading content index %s: %w", ik, err))
	}

	var index model.ContentIndex
	if err := json.Unmarshal(raw, &index); err != nil {
		return failed[Content](fmt.Errorf("decoding content index %s: %w", ik, err))
	}

	entry, ok := index[path]
	if !ok {
		return notFound[Content](fmt.Errorf("path %s not in content index %s", path, ik))
	}

	algorithm, digest, err := parseContentKey(entry.Key)
	if err != nil {
		return failed[Content](fmt.Errorf("index entry %s: %w", path, err))
	}

	fk := fileKey(b.publishID, algorithm, digest)
	logrus.Debugf("resolved %s to %s", path, fk)

	body, err := b.db.Get(ctx, fk)
	if errors.Is(err, db.ErrNotFound) {
		return notFound[Content](fmt.Errorf("content %s for %s missing", fk, path))
	}
	if err != nil {
		return failed[Content](fmt.Errorf("reading content %s: %w", fk, err))
	}

	sum := sha256.Sum256(body)
	if hex.EncodeToString(sum[:]) != digest {
		return failed[Content](fmt.Errorf("content %s does not match its digest", fk))
	}

	return found(Content{
		Path:        path,
		ContentType: entry.ContentType,
		Body:        body,
	})
}

// parseContentKey splits "sha256:<hex>" into algorithm and lower-case digest.
func parseContentKey(key string) (string, string, error) {
	algorithm, digest, ok := strings.Cut(key, ":")
	if !ok {
		return "", "", fmt.Errorf("content key %q has no algorithm", key)
	}
	if algorithm != hashSHA256 {
		return "", "", fmt.Errorf("unsupported content hash %q", algorithm)
	}
	digest = strings.ToLower(digest)
	if b, err := hex.DecodeString(digest); err != nil || len(b) != sha256.Size {
		return "", "", fmt.Errorf("content key %q has an invalid digest", key)
	}
	return algorithm, digest, nil
}
