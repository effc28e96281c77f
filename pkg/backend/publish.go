package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/acorn-io/acorn-edge/pkg/db"
	"github.com/acorn-io/acorn-edge/pkg/model"
)

// Publisher writes files into a published collection the same way the build
// pipeline does: body under its digest first, then the index entry.
type Publisher struct {
	db         db.Database
	publishID  string
	collection string
}

func NewPublisher(database db.Database, publishID, collection string) *Publisher {
	return &Publisher{db: database, publishID: publishID, collection: collection}
}

// Publish stores body and points path at it. The index is read, modified and
// written back, so concurrent publishers to one collection can lose entries.
func (p *Publisher) Publish(ctx context.Context, path, contentType string, body []byte) (model.ContentIndexEntry, error) {
	sum := sha256.Sum256(body)
	digest := hex.EncodeToString(sum[:])

	if err := p.db.Put(ctx, fileKey(p.publishID, hashSHA256, digest), body); err != nil {
		return model.ContentIndexEntry{}, fmt.Errorf("storing content for %s: %w", path, err)
	}

	ik := indexKey(p.publishID, p.collection)
	index := model.ContentIndex{}
	raw, err := p.db.Get(ctx, ik)
	switch {
	case errors.Is(err, db.ErrNotFound):
	case err != nil:
		return model.ContentIndexEntry{}, fmt.Errorf("reading content index %s: %w", ik, err)
	default:
		if err := json.Unmarshal(raw, &index); err != nil {
			return model.ContentIndexEntry{}, fmt.Errorf("decoding content index %s: %w", ik, err)
		}
	}

	entry := model.ContentIndexEntry{
		Key:         hashSHA256 + ":" + digest,
		Size:        int64(len(body)),
		ContentType: contentType,
	}
	index[path] = entry

	raw, err = json.Marshal(index)
	if err != nil {
		return model.ContentIndexEntry{}, err
	}
	if err := p.db.Put(ctx, ik, raw); err != nil {
		return model.ContentIndexEntry{}, fmt.Errorf("writing content index %s: %w", ik, err)
	}
	return entry, nil
}
