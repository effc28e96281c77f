package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/acorn-io/acorn-edge/pkg/db"
	"github.com/acorn-io/acorn-edge/pkg/model"
	"github.com/sirupsen/logrus"
)

const identityKeyPrefix = "user:"

// IdentityKey is the store key of a username's identity record.
func IdentityKey(name string) string {
	return identityKeyPrefix + strings.ToLower(name)
}

// LookupIdentity loads the identity record for name. A missing record, a
// malformed record and a record without a public key are all not-found; only
// store failures surface as failed or timed out.
func (b *backend) LookupIdentity(ctx context.Context, name string) Result[model.IdentityRecord] {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	key := IdentityKey(name)
	logrus.Debugf("looking up identity %s", key)

	raw, err := b.db.Get(ctx, key)
	if errors.Is(err, db.ErrNotFound) {
		return notFound[model.IdentityRecord](err)
	}
	if err != nil {
		return failed[model.IdentityRecord](fmt.Errorf("reading %s: %w", key, err))
	}

	var record model.IdentityRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		logrus.Warnf("malformed identity record %s: %v", key, err)
		return notFound[model.IdentityRecord](fmt.Errorf("decoding %s: %w", key, err))
	}
	if record.Pubkey == "" {
		return notFound[model.IdentityRecord](fmt.Errorf("identity %s has no pubkey", key))
	}
	if record.Username == "" {
		record.Username = strings.ToLower(name)
	}

	return found(record)
}
