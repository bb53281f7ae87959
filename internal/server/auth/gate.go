package auth

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ownyourdata/semcon/internal/common"
	"github.com/ownyourdata/semcon/internal/server/models"
)

// Gate decides whether a caller may read a DID-owned record. It is inert
// unless authorization is enabled in the configuration.
type Gate struct {
	enabled bool
	secret  []byte
	docs    DocumentResolver
}

// DocumentResolver looks up the DID document owning a record.
type DocumentResolver interface {
	FindDocument(ctx context.Context, did string) (*models.DidDocument, error)
}

func NewGate(enabled bool, secret []byte, docs DocumentResolver) *Gate {
	return &Gate{enabled: enabled, secret: secret, docs: docs}
}

// Enabled reports whether the gate is active.
func (g *Gate) Enabled() bool { return g.enabled }

// AuthorizeRead checks a single-record read. Records without a DID are
// always readable. For DID-owned records the caller's token must carry a
// public key matching the first colon-delimited segment of the document's
// declared key; a missing or invalid token fails before any comparison.
func (g *Gate) AuthorizeRead(ctx context.Context, rec *models.Record, bearerToken string) error {
	if !g.enabled || rec == nil || rec.DID == "" {
		return nil
	}

	if bearerToken == "" {
		return common.ErrUnauthorized
	}
	claims, err := Introspect(g.secret, bearerToken)
	if err != nil {
		return common.ErrUnauthorized
	}

	doc, err := g.docs.FindDocument(ctx, rec.DID)
	if err != nil {
		return common.ErrUnauthorized
	}
	declared := declaredKey(doc.Doc)

	if claims.PublicKey != "" && claims.PublicKey != declared {
		return common.ErrUnauthorized
	}
	return nil
}

// declaredKey extracts the document's signing key: the first segment of
// the colon-delimited "key" field.
func declaredKey(doc json.RawMessage) string {
	var fields struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(doc, &fields); err != nil {
		return ""
	}
	key, _, _ := strings.Cut(fields.Key, ":")
	return key
}
