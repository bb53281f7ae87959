package cli

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/ownyourdata/semcon/internal/common"
	"github.com/ownyourdata/semcon/internal/cryptox"
)

// sealedPayload is the wire shape of a sealed item: the container stores
// it as an opaque record and never sees the plaintext.
type sealedPayload struct {
	Cipher string `json:"cipher"`
	Nonce  string `json:"nonce"`
	Salt   string `json:"salt"`
}

// sealBody encrypts the item part of body with a key derived from secret.
// A meta field on an object body stays in the clear so the record remains
// addressable by schema and containment queries over its metadata.
func sealBody(body []byte, secret string) ([]byte, error) {
	item := json.RawMessage(body)
	var meta json.RawMessage

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		if m, ok := obj["meta"]; ok {
			meta = m
			delete(obj, "meta")
		}
		var marshalErr error
		item, marshalErr = json.Marshal(obj)
		if marshalErr != nil {
			return nil, marshalErr
		}
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := cryptox.DeriveKey([]byte(secret), salt)
	defer cryptox.Wipe(key)

	cipher, nonce, err := cryptox.SealItem(item, key)
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"sealed": sealedPayload{
			Cipher: base64.StdEncoding.EncodeToString(cipher),
			Nonce:  base64.StdEncoding.EncodeToString(nonce),
			Salt:   base64.StdEncoding.EncodeToString(salt),
		},
	}
	if meta != nil {
		out["meta"] = meta
	}
	return json.Marshal(out)
}

// openSealed decrypts a sealed record payload. It accepts either a plain
// item projection or a full projection with the sealed item under "data".
func openSealed(body []byte, secret string) (json.RawMessage, error) {
	var wrapper struct {
		Sealed *sealedPayload  `json:"sealed"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: not a sealed record", common.ErrInvalidInput)
	}
	if wrapper.Sealed == nil && len(wrapper.Data) > 0 {
		return openSealed(wrapper.Data, secret)
	}
	if wrapper.Sealed == nil {
		return nil, fmt.Errorf("%w: not a sealed record", common.ErrInvalidInput)
	}

	cipher, err := base64.StdEncoding.DecodeString(wrapper.Sealed.Cipher)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext", common.ErrInvalidInput)
	}
	nonce, err := base64.StdEncoding.DecodeString(wrapper.Sealed.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: bad nonce", common.ErrInvalidInput)
	}
	salt, err := base64.StdEncoding.DecodeString(wrapper.Sealed.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad salt", common.ErrInvalidInput)
	}

	key := cryptox.DeriveKey([]byte(secret), salt)
	defer cryptox.Wipe(key)

	var item json.RawMessage
	if err := cryptox.OpenItem(cipher, nonce, key, &item); err != nil {
		return nil, fmt.Errorf("unseal: %w", err)
	}
	return item, nil
}
