// Package envelope reconciles the historically supported request body
// shapes of the write protocol into one canonical (item, meta, schema)
// triple. Normalization happens once, as a pure function, before any
// hashing or persistence.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ownyourdata/semcon/internal/common"
)

// Kind tags the recognized envelope shapes.
type Kind int

const (
	// KindBare is a bare JSON array, or an object without data/meta keys.
	KindBare Kind = iota
	// KindWithMeta is a bare object carrying its own meta field.
	KindWithMeta
	// KindStructured is {"data": {...}, "meta": {...}} without a
	// data.content sub-field.
	KindStructured
	// KindLegacy is the old {"data": {"content": ..., "meta": ...}} shape.
	KindLegacy
	// KindDidAnchored is a write carrying a did-document.
	KindDidAnchored
)

// Envelope is the normalized result of sniffing a request body.
type Envelope struct {
	Kind   Kind
	Item   json.RawMessage
	Meta   json.RawMessage // nil when the shape carried no metadata
	Schema string

	// Set only for KindDidAnchored.
	DidDocument json.RawMessage
	DidLog      []json.RawMessage
}

// Normalize parses body and resolves it into an Envelope. It returns
// common.ErrInvalidInput when no item payload can be extracted.
func Normalize(body []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", common.ErrInvalidInput)
	}

	if trimmed[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
		}
		return &Envelope{Kind: KindBare, Item: trimmed}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	if doc, ok := obj["did-document"]; ok && notNull(doc) {
		return normalizeDidAnchored(obj, doc)
	}

	if data, ok := obj["data"]; ok && notNull(data) {
		return normalizeStructured(obj, data)
	}

	return normalizeBareObject(obj)
}

// normalizeBareObject handles a plain object: the payload is the object
// minus {meta, schema}, metadata comes from its meta field.
func normalizeBareObject(obj map[string]json.RawMessage) (*Envelope, error) {
	meta, schema := extractMeta(obj["meta"])

	kind := KindBare
	if _, ok := obj["meta"]; ok {
		kind = KindWithMeta
	}

	item, err := marshalWithout(obj, "meta", "schema")
	if err != nil {
		return nil, err
	}
	return &Envelope{Kind: kind, Item: item, Meta: meta, Schema: schema}, nil
}

// normalizeStructured handles {"data": ...}: legacy shape when data.content
// is present, plain structured otherwise.
func normalizeStructured(obj map[string]json.RawMessage, data json.RawMessage) (*Envelope, error) {
	var dataObj map[string]json.RawMessage
	if err := json.Unmarshal(data, &dataObj); err != nil {
		// data is an array or scalar: take it verbatim, meta from the
		// sibling field.
		meta, schema := extractMeta(obj["meta"])
		return &Envelope{Kind: KindStructured, Item: data, Meta: meta, Schema: schema}, nil
	}

	if content, ok := dataObj["content"]; ok && notNull(content) {
		meta, schema := extractMeta(dataObj["meta"])
		return &Envelope{Kind: KindLegacy, Item: content, Meta: meta, Schema: schema}, nil
	}

	meta, schema := extractMeta(obj["meta"])
	item, err := marshalWithout(dataObj, "meta", "schema")
	if err != nil {
		return nil, err
	}
	return &Envelope{Kind: KindStructured, Item: item, Meta: meta, Schema: schema}, nil
}

// normalizeDidAnchored handles a write carrying a did-document: the item is
// the data value as supplied, metadata comes from data.meta.
func normalizeDidAnchored(obj map[string]json.RawMessage, doc json.RawMessage) (*Envelope, error) {
	data, ok := obj["data"]
	if !ok || !notNull(data) {
		return nil, fmt.Errorf("%w: did-anchored write without data", common.ErrInvalidInput)
	}

	var meta json.RawMessage
	var schema string
	var dataObj map[string]json.RawMessage
	if err := json.Unmarshal(data, &dataObj); err == nil {
		meta, schema = extractMeta(dataObj["meta"])
	}

	env := &Envelope{
		Kind:        KindDidAnchored,
		Item:        data,
		Meta:        meta,
		Schema:      schema,
		DidDocument: doc,
	}

	if rawLog, ok := obj["did-log"]; ok && notNull(rawLog) {
		if err := json.Unmarshal(rawLog, &env.DidLog); err != nil {
			return nil, fmt.Errorf("%w: malformed did-log", common.ErrInvalidInput)
		}
	}
	return env, nil
}

// extractMeta splits a raw meta value into (meta minus schema, schema).
// meta.schema is authoritative for the record schema; a non-object meta is
// passed through untouched.
func extractMeta(raw json.RawMessage) (json.RawMessage, string) {
	if !notNull(raw) {
		return nil, ""
	}

	var metaObj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &metaObj); err != nil {
		return raw, ""
	}

	schema := ""
	if s, ok := metaObj["schema"]; ok && notNull(s) {
		if err := json.Unmarshal(s, &schema); err != nil {
			// Non-string schema values are kept as their JSON text.
			schema = string(bytes.TrimSpace(s))
		}
		delete(metaObj, "schema")
	}

	if len(metaObj) == 0 && schema != "" {
		// Stripping schema may leave an empty object; keep it so callers
		// can still distinguish "had meta" from "no meta".
		out, _ := json.Marshal(metaObj)
		return out, schema
	}

	out, err := json.Marshal(metaObj)
	if err != nil {
		return raw, schema
	}
	return out, schema
}

// marshalWithout re-marshals obj with the given keys removed.
func marshalWithout(obj map[string]json.RawMessage, keys ...string) (json.RawMessage, error) {
	pruned := make(map[string]json.RawMessage, len(obj))
	for k, v := range obj {
		pruned[k] = v
	}
	for _, k := range keys {
		delete(pruned, k)
	}
	out, err := json.Marshal(pruned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	return out, nil
}

func notNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}
