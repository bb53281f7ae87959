package envelope

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ownyourdata/semcon/internal/common"
)

func mustObj(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestNormalize_BareArray(t *testing.T) {
	t.Parallel()

	env, err := Normalize([]byte(`[1, 2, {"a": 3}]`))
	require.NoError(t, err)
	require.Equal(t, KindBare, env.Kind)
	require.JSONEq(t, `[1,2,{"a":3}]`, string(env.Item))
	require.Nil(t, env.Meta)
	require.Empty(t, env.Schema)
}

func TestNormalize_BareObject(t *testing.T) {
	t.Parallel()

	env, err := Normalize([]byte(`{"a": 1, "b": 2}`))
	require.NoError(t, err)
	require.Equal(t, KindBare, env.Kind)
	require.Equal(t, map[string]any{"a": float64(1), "b": float64(2)}, mustObj(t, env.Item))
	require.Nil(t, env.Meta)
}

func TestNormalize_ObjectWithMeta(t *testing.T) {
	t.Parallel()

	env, err := Normalize([]byte(`{"a": 1, "meta": {"schema": "Person", "tag": "x"}}`))
	require.NoError(t, err)
	require.Equal(t, KindWithMeta, env.Kind)
	require.Equal(t, map[string]any{"a": float64(1)}, mustObj(t, env.Item))
	require.Equal(t, map[string]any{"tag": "x"}, mustObj(t, env.Meta))
	require.Equal(t, "Person", env.Schema)
}

func TestNormalize_Structured(t *testing.T) {
	t.Parallel()

	env, err := Normalize([]byte(`{"data": {"a": 1}, "meta": {"schema": "S"}}`))
	require.NoError(t, err)
	require.Equal(t, KindStructured, env.Kind)
	require.Equal(t, map[string]any{"a": float64(1)}, mustObj(t, env.Item))
	require.Equal(t, "S", env.Schema)
}

func TestNormalize_StructuredArrayData(t *testing.T) {
	t.Parallel()

	env, err := Normalize([]byte(`{"data": [1, 2], "meta": {"tag": "y"}}`))
	require.NoError(t, err)
	require.Equal(t, KindStructured, env.Kind)
	require.JSONEq(t, `[1,2]`, string(env.Item))
	require.Equal(t, map[string]any{"tag": "y"}, mustObj(t, env.Meta))
}

func TestNormalize_LegacyContent(t *testing.T) {
	t.Parallel()

	body := `{"data": {"content": {"x": 1}, "meta": {"schema": "Old", "k": "v"}}}`
	env, err := Normalize([]byte(body))
	require.NoError(t, err)
	require.Equal(t, KindLegacy, env.Kind)
	require.Equal(t, map[string]any{"x": float64(1)}, mustObj(t, env.Item))
	require.Equal(t, map[string]any{"k": "v"}, mustObj(t, env.Meta))
	require.Equal(t, "Old", env.Schema)
}

func TestNormalize_DidAnchored(t *testing.T) {
	t.Parallel()

	body := `{
		"data": {"v": 7, "meta": {"schema": "Anchored"}},
		"did-document": {"doc": {}, "key": "abc:def", "log": "host@pointer"},
		"did-log": [{"op": "create"}, {"op": "terminate"}]
	}`
	env, err := Normalize([]byte(body))
	require.NoError(t, err)
	require.Equal(t, KindDidAnchored, env.Kind)
	require.Equal(t, "Anchored", env.Schema)
	require.Len(t, env.DidLog, 2)
	require.NotNil(t, env.DidDocument)

	// The item keeps the full data value for DID-anchored writes.
	item := mustObj(t, env.Item)
	require.Equal(t, float64(7), item["v"])
}

func TestNormalize_DidAnchoredWithoutData(t *testing.T) {
	t.Parallel()

	_, err := Normalize([]byte(`{"did-document": {"key": "a:b"}}`))
	require.Error(t, err)
	require.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestNormalize_InvalidInput(t *testing.T) {
	t.Parallel()

	for _, body := range []string{``, `   `, `"scalar"`, `42`, `{"a":`} {
		_, err := Normalize([]byte(body))
		require.Error(t, err, "body %q", body)
		require.True(t, errors.Is(err, common.ErrInvalidInput), "body %q", body)
	}
}

func TestNormalize_MetaSchemaOnly(t *testing.T) {
	t.Parallel()

	env, err := Normalize([]byte(`{"a": 1, "meta": {"schema": "OnlySchema"}}`))
	require.NoError(t, err)
	require.Equal(t, "OnlySchema", env.Schema)
	require.JSONEq(t, `{}`, string(env.Meta))
}
