package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealOpen_RoundTrip(t *testing.T) {
	t.Parallel()

	key := DeriveKey([]byte("container secret"), []byte("salt1234"))
	require.Len(t, key, KeySize)

	in := map[string]any{"a": float64(1), "b": "two"}
	ct, nonce, err := SealItem(in, key)
	require.NoError(t, err)
	require.NotEmpty(t, ct)

	var out map[string]any
	require.NoError(t, OpenItem(ct, nonce, key, &out))
	require.Equal(t, in, out)
}

func TestOpenItem_WrongKey(t *testing.T) {
	t.Parallel()

	key := DeriveKey([]byte("secret"), []byte("salt1234"))
	ct, nonce, err := SealItem("payload", key)
	require.NoError(t, err)

	other := DeriveKey([]byte("other"), []byte("salt1234"))
	var out string
	require.Error(t, OpenItem(ct, nonce, other, &out))
}

func TestOpenItem_BadNonce(t *testing.T) {
	t.Parallel()

	key := DeriveKey([]byte("secret"), []byte("salt1234"))
	ct, _, err := SealItem("payload", key)
	require.NoError(t, err)

	var out string
	require.Error(t, OpenItem(ct, []byte("short"), key, &out))
}

func TestDeriveKey_Deterministic(t *testing.T) {
	t.Parallel()

	k1 := DeriveKey([]byte("s"), []byte("salt0000"))
	k2 := DeriveKey([]byte("s"), []byte("salt0000"))
	k3 := DeriveKey([]byte("s"), []byte("salt0001"))
	require.Equal(t, k1, k2)
	require.NotEqual(t, k1, k3)
}

func TestWipe(t *testing.T) {
	t.Parallel()

	b := []byte{1, 2, 3}
	Wipe(b)
	require.Equal(t, []byte{0, 0, 0}, b)
}
