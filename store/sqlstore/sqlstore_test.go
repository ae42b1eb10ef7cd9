package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dojoengine/torii-go/felt"
	"github.com/dojoengine/torii-go/store"
)

// bindingValue is exercised directly since it is a pure function; the rest
// of Sink needs a live gorm connection (see DESIGN.md).
func TestBindingValue(t *testing.T) {
	f := felt.MustFromHex("0xcafe")

	require.Equal(t, "hello", bindingValue(store.StringBinding("hello")))
	require.Equal(t, f.Bytes(), bindingValue(store.FeltBinding(f)))
	require.Equal(t, int64(42), bindingValue(store.IntBinding(42)))
	require.Equal(t, true, bindingValue(store.BoolBinding(true)))
	require.Equal(t, []byte{1, 2, 3}, bindingValue(store.BytesBinding([]byte{1, 2, 3})))
	require.Nil(t, bindingValue(store.Binding{Kind: store.BindingKind(99)}))
}
