package json

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/serde"
)

func TestJSONEngine(t *testing.T) {
	ctx := NewContext()
	require.Equal(t, serde.FormatJSON, ctx.GetFormat())

	data, err := ctx.Marshal(struct{ Index int }{Index: 42})
	require.NoError(t, err)
	require.Equal(t, `{"Index":42}`, string(data))

	var m struct{ Index int }
	err = ctx.Unmarshal(data, &m)
	require.NoError(t, err)
	require.Equal(t, 42, m.Index)

	err = ctx.Unmarshal([]byte("{"), &m)
	require.Error(t, err)
}
