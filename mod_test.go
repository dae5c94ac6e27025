package ballot

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	require.Equal(t, zerolog.WarnLevel, parseLevel("WARN"))
	require.Equal(t, zerolog.InfoLevel, parseLevel("info"))
	require.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	require.Equal(t, zerolog.TraceLevel, parseLevel("trace"))
	require.Equal(t, defaultLevel, parseLevel(""))
	require.Equal(t, zerolog.TraceLevel, parseLevel("unknown"))
}
