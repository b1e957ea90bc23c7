package debug

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexCommittee/config"
)

func TestDisabledDebuggerIsNoop(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	d := NewEinoDebugger(*cfg, nil)

	require.False(t, d.Enabled())
	require.Empty(t, d.URL())
	require.NoError(t, d.Initialize(context.Background()))
}

func TestDebuggerURL(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.EinoDebugEnabled = true
	cfg.EinoDebugPort = 52538

	require.Equal(t, "http://localhost:52538", NewEinoDebugger(*cfg, nil).URL())
}
