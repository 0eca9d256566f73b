package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["ingest"])
	assert.True(t, names["install"])
}

func TestNewInstallCmd_RequiresTargetFlag(t *testing.T) {
	cmd := newInstallCmd()
	cmd.SetArgs([]string{"tool:widget@1.0.0"})
	err := cmd.Execute()
	require.Error(t, err)
}

func TestMisconfigurationError_UnwrapsCause(t *testing.T) {
	cause := errors.New("database_url is required")
	err := newMisconfigurationError(cause)

	var misconfig *misconfigurationError
	require.True(t, errors.As(err, &misconfig))
	assert.Equal(t, cause, errors.Unwrap(err))
}
