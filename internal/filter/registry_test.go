package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
)

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Register("upper", upper()))
	assert.Error(t, reg.Register("upper", upper()), "duplicate names are rejected")
	assert.Error(t, reg.Register("", upper()))
	assert.Error(t, reg.Register("nil", nil))
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("upper", upper()))

	f, err := reg.Lookup("upper")
	require.NoError(t, err)
	assert.Equal(t, TextToText, f.Signature())

	_, err = reg.Lookup("nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownFilter)
	name, ok := ferrors.ContextString(err, "filter")
	require.True(t, ok)
	assert.Equal(t, "nope", name)
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry()
	assert.Empty(t, reg.Names())

	require.NoError(t, reg.Register("zeta", upper()))
	require.NoError(t, reg.Register("alpha", upper()))
	assert.Equal(t, []string{"alpha", "zeta"}, reg.Names())
}
