package perrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	err := New(KindConfig, "config.Load", "region %q missing from rename table", "Московская область")
	assert.Equal(t, KindConfig, KindOf(err))
	assert.True(t, IsConfig(err))
	assert.False(t, IsTransport(err))
}

func TestKindOfWrapped(t *testing.T) {
	inner := New(KindTransport, "portal.LookupSamples", "status 500")
	outer := fmt.Errorf("lookup stage: %w", inner)
	assert.Equal(t, KindTransport, KindOf(outer))
	assert.True(t, IsTransport(outer))
}

func TestKindOfForeign(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, IsData(nil))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindTransport, "portal.Ping", cause, "identity check failed")
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "portal.Ping")
	assert.Contains(t, err.Error(), "connection refused")
}
