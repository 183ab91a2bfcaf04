package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderList(t *testing.T) {
	refs := ParseProviderList("mock| openai:key1 |openai:key2")
	require.Len(t, refs, 3)
	assert.Equal(t, ProviderRef{Raw: "openai:key1", Name: "openai", KeyAlias: "key1"}, refs[1])
}

func TestParseProviderListDefaultsToMock(t *testing.T) {
	assert.Equal(t, []ProviderRef{{Raw: "mock", Name: "mock"}}, ParseProviderList(" | "))
}
