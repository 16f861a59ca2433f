package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReference(t *testing.T) {
	a, err := GenerateReference("BT", 5)
	require.NoError(t, err)
	b, err := GenerateReference("BT", 5)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "BT-"))
	assert.Len(t, a, len("BT-")+8)
	assert.NotEqual(t, a, b)
}
