package elasticsearch

import (
	"encoding/json"
	"testing"

	"bontroc_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestListingsMapping_HasBarterFields(t *testing.T) {
	raw, err := ListingsMapping()
	require.NoError(t, err)

	var m struct {
		Mappings struct {
			Properties map[string]map[string]interface{} `json:"properties"`
		} `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	props := m.Mappings.Properties
	assert.Equal(t, "keyword", props["status"]["type"])
	assert.Equal(t, "keyword", props["tags"]["type"])
	assert.Equal(t, "geo_point", props["location"]["type"])
	assert.Equal(t, "text", props["wanted"]["type"])
}

func TestNewClient_DisabledWithoutURL(t *testing.T) {
	client, err := NewClient(&config.Config{}, zap.NewNop())
	assert.NoError(t, err)
	assert.Nil(t, client)
}
