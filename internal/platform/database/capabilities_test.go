package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type presentTable struct {
	ID   uint
	Name string
}

func (presentTable) TableName() string { return "chats" }

func TestCapabilities_ProbeTablesDisablesMissing(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&presentTable{}))

	caps := NewCapabilities(map[Capability]bool{
		CapabilityChat:     true,
		CapabilityReports:  true,
		CapabilityDisputes: false,
	})

	missing := caps.ProbeTables(db, map[Capability][]string{
		CapabilityChat:     {"chats"},
		CapabilityReports:  {"reports"},
		CapabilityDisputes: {"disputes"},
	})

	assert.True(t, caps.Enabled(CapabilityChat))
	assert.False(t, caps.Enabled(CapabilityReports))
	assert.False(t, caps.Enabled(CapabilityDisputes))
	assert.Equal(t, []string{"reports"}, missing[CapabilityReports])
	_, probed := missing[CapabilityDisputes]
	assert.False(t, probed, "disabled capabilities are not probed")
}

func TestCapabilities_NilIsDisabled(t *testing.T) {
	var caps *Capabilities
	assert.False(t, caps.Enabled(CapabilityChat))
}
