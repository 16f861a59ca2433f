package database

import (
	"sync"

	"gorm.io/gorm"
)

// Capability names an optional part of the schema/feature set.
type Capability string

const (
	CapabilityChat       Capability = "chat"
	CapabilityDisputes   Capability = "disputes"
	CapabilityReports    Capability = "reports"
	CapabilityModeration Capability = "moderation"
)

// Capabilities records which optional features this deployment supports.
// It is decided once at startup from configuration and the live schema, and
// consulted explicitly by the features that depend on it.
type Capabilities struct {
	mu      sync.RWMutex
	enabled map[Capability]bool
}

// NewCapabilities builds a capability set from explicit flags.
func NewCapabilities(flags map[Capability]bool) *Capabilities {
	c := &Capabilities{enabled: make(map[Capability]bool, len(flags))}
	for k, v := range flags {
		c.enabled[k] = v
	}
	return c
}

// Enabled reports whether capability cap is available.
func (c *Capabilities) Enabled(cap Capability) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled[cap]
}

// Set overrides a single capability.
func (c *Capabilities) Set(cap Capability, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled[cap] = on
}

// ProbeTables turns off every enabled capability whose backing tables are
// missing from the connected schema.
func (c *Capabilities) ProbeTables(db *gorm.DB, tables map[Capability][]string) map[Capability][]string {
	missing := make(map[Capability][]string)
	migrator := db.Migrator()
	for cap, names := range tables {
		if !c.Enabled(cap) {
			continue
		}
		for _, name := range names {
			if !migrator.HasTable(name) {
				missing[cap] = append(missing[cap], name)
			}
		}
		if len(missing[cap]) > 0 {
			c.Set(cap, false)
		}
	}
	return missing
}

// Snapshot returns a copy of the current flags.
func (c *Capabilities) Snapshot() map[Capability]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[Capability]bool, len(c.enabled))
	for k, v := range c.enabled {
		out[k] = v
	}
	return out
}
