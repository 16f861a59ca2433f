package app

import (
	"fmt"

	"bontroc_backend/internal/category"
	"bontroc_backend/internal/chat"
	"bontroc_backend/internal/config"
	"bontroc_backend/internal/contract"
	"bontroc_backend/internal/dispute"
	"bontroc_backend/internal/exchange"
	"bontroc_backend/internal/listing"
	"bontroc_backend/internal/moderation"
	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/platform/database"
	"bontroc_backend/internal/proposal"
	"bontroc_backend/internal/report"
	"bontroc_backend/internal/review"
	"bontroc_backend/internal/user"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&category.Category{},
		&listing.Listing{},
		&listing.Media{},
		&proposal.Proposal{},
		&contract.Contract{},
		&exchange.Exchange{},
		&dispute.Dispute{},
		&review.Review{},
		&notification.Notification{},
		&chat.Chat{},
		&chat.Message{},
		&report.Report{},
		&moderation.BannedWord{},
	}
}

// Migrate creates or updates the schema when DB_AUTO_MIGRATE is on.
func Migrate(db *gorm.DB, cfg *config.Config, logger *zap.Logger) error {
	if !cfg.DBAutoMigrate {
		logger.Info("DB_AUTO_MIGRATE is off, skipping schema migration.")
		return nil
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	logger.Info("Database schema migrated.")
	return nil
}

// capabilityTables names the tables each optional feature needs.
var capabilityTables = map[database.Capability][]string{
	database.CapabilityChat:       {"chats", "chat_messages"},
	database.CapabilityDisputes:   {"disputes"},
	database.CapabilityReports:    {"reports"},
	database.CapabilityModeration: {"banned_words"},
}

// NewCapabilities starts from the feature flags and switches off every
// feature whose tables are missing, logging what was turned off. Routes of
// a disabled feature answer FEATURE_DISABLED instead of failing later.
func NewCapabilities(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *database.Capabilities {
	caps := database.NewCapabilities(map[database.Capability]bool{
		database.CapabilityChat:       cfg.FeatureChatEnabled,
		database.CapabilityDisputes:   cfg.FeatureDisputesEnabled,
		database.CapabilityReports:    cfg.FeatureReportsEnabled,
		database.CapabilityModeration: true,
	})
	for capability, tables := range caps.ProbeTables(db, capabilityTables) {
		logger.Warn("Feature disabled, tables missing",
			zap.String("feature", string(capability)),
			zap.Strings("tables", tables))
	}
	logger.Info("Feature capabilities resolved", zap.Any("capabilities", caps.Snapshot()))
	return caps
}
