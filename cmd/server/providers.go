package main

import (
	"context"
	"log"
	"time"

	"bontroc_backend/internal/app"
	"bontroc_backend/internal/badge"
	"bontroc_backend/internal/config"
	"bontroc_backend/internal/contract"
	"bontroc_backend/internal/dispute"
	"bontroc_backend/internal/exchange"
	"bontroc_backend/internal/jobs"
	"bontroc_backend/internal/listing"
	"bontroc_backend/internal/listing/esutil"
	"bontroc_backend/internal/moderation"
	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/platform/database"
	platformes "bontroc_backend/internal/platform/elasticsearch"
	"bontroc_backend/internal/platform/logger"
	"bontroc_backend/internal/proposal"
	"bontroc_backend/internal/review"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// bannedWordsTTL bounds how stale the chat word filter may get on
// instances that did not handle the admin change themselves.
const bannedWordsTTL = 5 * time.Minute

func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	l, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return l, func() {
		if err := l.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}, nil
}

// provideDatabase opens the pool and brings the schema up to date before
// anything probes it.
func provideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := app.Migrate(db, cfg, logger); err != nil {
		database.CloseGORMDB(db, logger)
		return nil, nil, err
	}
	return db, func() { database.CloseGORMDB(db, logger) }, nil
}

// provideSearchIndex makes sure the listings index exists. A failure only
// costs search freshness, so it is logged and the server still starts.
func provideSearchIndex(client *platformes.ESClientWrapper, logger *zap.Logger) listing.SearchIndex {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := platformes.CreateListingsIndexIfNotExists(ctx, client, logger); err != nil {
		logger.Error("Failed to create Elasticsearch listings index", zap.Error(err))
	}
	return esutil.NewListingIndex(client, logger)
}

func provideWordFilter(repo moderation.Repository, logger *zap.Logger) *moderation.WordFilter {
	return moderation.NewWordFilter(repo, bannedWordsTTL, logger)
}

func provideScheduler(logger *zap.Logger, recovery *jobs.ContractRecoveryJob, expiry *jobs.ProposalExpiryJob) *jobs.Scheduler {
	return jobs.NewScheduler(logger, recovery, expiry)
}

// The providers below only narrow one interface to another, which
// wire.Bind cannot express.

func provideNotifier(s notification.Service) notification.Notifier { return s }

func provideUnreadCounter(s notification.Service) badge.UnreadCounter { return s }

func provideDisputeExchanges(r exchange.Repository) dispute.ExchangeReader { return r }

func provideReviewExchanges(r exchange.Repository) review.ExchangeReader { return r }

func provideProposalReader(r proposal.Repository) contract.ProposalReader { return r }

func provideContractReader(r contract.Repository) exchange.ContractReader { return r }
