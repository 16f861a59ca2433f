//go:build wireinject
// +build wireinject

package main

import (
	"bontroc_backend/internal/app"
	"bontroc_backend/internal/auth"
	"bontroc_backend/internal/badge"
	"bontroc_backend/internal/category"
	"bontroc_backend/internal/chat"
	"bontroc_backend/internal/config"
	"bontroc_backend/internal/contract"
	"bontroc_backend/internal/dispute"
	"bontroc_backend/internal/exchange"
	"bontroc_backend/internal/firebase"
	"bontroc_backend/internal/jobs"
	"bontroc_backend/internal/listing"
	"bontroc_backend/internal/moderation"
	"bontroc_backend/internal/notification"
	platformes "bontroc_backend/internal/platform/elasticsearch"
	"bontroc_backend/internal/platform/redis"
	"bontroc_backend/internal/platform/storage"
	"bontroc_backend/internal/platform/tracing"
	"bontroc_backend/internal/proposal"
	"bontroc_backend/internal/realtime"
	"bontroc_backend/internal/report"
	"bontroc_backend/internal/review"
	"bontroc_backend/internal/shared"
	"bontroc_backend/internal/user"

	"github.com/google/wire"
)

var platformSet = wire.NewSet(
	provideLogger,
	provideDatabase,
	redis.NewClient,
	tracing.NewTracerProvider,
	storage.NewObjectStore,
	platformes.NewClient,
	provideSearchIndex,
	firebase.NewFirebaseService,
	realtime.NewBroker,
	app.NewCapabilities,
)

var identitySet = wire.NewSet(
	user.NewGORMRepository,
	user.NewService,
	wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
	wire.Bind(new(auth.UserProvider), new(*user.ServiceImplementation)),
	wire.Bind(new(shared.AccountLookup), new(*user.ServiceImplementation)),
	auth.NewJWTService,
	auth.NewBlocklist,
	auth.NewIDTokenVerifier,
	auth.NewService,
	wire.Struct(new(app.Security), "*"),
)

var marketplaceSet = wire.NewSet(
	category.NewGORMRepository,
	category.NewService,
	listing.NewGORMRepository,
	listing.NewService,
	wire.Bind(new(listing.Service), new(*listing.ServiceImplementation)),
	wire.Bind(new(chat.ListingReader), new(*listing.ServiceImplementation)),
	wire.Bind(new(report.ListingSuspender), new(*listing.ServiceImplementation)),

	notification.NewGORMRepository,
	notification.NewService,
	provideNotifier,
	provideUnreadCounter,

	proposal.NewGORMRepository,
	proposal.NewService,
	wire.Bind(new(proposal.Service), new(*proposal.ServiceImplementation)),
	wire.Bind(new(badge.ProposalCounter), new(*proposal.ServiceImplementation)),
	wire.Bind(new(jobs.ProposalMaintainer), new(*proposal.ServiceImplementation)),
	provideProposalReader,

	contract.NewGORMRepository,
	contract.NewService,
	wire.Bind(new(contract.Service), new(*contract.ServiceImplementation)),
	wire.Bind(new(proposal.ContractGenerator), new(*contract.ServiceImplementation)),
	provideContractReader,

	exchange.NewGORMRepository,
	exchange.NewService,
	wire.Bind(new(exchange.Service), new(*exchange.ServiceImplementation)),
	wire.Bind(new(contract.ExchangeOpener), new(*exchange.ServiceImplementation)),
	provideDisputeExchanges,
	provideReviewExchanges,

	dispute.NewGORMRepository,
	dispute.NewService,
	wire.Bind(new(dispute.Service), new(*dispute.ServiceImplementation)),
	review.NewGORMRepository,
	review.NewService,
	wire.Bind(new(review.Service), new(*review.ServiceImplementation)),
	badge.NewService,
	wire.Bind(new(badge.Service), new(*badge.ServiceImplementation)),
)

var communitySet = wire.NewSet(
	moderation.NewGORMRepository,
	provideWordFilter,
	wire.Bind(new(moderation.Filter), new(*moderation.WordFilter)),
	moderation.NewService,
	wire.Bind(new(moderation.Service), new(*moderation.ServiceImplementation)),
	chat.NewGORMRepository,
	chat.NewService,
	wire.Bind(new(chat.Service), new(*chat.ServiceImplementation)),
	report.NewGORMRepository,
	report.NewService,
	wire.Bind(new(report.Service), new(*report.ServiceImplementation)),
)

var handlerSet = wire.NewSet(
	auth.NewHandler,
	user.NewHandler,
	category.NewHandler,
	listing.NewHandler,
	proposal.NewHandler,
	contract.NewHandler,
	exchange.NewHandler,
	dispute.NewHandler,
	review.NewHandler,
	notification.NewHandler,
	badge.NewHandler,
	chat.NewHandler,
	report.NewHandler,
	moderation.NewHandler,
	wire.Struct(new(app.Handlers), "*"),
)

var jobSet = wire.NewSet(
	jobs.NewContractRecoveryJob,
	jobs.NewProposalExpiryJob,
	provideScheduler,
)

// initializeServer is the Wire injector for the API process.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(platformSet, identitySet, marketplaceSet, communitySet, handlerSet, jobSet, app.NewServer)
	return nil, nil, nil
}
