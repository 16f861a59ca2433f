package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bontroc_backend/internal/auth"
	"bontroc_backend/internal/badge"
	"bontroc_backend/internal/category"
	"bontroc_backend/internal/chat"
	"bontroc_backend/internal/config"
	"bontroc_backend/internal/contract"
	"bontroc_backend/internal/dispute"
	"bontroc_backend/internal/exchange"
	"bontroc_backend/internal/jobs"
	"bontroc_backend/internal/listing"
	"bontroc_backend/internal/moderation"
	"bontroc_backend/internal/notification"
	"bontroc_backend/internal/platform/storage"
	"bontroc_backend/internal/proposal"
	"bontroc_backend/internal/realtime"
	"bontroc_backend/internal/report"
	"bontroc_backend/internal/review"
	"bontroc_backend/internal/testutil"
	"bontroc_backend/internal/user"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// newTestRouter assembles the whole API over an in-memory database, the
// way the server binary does, minus external services.
func newTestRouter(t *testing.T, overrides ...func(*config.Config)) http.Handler {
	t.Helper()
	cfg := &config.Config{
		GinMode:                     "test",
		JWTSecretKey:                "scenario-secret",
		JWTAccessTokenExpiryMinutes: time.Hour,
		JWTRefreshTokenExpiryDays:   24 * time.Hour,
		StorageDriver:               "local",
		StorageLocalPath:            t.TempDir(),
		StoragePublicBaseURL:        "http://media.test",
		MaxUploadSizeMB:             1,
		ContractGenerationTimeout:   5 * time.Second,
		FeatureChatEnabled:          true,
		FeatureDisputesEnabled:      true,
		FeatureReportsEnabled:       true,
	}
	for _, override := range overrides {
		override(cfg)
	}
	logger := zap.NewNop()
	db := testutil.NewDB(t, Models()...)
	store, err := storage.NewLocalStore(cfg.StorageLocalPath, cfg.StoragePublicBaseURL, logger)
	require.NoError(t, err)
	broker := realtime.NewMemoryBroker(logger)

	users := user.NewService(user.NewGORMRepository(db), store, cfg, logger)
	tokens := auth.NewJWTService(cfg, logger)
	blocklist := auth.NewBlocklist(nil)
	authSvc := auth.NewService(users, tokens, blocklist, nil, logger)

	categories := category.NewService(category.NewGORMRepository(db), logger)
	listings := listing.NewService(listing.NewGORMRepository(db), categories, nil, store, cfg, logger)
	notifications := notification.NewService(notification.NewGORMRepository(db), broker, logger)

	proposalRepo := proposal.NewGORMRepository(db)
	contractRepo := contract.NewGORMRepository(db)
	exchangeRepo := exchange.NewGORMRepository(db)
	exchanges := exchange.NewService(exchangeRepo, contractRepo, notifications, logger)
	contracts := contract.NewService(contractRepo, proposalRepo, exchanges, store, notifications, logger)
	proposals := proposal.NewService(proposalRepo, listings, contracts, notifications, broker, cfg, logger)

	filterRepo := moderation.NewGORMRepository(db)
	filter := moderation.NewWordFilter(filterRepo, time.Minute, logger)

	handlers := Handlers{
		Auth:         auth.NewHandler(authSvc, cfg, logger),
		User:         user.NewHandler(users, logger),
		Category:     category.NewHandler(categories, logger),
		Listing:      listing.NewHandler(listings, logger),
		Proposal:     proposal.NewHandler(proposals, logger),
		Contract:     contract.NewHandler(contracts, logger),
		Exchange:     exchange.NewHandler(exchanges, logger),
		Dispute:      dispute.NewHandler(dispute.NewService(dispute.NewGORMRepository(db), exchangeRepo, notifications, logger), logger),
		Review:       review.NewHandler(review.NewService(review.NewGORMRepository(db), exchangeRepo, notifications, logger), logger),
		Notification: notification.NewHandler(notifications, logger),
		Badge:        badge.NewHandler(badge.NewService(proposals, notifications, broker, logger), logger),
		Chat:         chat.NewHandler(chat.NewService(chat.NewGORMRepository(db), listings, filter, notifications, broker, logger), logger),
		Report:       report.NewHandler(report.NewService(report.NewGORMRepository(db), listings, logger), logger),
		Moderation:   moderation.NewHandler(moderation.NewService(filterRepo, filter, logger), logger),
	}
	security := Security{Tokens: tokens, Accounts: users, Blocklist: blocklist}
	server, err := NewServer(cfg, logger, db, noop.NewTracerProvider(), NewCapabilities(cfg, db, logger), security, handlers, jobs.NewScheduler(logger))
	require.NoError(t, err)
	return server.Router()
}

type ScenarioTestSuite struct {
	suite.Suite
	router http.Handler
	owner  member
	taker  member
}

type member struct {
	ID    string
	Token string
}

type envelope struct {
	Data json.RawMessage `json:"data"`
	Code string          `json:"code"`
}

func TestScenarioTestSuite(t *testing.T) {
	suite.Run(t, new(ScenarioTestSuite))
}

func (s *ScenarioTestSuite) SetupTest() {
	s.router = newTestRouter(s.T())
	s.owner = s.signUp("owner@bontroc.test", "Olivia")
	s.taker = s.signUp("taker@bontroc.test", "Tariq")
}

func (s *ScenarioTestSuite) do(method, path, token string, body interface{}) (int, envelope) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func (s *ScenarioTestSuite) mustDo(want int, method, path, token string, body interface{}, out interface{}) {
	code, env := s.do(method, path, token, body)
	s.Require().Equal(want, code, "%s %s: %s", method, path, env.Code)
	if out != nil {
		s.Require().NoError(json.Unmarshal(env.Data, out))
	}
}

func (s *ScenarioTestSuite) signUp(email, name string) member {
	var session struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Token struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	}
	s.mustDo(http.StatusCreated, http.MethodPost, "/api/v1/auth/signup", "",
		map[string]string{"email": email, "password": "correct-horse", "display_name": name}, &session)
	return member{ID: session.User.ID, Token: session.Token.AccessToken}
}

type idStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *ScenarioTestSuite) publishGuitarLessons() string {
	var l idStatus
	s.mustDo(http.StatusCreated, http.MethodPost, "/api/v1/listings", s.owner.Token, map[string]interface{}{
		"title":       "Guitar lessons",
		"description": "One hour of beginner guitar, bring your own instrument.",
		"type":        "service",
		"publish":     true,
	}, &l)
	s.Require().Equal("published", l.Status)
	return l.ID
}

func (s *ScenarioTestSuite) propose(listingID string) string {
	var p idStatus
	s.mustDo(http.StatusCreated, http.MethodPost, "/api/v1/proposals", s.taker.Token, map[string]interface{}{
		"listing_id": listingID,
		"message":    "I can fix your bike in exchange.",
	}, &p)
	s.Require().Equal("pending", p.Status)
	return p.ID
}

// activeContract runs a proposal through acceptance and both signatures.
func (s *ScenarioTestSuite) activeContract() idStatus {
	proposalID := s.propose(s.publishGuitarLessons())
	s.mustDo(http.StatusOK, http.MethodPost, "/api/v1/proposals/"+proposalID+"/accept", s.owner.Token, nil, nil)

	var c idStatus
	s.Require().Eventually(func() bool {
		code, env := s.do(http.MethodGet, "/api/v1/contracts/by-proposal/"+proposalID, s.taker.Token, nil)
		return code == http.StatusOK && json.Unmarshal(env.Data, &c) == nil
	}, 5*time.Second, 20*time.Millisecond, "contract generated after acceptance")
	s.Equal("pending", c.Status)

	s.mustDo(http.StatusOK, http.MethodPost, "/api/v1/contracts/"+c.ID+"/accept", s.owner.Token, nil, &c)
	s.Equal("pending", c.Status)
	s.mustDo(http.StatusOK, http.MethodPost, "/api/v1/contracts/"+c.ID+"/accept", s.owner.Token, nil, &c)
	s.Equal("pending", c.Status, "a second acceptance by the same party changes nothing")
	s.mustDo(http.StatusOK, http.MethodPost, "/api/v1/contracts/"+c.ID+"/accept", s.taker.Token, nil, &c)
	return c
}

func (s *ScenarioTestSuite) TestListingToActiveContract() {
	c := s.activeContract()
	s.Equal("active", c.Status)
}

func (s *ScenarioTestSuite) TestDeliveryAndSelfConfirmation() {
	c := s.activeContract()

	var e idStatus
	s.mustDo(http.StatusOK, http.MethodGet, "/api/v1/exchanges/by-contract/"+c.ID, s.owner.Token, nil, &e)
	s.Equal("not_started", e.Status)

	s.mustDo(http.StatusOK, http.MethodPost, "/api/v1/exchanges/"+e.ID+"/start", s.owner.Token, nil, &e)
	s.mustDo(http.StatusOK, http.MethodPost, "/api/v1/exchanges/"+e.ID+"/deliver", s.owner.Token, nil, &e)
	s.Equal("delivered", e.Status)

	code, env := s.do(http.MethodPost, "/api/v1/exchanges/"+e.ID+"/confirm", s.owner.Token, nil)
	s.Equal(http.StatusForbidden, code)
	s.Equal("SELF_CONFIRMATION", env.Code)

	s.mustDo(http.StatusOK, http.MethodPost, "/api/v1/exchanges/"+e.ID+"/confirm", s.taker.Token, nil, &e)
	s.Equal("confirmed", e.Status)

	var counts badge.Counts
	s.mustDo(http.StatusOK, http.MethodGet, "/api/v1/me/badges", s.owner.Token, nil, &counts)
	s.Positive(counts.UnreadExchanges, "the owner was told about the confirmation")

	s.mustDo(http.StatusCreated, http.MethodPost, "/api/v1/reviews", s.owner.Token, map[string]interface{}{
		"exchange_id": e.ID,
		"rating":      5,
	}, nil)
	var profile struct {
		RatingAvg   float64 `json:"rating_avg"`
		RatingCount int     `json:"rating_count"`
	}
	s.mustDo(http.StatusOK, http.MethodGet, "/api/v1/users/"+s.taker.ID, s.owner.Token, nil, &profile)
	s.Equal(1, profile.RatingCount)
	s.InDelta(5.0, profile.RatingAvg, 1e-9)
}

func (s *ScenarioTestSuite) TestStartNeedsActiveContract() {
	proposalID := s.propose(s.publishGuitarLessons())
	s.mustDo(http.StatusOK, http.MethodPost, "/api/v1/proposals/"+proposalID+"/accept", s.owner.Token, nil, nil)

	var c idStatus
	s.Require().Eventually(func() bool {
		code, env := s.do(http.MethodGet, "/api/v1/contracts/by-proposal/"+proposalID, s.owner.Token, nil)
		return code == http.StatusOK && json.Unmarshal(env.Data, &c) == nil
	}, 5*time.Second, 20*time.Millisecond)

	var e idStatus
	s.mustDo(http.StatusOK, http.MethodGet, "/api/v1/exchanges/by-contract/"+c.ID, s.owner.Token, nil, &e)
	code, env := s.do(http.MethodPost, "/api/v1/exchanges/"+e.ID+"/start", s.owner.Token, nil)
	s.Equal(http.StatusUnprocessableEntity, code)
	s.Equal("CONTRACT_NOT_ACTIVE", env.Code)
}

func (s *ScenarioTestSuite) TestCounterProposal() {
	original := s.propose(s.publishGuitarLessons())

	var counter struct {
		idStatus
		ParentProposalID string `json:"parent_proposal_id"`
	}
	s.mustDo(http.StatusCreated, http.MethodPost, "/api/v1/proposals/"+original+"/counter", s.owner.Token, map[string]interface{}{
		"message": "Two lessons for a full bike service?",
	}, &counter)
	s.Equal("pending", counter.Status)
	s.Equal(original, counter.ParentProposalID)

	var p idStatus
	s.mustDo(http.StatusOK, http.MethodGet, "/api/v1/proposals/"+original, s.taker.Token, nil, &p)
	s.Equal("countered", p.Status)

	var thread []idStatus
	s.mustDo(http.StatusOK, http.MethodGet, fmt.Sprintf("/api/v1/proposals/%s/thread", counter.ID), s.taker.Token, nil, &thread)
	s.Len(thread, 2)
}

func (s *ScenarioTestSuite) TestAnonymousAndStaffOnlyRoutes() {
	code, _ := s.do(http.MethodGet, "/api/v1/proposals/incoming", "", nil)
	s.Equal(http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodGet, "/api/v1/moderation/reports", s.owner.Token, nil)
	s.Equal(http.StatusForbidden, code)

	code, _ = s.do(http.MethodGet, "/api/v1/categories", "", nil)
	s.Equal(http.StatusOK, code)
}

func TestDisabledFeatureAnswersFeatureDisabled(t *testing.T) {
	router := newTestRouter(t, func(cfg *config.Config) { cfg.FeatureChatEnabled = false })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", bytes.NewBufferString(
		`{"email":"solo@bontroc.test","password":"correct-horse","display_name":"Solo"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var session struct {
		Data struct {
			Token struct {
				AccessToken string `json:"access_token"`
			} `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/chats", nil)
	req.Header.Set("Authorization", "Bearer "+session.Data.Token.AccessToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "FEATURE_DISABLED")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"chat":false`)
}
