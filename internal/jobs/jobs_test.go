package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"bontroc_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockProposalMaintainer is a mock type for ProposalMaintainer
type MockProposalMaintainer struct {
	mock.Mock
}

func (m *MockProposalMaintainer) RecoverMissingContracts(ctx context.Context, grace time.Duration, limit int) (int, error) {
	args := m.Called(ctx, grace, limit)
	return args.Int(0), args.Error(1)
}

func (m *MockProposalMaintainer) ExpireStale(ctx context.Context, ttl time.Duration) (int, error) {
	args := m.Called(ctx, ttl)
	return args.Int(0), args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		ContractRecoveryJobSchedule: "@every 10m",
		ContractRecoveryGrace:       5 * time.Minute,
		ProposalExpiryJobSchedule:   "@daily",
		ProposalTTL:                 30 * 24 * time.Hour,
	}
}

func TestScheduler_RunNow(t *testing.T) {
	proposals := new(MockProposalMaintainer)
	cfg := testConfig()
	proposals.On("RecoverMissingContracts", mock.Anything, 5*time.Minute, recoveryBatch).Return(2, nil).Once()
	proposals.On("ExpireStale", mock.Anything, cfg.ProposalTTL).Return(0, errors.New("db down")).Once()

	s := NewScheduler(zap.NewNop(), NewContractRecoveryJob(proposals, cfg, zap.NewNop()), NewProposalExpiryJob(proposals, cfg, zap.NewNop()))

	require.NoError(t, s.RunNow("contract-recovery"))
	assert.EqualError(t, s.RunNow("proposal-expiry"), "db down")
	assert.Error(t, s.RunNow("nope"))
	proposals.AssertExpectations(t)
}

func TestProposalExpiryJob_DisabledWithoutTTL(t *testing.T) {
	proposals := new(MockProposalMaintainer)
	cfg := testConfig()
	cfg.ProposalTTL = 0

	require.NoError(t, NewProposalExpiryJob(proposals, cfg, zap.NewNop()).Run(context.Background()))
	proposals.AssertNotCalled(t, "ExpireStale", mock.Anything, mock.Anything)
}

func TestScheduler_StartRejectsBadSpec(t *testing.T) {
	cfg := testConfig()
	cfg.ContractRecoveryJobSchedule = "every now and then"
	s := NewScheduler(zap.NewNop(), NewContractRecoveryJob(new(MockProposalMaintainer), cfg, zap.NewNop()))
	assert.Error(t, s.Start())

	cfg.ContractRecoveryJobSchedule = ""
	s = NewScheduler(zap.NewNop(), NewContractRecoveryJob(new(MockProposalMaintainer), cfg, zap.NewNop()))
	require.NoError(t, s.Start(), "an empty schedule only disables the job")
	s.Stop()
}
