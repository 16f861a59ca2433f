package jobs

import (
	"context"
	"time"

	"bontroc_backend/internal/config"

	"go.uber.org/zap"
)

// ProposalMaintainer is the part of the proposal service the jobs drive.
type ProposalMaintainer interface {
	RecoverMissingContracts(ctx context.Context, grace time.Duration, limit int) (int, error)
	ExpireStale(ctx context.Context, ttl time.Duration) (int, error)
}

const recoveryBatch = 50

// ContractRecoveryJob re-runs contract generation for accepted proposals
// that are still without a contract after the grace period.
type ContractRecoveryJob struct {
	proposals ProposalMaintainer
	cfg       *config.Config
	logger    *zap.Logger
}

func NewContractRecoveryJob(proposals ProposalMaintainer, cfg *config.Config, logger *zap.Logger) *ContractRecoveryJob {
	return &ContractRecoveryJob{proposals: proposals, cfg: cfg, logger: logger.Named("ContractRecoveryJob")}
}

func (j *ContractRecoveryJob) Name() string           { return "contract-recovery" }
func (j *ContractRecoveryJob) Spec() string           { return j.cfg.ContractRecoveryJobSchedule }
func (j *ContractRecoveryJob) Timeout() time.Duration { return 5 * time.Minute }

func (j *ContractRecoveryJob) Run(ctx context.Context) error {
	recovered, err := j.proposals.RecoverMissingContracts(ctx, j.cfg.ContractRecoveryGrace, recoveryBatch)
	if err != nil {
		return err
	}
	if recovered > 0 {
		j.logger.Info("Recovered missing contracts", zap.Int("contracts", recovered))
	}
	return nil
}

// ProposalExpiryJob cancels pending proposals nobody answered in time.
type ProposalExpiryJob struct {
	proposals ProposalMaintainer
	cfg       *config.Config
	logger    *zap.Logger
}

func NewProposalExpiryJob(proposals ProposalMaintainer, cfg *config.Config, logger *zap.Logger) *ProposalExpiryJob {
	return &ProposalExpiryJob{proposals: proposals, cfg: cfg, logger: logger.Named("ProposalExpiryJob")}
}

func (j *ProposalExpiryJob) Name() string           { return "proposal-expiry" }
func (j *ProposalExpiryJob) Spec() string           { return j.cfg.ProposalExpiryJobSchedule }
func (j *ProposalExpiryJob) Timeout() time.Duration { return 5 * time.Minute }

func (j *ProposalExpiryJob) Run(ctx context.Context) error {
	if j.cfg.ProposalTTL <= 0 {
		return nil
	}
	expired, err := j.proposals.ExpireStale(ctx, j.cfg.ProposalTTL)
	if err != nil {
		return err
	}
	j.logger.Info("Proposal expiry run completed", zap.Int("proposals_expired", expired))
	return nil
}
