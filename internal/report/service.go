// Package report lets members flag content and moderators work the queue.
package report

import (
	"context"
	"strings"
	"time"

	"bontroc_backend/internal/common"
	"bontroc_backend/internal/listing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListingSuspender takes a listing offline when a report on it is actioned.
type ListingSuspender interface {
	SuspendListing(ctx context.Context, id uuid.UUID, reason string) (*listing.Listing, error)
}

type Service interface {
	CreateReport(ctx context.Context, reporterID uuid.UUID, req CreateReportRequest) (*Report, error)
	ListMyReports(ctx context.Context, reporterID uuid.UUID, page, pageSize int) ([]Report, *common.Pagination, error)
	ListReports(ctx context.Context, q ListQuery, page, pageSize int) ([]Report, *common.Pagination, error)
	GetReport(ctx context.Context, id uuid.UUID) (*Report, error)
	ReviewReport(ctx context.Context, moderatorID, id uuid.UUID, req ReviewReportRequest) (*Report, error)
}

type ServiceImplementation struct {
	repo     Repository
	listings ListingSuspender
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, listings ListingSuspender, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:     repo,
		listings: listings,
		logger:   logger.Named("ReportService"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ServiceImplementation) wrap(err error, msg string) error {
	if _, ok := common.IsAPIError(err); ok {
		return err
	}
	s.logger.Error(msg, zap.Error(err))
	return common.ErrInternalServer.WithDetails(msg)
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func (s *ServiceImplementation) CreateReport(ctx context.Context, reporterID uuid.UUID, req CreateReportRequest) (*Report, error) {
	if _, ok := targetTables[req.TargetType]; !ok {
		return nil, common.ErrBadRequest.WithDetails("Unknown report target.")
	}
	if req.TargetType == TargetUser && req.TargetID == reporterID {
		return nil, common.ErrBadRequest.WithDetails("You cannot report yourself.")
	}
	exists, err := s.repo.TargetExists(ctx, req.TargetType, req.TargetID)
	if err != nil {
		return nil, s.wrap(err, "Could not verify the reported item.")
	}
	if !exists {
		return nil, common.ErrNotFound.WithDetails("Reported item not found.")
	}

	r := &Report{
		ReporterID: reporterID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Reason:     req.Reason,
		Details:    trimmed(req.Details),
		Status:     StatusOpen,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, s.wrap(err, "Could not file report.")
	}
	s.logger.Info("Report filed",
		zap.String("reportID", r.ID.String()),
		zap.String("targetType", string(r.TargetType)),
		zap.String("targetID", r.TargetID.String()))
	return r, nil
}

func (s *ServiceImplementation) ListMyReports(ctx context.Context, reporterID uuid.UUID, page, pageSize int) ([]Report, *common.Pagination, error) {
	reports, pagination, err := s.repo.ListByReporter(ctx, reporterID, page, pageSize)
	if err != nil {
		return nil, nil, s.wrap(err, "Could not retrieve reports.")
	}
	return reports, pagination, nil
}

func (s *ServiceImplementation) ListReports(ctx context.Context, q ListQuery, page, pageSize int) ([]Report, *common.Pagination, error) {
	reports, pagination, err := s.repo.List(ctx, q, page, pageSize)
	if err != nil {
		return nil, nil, s.wrap(err, "Could not retrieve reports.")
	}
	return reports, pagination, nil
}

func (s *ServiceImplementation) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve report.")
	}
	return r, nil
}

// ReviewReport closes an open report. Actioning a listing report suspends
// the listing; other targets are handled through their own admin tools.
func (s *ServiceImplementation) ReviewReport(ctx context.Context, moderatorID, id uuid.UUID, req ReviewReportRequest) (*Report, error) {
	switch req.Status {
	case StatusReviewed, StatusDismissed, StatusActioned:
	default:
		return nil, common.ErrBadRequest.WithDetails("Status must be reviewed, dismissed or actioned.")
	}
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "Could not retrieve report.")
	}
	if r.Status != StatusOpen {
		return nil, common.ErrInvalidTransition.WithDetails("This report has already been handled.")
	}

	if req.Status == StatusActioned && r.TargetType == TargetListing && s.listings != nil {
		reason := "Reported: " + r.Reason
		if note := trimmed(req.Note); note != nil {
			reason = *note
		}
		if _, err := s.listings.SuspendListing(ctx, r.TargetID, reason); err != nil {
			return nil, s.wrap(err, "Could not suspend the reported listing.")
		}
	}

	fields := map[string]interface{}{
		"status":         req.Status,
		"moderator_note": trimmed(req.Note),
		"handled_by":     moderatorID,
		"handled_at":     s.now(),
		"updated_at":     s.now(),
	}
	if err := s.repo.Close(ctx, id, fields); err != nil {
		return nil, s.wrap(err, "Could not update report.")
	}
	s.logger.Info("Report handled",
		zap.String("reportID", id.String()),
		zap.String("status", string(req.Status)),
		zap.String("moderatorID", moderatorID.String()))
	return s.GetReport(ctx, id)
}
