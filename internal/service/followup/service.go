// internal/service/followup/service.go
package followup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tahseel-service/internal/domain/followup"
	"tahseel-service/internal/pkg/tenant"
	"tahseel-service/internal/service/email"
)

// LogRepository is the datastore slice for individual follow-up dispatch.
type LogRepository interface {
	FindDue(ctx context.Context, companyID int64, asOf time.Time, limit int) ([]followup.Log, error)
	UpdateStatus(ctx context.Context, id int64, status followup.Status, errMsg string, at time.Time) error
	List(ctx context.Context, companyID int64, status *followup.Status, limit int) ([]followup.Log, error)
}

// DispatchResult summarizes one due-log sweep.
type DispatchResult struct {
	Due    int      `json:"due"`
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

// Service sends queued follow-ups individually when their scheduled time
// arrives. Bulk sends go through the campaign dispatcher instead.
type Service struct {
	logs   LogRepository
	sender email.Sender
	logger *zap.Logger
	now    func() time.Time
}

func NewService(logs LogRepository, sender email.Sender, logger *zap.Logger) *Service {
	return &Service{logs: logs, sender: sender, logger: logger, now: time.Now}
}

// WithClock overrides the service clock; used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// DispatchDue sends every QUEUED log whose scheduled time has passed.
// Failures are isolated per log.
func (s *Service) DispatchDue(ctx context.Context, tn tenant.Context, limit int) (*DispatchResult, error) {
	if limit <= 0 {
		limit = 100
	}
	now := s.now()

	due, err := s.logs.FindDue(ctx, tn.CompanyID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load due follow-ups: %w", err)
	}

	result := &DispatchResult{Due: len(due)}
	for i := range due {
		log := &due[i]
		messageID, sendErr := s.sender.SendStructured(log.Recipient, log.Subject, log.Content)
		if sendErr != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("follow-up %d: %v", log.ID, sendErr))
			if err := s.logs.UpdateStatus(ctx, log.ID, followup.StatusFailed, sendErr.Error(), s.now()); err != nil {
				return result, fmt.Errorf("failed to persist follow-up status: %w", err)
			}
			continue
		}
		result.Sent++
		if err := s.logs.UpdateStatus(ctx, log.ID, followup.StatusSent, "", s.now()); err != nil {
			return result, fmt.Errorf("failed to persist follow-up status: %w", err)
		}
		s.logger.Info("follow-up sent",
			zap.Int64("followup_id", log.ID),
			zap.Int64("invoice_id", log.InvoiceID),
			zap.String("message_id", messageID),
		)
	}
	return result, nil
}

// List returns follow-up logs for the acting company.
func (s *Service) List(ctx context.Context, tn tenant.Context, status *followup.Status, limit int) ([]followup.Log, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.logs.List(ctx, tn.CompanyID, status, limit)
}
