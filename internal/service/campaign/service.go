// internal/service/campaign/service.go
package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"tahseel-service/internal/domain/campaign"
	"tahseel-service/internal/domain/invoice"
	xerrors "tahseel-service/internal/pkg/errors"
	"tahseel-service/internal/pkg/tenant"
	"tahseel-service/internal/service/email"
	"tahseel-service/internal/service/storage"
	"tahseel-service/internal/service/template"
)

const (
	defaultBatchSize    = 5
	defaultBatchDelayMS = 1000
)

// Repository is the datastore slice the campaign service needs. Writes to
// EmailSend rows happen per-row; each row is owned by exactly one in-flight
// send attempt.
type Repository interface {
	CreateWithSends(ctx context.Context, c *campaign.Campaign, sends []campaign.EmailSend) error
	FindByID(ctx context.Context, companyID, id int64) (*campaign.Campaign, error)
	List(ctx context.Context, companyID int64, f *campaign.ListFilters) ([]campaign.Campaign, int64, error)
	GetStatus(ctx context.Context, id int64) (campaign.Status, error)
	MarkStarted(ctx context.Context, id int64, at time.Time) error
	MarkPaused(ctx context.Context, companyID, id int64) error
	Finish(ctx context.Context, id int64, status campaign.Status, sent, failed int, duration time.Duration, at time.Time) error
	Fail(ctx context.Context, id int64, errMsg string) error
	FindPendingSends(ctx context.Context, campaignID int64) ([]campaign.EmailSend, error)
	UpdateSendStatus(ctx context.Context, id int64, status campaign.SendStatus, providerMessageID, errMsg string, at time.Time) error
	AggregateProgress(ctx context.Context, companyID, id int64) (*campaign.Progress, error)
}

// InvoiceReader loads the invoices a campaign targets.
type InvoiceReader interface {
	FindByIDs(ctx context.Context, companyID int64, ids []int64) ([]invoice.Invoice, error)
}

// CampaignService creates campaigns and dispatches them in rate-limited
// batches.
type CampaignService struct {
	repo      Repository
	invoices  InvoiceReader
	sender    email.Sender
	objects   storage.ObjectStore
	templates *template.Resolver
	progress  *broadcaster
	logger    *zap.Logger
	now       func() time.Time
	// sleep is swappable so tests can observe delays without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewCampaignService(
	repo Repository,
	invoices InvoiceReader,
	sender email.Sender,
	objects storage.ObjectStore,
	templates *template.Resolver,
	logger *zap.Logger,
) *CampaignService {
	return &CampaignService{
		repo:      repo,
		invoices:  invoices,
		sender:    sender,
		objects:   objects,
		templates: templates,
		progress:  newBroadcaster(),
		logger:    logger,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// WithClock overrides the service clock; used by tests.
func (s *CampaignService) WithClock(now func() time.Time) *CampaignService {
	s.now = now
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CreateCampaign validates the templates, resolves content per invoice and
// persists the campaign with its EmailSend rows in one transaction. An
// unknown merge placeholder blocks creation before any row is written.
func (s *CampaignService) CreateCampaign(ctx context.Context, tn tenant.Context, req *campaign.CreateCampaignRequest) (*campaign.CreateCampaignResponse, error) {
	if err := s.templates.Validate(req.Subject); err != nil {
		return nil, err
	}
	if err := s.templates.Validate(req.Body); err != nil {
		return nil, err
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	batchDelay := req.BatchDelayMS
	if batchDelay < 0 {
		batchDelay = defaultBatchDelayMS
	}

	invoices, err := s.invoices.FindByIDs(ctx, tn.CompanyID, req.InvoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}

	found := make(map[int64]bool, len(invoices))
	var sends []campaign.EmailSend
	var skipped []int64
	for i := range invoices {
		inv := &invoices[i]
		found[inv.ID] = true
		if inv.CustomerEmail == "" || inv.Status.Terminal() {
			skipped = append(skipped, inv.ID)
			continue
		}
		sends = append(sends, campaign.EmailSend{
			InvoiceID: inv.ID,
			Recipient: inv.CustomerEmail,
			Subject:   s.templates.Resolve(req.Subject, inv),
			Body:      s.templates.Resolve(req.Body, inv),
			Status:    campaign.SendPending,
		})
	}
	for _, id := range req.InvoiceIDs {
		if !found[id] {
			skipped = append(skipped, id)
		}
	}

	if len(sends) == 0 {
		return nil, xerrors.NewValidation("invoice_ids", "no sendable recipients in selection")
	}

	c := &campaign.Campaign{
		CompanyID:       tn.CompanyID,
		Reference:       ulid.Make().String(),
		Name:            req.Name,
		Subject:         req.Subject,
		Body:            req.Body,
		Status:          campaign.StatusDraft,
		BatchSize:       batchSize,
		BatchDelayMS:    batchDelay,
		AttachPDF:       req.AttachPDF,
		TotalRecipients: len(sends),
		CreatedBy:       tn.UserID,
	}

	if err := s.repo.CreateWithSends(ctx, c, sends); err != nil {
		s.logger.Error("failed to create campaign", zap.Error(err))
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	s.logger.Info("campaign created",
		zap.Int64("campaign_id", c.ID),
		zap.String("reference", c.Reference),
		zap.Int("recipients", c.TotalRecipients),
		zap.Int("skipped", len(skipped)),
	)

	return &campaign.CreateCampaignResponse{
		Campaign:    c,
		SkippedIDs:  skipped,
		ReadyToSend: true,
	}, nil
}

// GetCampaign retrieves a campaign scoped to the acting company.
func (s *CampaignService) GetCampaign(ctx context.Context, tn tenant.Context, id int64) (*campaign.Campaign, error) {
	return s.repo.FindByID(ctx, tn.CompanyID, id)
}

// ListCampaigns retrieves campaigns with filters.
func (s *CampaignService) ListCampaigns(ctx context.Context, tn tenant.Context, filters *campaign.ListFilters) (*campaign.ListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	if filters.PageSize > 100 {
		filters.PageSize = 100
	}

	campaigns, total, err := s.repo.List(ctx, tn.CompanyID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &campaign.ListResponse{
		Campaigns:  campaigns,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Progress re-derives campaign progress from the EmailSend aggregate. No
// engine-held in-memory state is authoritative.
func (s *CampaignService) Progress(ctx context.Context, tn tenant.Context, id int64) (*campaign.Progress, error) {
	return s.repo.AggregateProgress(ctx, tn.CompanyID, id)
}

// PauseCampaign requests that no further batch be started. Records already
// dispatched in the current batch complete normally.
func (s *CampaignService) PauseCampaign(ctx context.Context, tn tenant.Context, id int64) error {
	c, err := s.repo.FindByID(ctx, tn.CompanyID, id)
	if err != nil {
		return err
	}
	if c.Status != campaign.StatusSending {
		return xerrors.NewState("campaign", string(c.Status), "pause")
	}
	if err := s.repo.MarkPaused(ctx, tn.CompanyID, id); err != nil {
		return fmt.Errorf("failed to pause campaign: %w", err)
	}
	s.logger.Info("campaign paused", zap.Int64("campaign_id", id))
	return nil
}

// Subscribe returns a stream of batch-coalesced progress events for a
// campaign, ending with a terminal event. The returned cancel func must be
// called when the subscriber is done.
func (s *CampaignService) Subscribe(campaignID int64) (<-chan campaign.ProgressEvent, func()) {
	return s.progress.subscribe(campaignID)
}
