// internal/repository/postgres/campaign_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tahseel-service/internal/domain/campaign"
	xerrors "tahseel-service/internal/pkg/errors"
)

const campaignColumns = `
	id, company_id, reference, name, subject, body, status,
	batch_size, batch_delay_ms, attach_pdf,
	total_recipients, sent_count, failed_count,
	error_message, started_at, completed_at, duration_ms,
	created_by, created_at, updated_at
`

type CampaignRepository struct {
	db *pgxpool.Pool
}

func NewCampaignRepository(db *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// CreateWithSends persists the campaign and all its EmailSend rows in one
// transaction, so TotalRecipients always equals the row count.
func (r *CampaignRepository) CreateWithSends(ctx context.Context, c *campaign.Campaign, sends []campaign.EmailSend) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO campaigns (
			company_id, reference, name, subject, body, status,
			batch_size, batch_delay_ms, attach_pdf,
			total_recipients, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRow(
		ctx, query,
		c.CompanyID, c.Reference, c.Name, c.Subject, c.Body, c.Status,
		c.BatchSize, c.BatchDelayMS, c.AttachPDF,
		c.TotalRecipients, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}

	for i := range sends {
		sends[i].CampaignID = c.ID
		err = tx.QueryRow(
			ctx,
			`INSERT INTO campaign_email_sends (campaign_id, invoice_id, recipient, subject, body, status)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, created_at`,
			c.ID, sends[i].InvoiceID, sends[i].Recipient, sends[i].Subject, sends[i].Body, sends[i].Status,
		).Scan(&sends[i].ID, &sends[i].CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert email send: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepository) FindByID(ctx context.Context, companyID, id int64) (*campaign.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE company_id = $1 AND id = $2`

	var c campaign.Campaign
	err := r.db.QueryRow(ctx, query, companyID, id).Scan(campaignFields(&c)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find campaign: %w", err)
	}
	return &c, nil
}

func (r *CampaignRepository) List(ctx context.Context, companyID int64, f *campaign.ListFilters) ([]campaign.Campaign, int64, error) {
	where := "WHERE company_id = $1"
	args := []interface{}{companyID}
	if f.Status != nil {
		args = append(args, *f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM campaigns "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	offset := (f.Page - 1) * f.PageSize
	query := fmt.Sprintf(
		"SELECT %s FROM campaigns %s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		campaignColumns, where, f.PageSize, offset,
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []campaign.Campaign
	for rows.Next() {
		var c campaign.Campaign
		if err := rows.Scan(campaignFields(&c)...); err != nil {
			return nil, 0, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read campaigns: %w", err)
	}
	return campaigns, total, nil
}

// GetStatus reads the current campaign status. The dispatcher polls this
// between batches to honor pause requests.
func (r *CampaignRepository) GetStatus(ctx context.Context, id int64) (campaign.Status, error) {
	var status campaign.Status
	err := r.db.QueryRow(ctx, `SELECT status FROM campaigns WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", xerrors.ErrNotFound
		}
		return "", fmt.Errorf("failed to read campaign status: %w", err)
	}
	return status, nil
}

// MarkStarted transitions draft -> sending. The status guard in the WHERE
// clause makes a double-send race lose cleanly.
func (r *CampaignRepository) MarkStarted(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE campaigns SET status = $2, started_at = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $4`,
		id, campaign.StatusSending, at, campaign.StatusDraft,
	)
	if err != nil {
		return fmt.Errorf("failed to mark campaign started: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.NewState("campaign", "not draft", "send")
	}
	return nil
}

func (r *CampaignRepository) MarkPaused(ctx context.Context, companyID, id int64) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE campaigns SET status = $3, updated_at = NOW()
		 WHERE company_id = $1 AND id = $2 AND status = $4`,
		companyID, id, campaign.StatusPaused, campaign.StatusSending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark campaign paused: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.NewState("campaign", "not sending", "pause")
	}
	return nil
}

func (r *CampaignRepository) Finish(ctx context.Context, id int64, status campaign.Status, sent, failed int, duration time.Duration, at time.Time) error {
	_, err := r.db.Exec(
		ctx,
		`UPDATE campaigns
		 SET status = $2, sent_count = $3, failed_count = $4,
		     completed_at = $5, duration_ms = $6, updated_at = NOW()
		 WHERE id = $1`,
		id, status, sent, failed, at, duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to finish campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepository) Fail(ctx context.Context, id int64, errMsg string) error {
	_, err := r.db.Exec(
		ctx,
		`UPDATE campaigns SET status = $2, error_message = $3, updated_at = NOW() WHERE id = $1`,
		id, campaign.StatusFailed, errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to mark campaign failed: %w", err)
	}
	return nil
}

// FindPendingSends returns pending EmailSend rows in insertion order, which
// the dispatcher slices into batches.
func (r *CampaignRepository) FindPendingSends(ctx context.Context, campaignID int64) ([]campaign.EmailSend, error) {
	query := `
		SELECT id, campaign_id, invoice_id, recipient, subject, body,
		       status, provider_message_id, error_message, sent_at, created_at
		FROM campaign_email_sends
		WHERE campaign_id = $1 AND status = $2
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, campaignID, campaign.SendPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending sends: %w", err)
	}
	defer rows.Close()

	var sends []campaign.EmailSend
	for rows.Next() {
		var s campaign.EmailSend
		if err := rows.Scan(
			&s.ID, &s.CampaignID, &s.InvoiceID, &s.Recipient, &s.Subject, &s.Body,
			&s.Status, &s.ProviderMessageID, &s.ErrorMessage, &s.SentAt, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan email send: %w", err)
		}
		sends = append(sends, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending sends: %w", err)
	}
	return sends, nil
}

func (r *CampaignRepository) UpdateSendStatus(ctx context.Context, id int64, status campaign.SendStatus, providerMessageID, errMsg string, at time.Time) error {
	_, err := r.db.Exec(
		ctx,
		`UPDATE campaign_email_sends
		 SET status = $2,
		     provider_message_id = NULLIF($3, ''),
		     error_message = NULLIF($4, ''),
		     sent_at = CASE WHEN $2 = 'sent' THEN $5 ELSE sent_at END
		 WHERE id = $1`,
		id, status, providerMessageID, errMsg, at,
	)
	if err != nil {
		return fmt.Errorf("failed to update send status: %w", err)
	}
	return nil
}

// AggregateProgress derives progress from the EmailSend rows rather than the
// counters cached on the campaign.
func (r *CampaignRepository) AggregateProgress(ctx context.Context, companyID, id int64) (*campaign.Progress, error) {
	query := `
		SELECT c.status,
		       COUNT(s.id),
		       COUNT(s.id) FILTER (WHERE s.status = 'pending'),
		       COUNT(s.id) FILTER (WHERE s.status = 'sent'),
		       COUNT(s.id) FILTER (WHERE s.status = 'failed')
		FROM campaigns c
		LEFT JOIN campaign_email_sends s ON s.campaign_id = c.id
		WHERE c.company_id = $1 AND c.id = $2
		GROUP BY c.status
	`

	p := campaign.Progress{CampaignID: id}
	err := r.db.QueryRow(ctx, query, companyID, id).Scan(&p.Status, &p.Total, &p.Pending, &p.Sent, &p.Failed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to aggregate progress: %w", err)
	}
	if p.Total > 0 {
		p.PercentDone = float64(p.Sent+p.Failed) / float64(p.Total) * 100
	}
	return &p, nil
}

func campaignFields(c *campaign.Campaign) []interface{} {
	return []interface{}{
		&c.ID, &c.CompanyID, &c.Reference, &c.Name, &c.Subject, &c.Body, &c.Status,
		&c.BatchSize, &c.BatchDelayMS, &c.AttachPDF,
		&c.TotalRecipients, &c.SentCount, &c.FailedCount,
		&c.ErrorMessage, &c.StartedAt, &c.CompletedAt, &c.DurationMS,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	}
}
