// internal/service/campaign/dispatcher.go
package campaign

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"tahseel-service/internal/domain/campaign"
	"tahseel-service/internal/domain/invoice"
	xerrors "tahseel-service/internal/pkg/errors"
	"tahseel-service/internal/pkg/tenant"
	"tahseel-service/internal/service/email"
)

// SendCampaign dispatches a draft campaign's pending EmailSend records in
// rate-limited batches. Within one batch every record is sent concurrently
// and failure-isolated; batches run strictly sequentially with the
// configured delay between them. Any error escaping the batch loop flips
// the campaign to failed and is returned.
func (s *CampaignService) SendCampaign(ctx context.Context, tn tenant.Context, campaignID int64) (*campaign.SendResult, error) {
	c, err := s.repo.FindByID(ctx, tn.CompanyID, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != campaign.StatusDraft {
		return nil, xerrors.NewState("campaign", string(c.Status), "send")
	}

	pending, err := s.repo.FindPendingSends(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending recipients: %w", err)
	}
	if len(pending) == 0 {
		return nil, xerrors.NewValidation("campaign", "campaign has no pending recipients")
	}

	start := s.now()
	if err := s.repo.MarkStarted(ctx, c.ID, start); err != nil {
		return nil, fmt.Errorf("failed to start campaign: %w", err)
	}

	s.logger.Info("campaign dispatch started",
		zap.Int64("campaign_id", c.ID),
		zap.Int("recipients", len(pending)),
		zap.Int("batch_size", c.BatchSize),
	)

	result, runErr := s.runBatches(ctx, c, pending, start)
	if runErr != nil {
		// SystemFault: persist the failure and re-raise.
		if failErr := s.repo.Fail(ctx, c.ID, runErr.Error()); failErr != nil {
			s.logger.Error("failed to mark campaign failed",
				zap.Int64("campaign_id", c.ID), zap.Error(failErr))
		}
		s.publishTerminal(c.ID, result, campaign.StatusFailed)
		return nil, runErr
	}

	duration := s.now().Sub(start)
	final := campaign.StatusCompleted
	if result.Failed > 0 {
		final = campaign.StatusCompletedWithErrors
	}
	if paused, _ := s.isPaused(ctx, c.ID); paused {
		// Remaining records are still pending; the campaign stays paused.
		final = campaign.StatusPaused
	} else if err := s.repo.Finish(ctx, c.ID, final, result.Sent, result.Failed, duration, s.now()); err != nil {
		return nil, fmt.Errorf("failed to finalize campaign: %w", err)
	}

	result.CampaignID = c.ID
	result.Status = final
	result.Duration = duration
	if result.Total > 0 {
		result.SuccessRate = float64(result.Sent) / float64(result.Total)
	}

	s.publishTerminal(c.ID, result, final)

	s.logger.Info("campaign dispatch finished",
		zap.Int64("campaign_id", c.ID),
		zap.String("status", string(final)),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", duration),
	)
	return result, nil
}

func (s *CampaignService) runBatches(ctx context.Context, c *campaign.Campaign, pending []campaign.EmailSend, start time.Time) (*campaign.SendResult, error) {
	result := &campaign.SendResult{Total: len(pending)}

	invoiceByID, err := s.loadInvoices(ctx, c, pending)
	if err != nil {
		return result, err
	}

	batchSize := c.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	totalBatches := (len(pending) + batchSize - 1) / batchSize
	delay := time.Duration(c.BatchDelayMS) * time.Millisecond

	var elapsedBatches time.Duration

	for bi := 0; bi < totalBatches; bi++ {
		if bi > 0 {
			// The inter-batch delay is the sole rate-limiting mechanism.
			if err := s.sleep(ctx, delay); err != nil {
				return result, fmt.Errorf("dispatch interrupted: %w", err)
			}
			if paused, err := s.isPaused(ctx, c.ID); err != nil {
				return result, err
			} else if paused {
				s.logger.Info("campaign paused, not starting next batch",
					zap.Int64("campaign_id", c.ID), zap.Int("batch", bi))
				break
			}
		}

		lo := bi * batchSize
		hi := lo + batchSize
		if hi > len(pending) {
			hi = len(pending)
		}
		batch := pending[lo:hi]

		batchStart := s.now()
		recs, persistErr := s.dispatchBatch(ctx, c, batch, invoiceByID)
		result.Recipients = append(result.Recipients, recs...)
		for _, rec := range recs {
			if rec.Status == campaign.SendSent {
				result.Sent++
			} else {
				result.Failed++
			}
		}
		if persistErr != nil {
			return result, persistErr
		}
		elapsedBatches += s.now().Sub(batchStart)

		avg := elapsedBatches / time.Duration(bi+1)
		remaining := time.Duration(totalBatches-bi-1) * (avg + delay)
		s.progress.publish(campaign.ProgressEvent{
			CampaignID:    c.ID,
			Batch:         bi + 1,
			TotalBatches:  totalBatches,
			Sent:          result.Sent,
			Failed:        result.Failed,
			Total:         result.Total,
			PercentDone:   float64(result.Sent+result.Failed) / float64(result.Total) * 100,
			EstimatedLeft: remaining,
		})
	}

	return result, nil
}

// dispatchBatch sends every record in the batch concurrently. Individual
// send failures are recorded per record; only a status-persist failure is
// returned, because losing track of delivery state is a system fault.
func (s *CampaignService) dispatchBatch(ctx context.Context, c *campaign.Campaign, batch []campaign.EmailSend, invoiceByID map[int64]*invoice.Invoice) ([]campaign.RecipientResult, error) {
	results := make([]campaign.RecipientResult, len(batch))
	persistErrs := make([]error, len(batch))

	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := &batch[i]
			res := campaign.RecipientResult{
				EmailSendID: rec.ID,
				InvoiceID:   rec.InvoiceID,
				Recipient:   rec.Recipient,
			}

			messageID, sendErr := s.sendOne(ctx, c, rec, invoiceByID[rec.InvoiceID])
			now := s.now()
			if sendErr != nil {
				res.Status = campaign.SendFailed
				res.Error = sendErr.Error()
				persistErrs[i] = s.repo.UpdateSendStatus(ctx, rec.ID, campaign.SendFailed, "", sendErr.Error(), now)
			} else {
				res.Status = campaign.SendSent
				res.ProviderMessageID = messageID
				persistErrs[i] = s.repo.UpdateSendStatus(ctx, rec.ID, campaign.SendSent, messageID, "", now)
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	for _, err := range persistErrs {
		if err != nil {
			return results, fmt.Errorf("failed to persist send status: %w", err)
		}
	}
	return results, nil
}

// sendOne delivers a single record. A missing or unfetchable attachment
// degrades to a plain structured send instead of failing the record.
func (s *CampaignService) sendOne(ctx context.Context, c *campaign.Campaign, rec *campaign.EmailSend, inv *invoice.Invoice) (messageID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while sending record",
				zap.Int64("email_send_id", rec.ID), zap.Any("panic", r))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if c.AttachPDF && inv != nil && inv.HasAttachment() {
		data, fetchErr := s.objects.FetchObject(ctx, inv.AttachmentBucket.String, inv.AttachmentKey.String)
		if fetchErr != nil {
			s.logger.Warn("attachment fetch failed, sending without attachment",
				zap.Int64("invoice_id", inv.ID), zap.Error(fetchErr))
		}
		if fetchErr == nil && data != nil {
			mime, buildErr := email.BuildMIMEWithAttachment(
				s.fromAddress(), rec.Recipient, rec.Subject, rec.Body,
				fmt.Sprintf("invoice-%s.pdf", inv.InvoiceNumber), data)
			if buildErr == nil {
				return s.sender.SendRaw(rec.Recipient, mime)
			}
			s.logger.Warn("attachment MIME build failed, sending without attachment",
				zap.Int64("invoice_id", inv.ID), zap.Error(buildErr))
		}
	}

	return s.sender.SendStructured(rec.Recipient, rec.Subject, rec.Body)
}

func (s *CampaignService) loadInvoices(ctx context.Context, c *campaign.Campaign, sends []campaign.EmailSend) (map[int64]*invoice.Invoice, error) {
	ids := make([]int64, 0, len(sends))
	seen := map[int64]bool{}
	for _, rec := range sends {
		if !seen[rec.InvoiceID] {
			seen[rec.InvoiceID] = true
			ids = append(ids, rec.InvoiceID)
		}
	}
	invoices, err := s.invoices.FindByIDs(ctx, c.CompanyID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign invoices: %w", err)
	}
	byID := make(map[int64]*invoice.Invoice, len(invoices))
	for i := range invoices {
		byID[invoices[i].ID] = &invoices[i]
	}
	return byID, nil
}

func (s *CampaignService) isPaused(ctx context.Context, id int64) (bool, error) {
	status, err := s.repo.GetStatus(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to read campaign status: %w", err)
	}
	return status == campaign.StatusPaused, nil
}

func (s *CampaignService) publishTerminal(id int64, result *campaign.SendResult, final campaign.Status) {
	ev := campaign.ProgressEvent{
		CampaignID:  id,
		Terminal:    true,
		FinalStatus: final,
	}
	if result != nil {
		ev.Sent = result.Sent
		ev.Failed = result.Failed
		ev.Total = result.Total
		if result.Total > 0 {
			ev.PercentDone = float64(result.Sent+result.Failed) / float64(result.Total) * 100
		}
	}
	s.progress.publish(ev)
}

func (s *CampaignService) fromAddress() string {
	if f, ok := s.sender.(interface{ FromAddress() string }); ok {
		return f.FromAddress()
	}
	return "collections@tahseel.ae"
}
