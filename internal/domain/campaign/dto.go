// internal/domain/campaign/dto.go
package campaign

import "time"

type CreateCampaignRequest struct {
	Name       string  `json:"name" binding:"required,max=255"`
	Subject    string  `json:"subject" binding:"required,max=500"`
	Body       string  `json:"body" binding:"required"`
	InvoiceIDs []int64 `json:"invoice_ids" binding:"required,min=1"`

	BatchSize    int  `json:"batch_size" binding:"omitempty,min=1,max=50"`
	BatchDelayMS int  `json:"batch_delay_ms" binding:"omitempty,min=0"`
	AttachPDF    bool `json:"attach_pdf"`
}

// CreateCampaignResponse reports the created campaign plus any recipients
// that could not be enqueued (missing email, wrong status).
type CreateCampaignResponse struct {
	Campaign    *Campaign `json:"campaign"`
	SkippedIDs  []int64   `json:"skipped_invoice_ids,omitempty"`
	ReadyToSend bool      `json:"ready_to_send"`
}

// RecipientResult is the per-record outcome reported by the dispatcher.
type RecipientResult struct {
	EmailSendID       int64      `json:"email_send_id"`
	InvoiceID         int64      `json:"invoice_id"`
	Recipient         string     `json:"recipient"`
	Status            SendStatus `json:"status"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	Error             string     `json:"error,omitempty"`
}

// ProgressEvent is coalesced per batch, plus one terminal event. Batch and
// TotalBatches are 1-based; a terminal event repeats the final counters
// with Terminal set.
type ProgressEvent struct {
	CampaignID     int64         `json:"campaign_id"`
	Batch          int           `json:"batch"`
	TotalBatches   int           `json:"total_batches"`
	Sent           int           `json:"sent"`
	Failed         int           `json:"failed"`
	Total          int           `json:"total"`
	PercentDone    float64       `json:"percent_done"`
	EstimatedLeft  time.Duration `json:"estimated_left_ms"`
	Terminal       bool          `json:"terminal"`
	FinalStatus    Status        `json:"final_status,omitempty"`
}

// SendResult summarizes a completed dispatch run.
type SendResult struct {
	CampaignID  int64             `json:"campaign_id"`
	Status      Status            `json:"status"`
	Total       int               `json:"total"`
	Sent        int               `json:"sent"`
	Failed      int               `json:"failed"`
	SuccessRate float64           `json:"success_rate"`
	Duration    time.Duration     `json:"duration_ms"`
	Recipients  []RecipientResult `json:"recipients"`
}

// Progress is the read-only projection over the EmailSend aggregate,
// re-derivable at any time.
type Progress struct {
	CampaignID  int64   `json:"campaign_id"`
	Status      Status  `json:"status"`
	Total       int     `json:"total"`
	Pending     int     `json:"pending"`
	Sent        int     `json:"sent"`
	Failed      int     `json:"failed"`
	PercentDone float64 `json:"percent_done"`
}

type ListFilters struct {
	Status   *Status `form:"status"`
	Page     int     `form:"page" binding:"omitempty,min=1"`
	PageSize int     `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type ListResponse struct {
	Campaigns  []Campaign `json:"campaigns"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}
