package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeSendPaymentEmail JobType = "send_payment_email"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// PaymentEmailJobPayload contains the payload for payment confirmation emails
type PaymentEmailJobPayload struct {
	UserID        uint   `json:"user_id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Plan          string `json:"plan"`
	BillingCycle  string `json:"billing_cycle"`
	Amount        int64  `json:"amount"` // minor units
	Currency      string `json:"currency"`
	Provider      string `json:"provider"`
	TransactionID string `json:"transaction_id"`
	ReferenceID   string `json:"reference_id"`
	Type          string `json:"type"` // subscription or card_order
}

// ToMap converts the payload to a map for storage
func (p PaymentEmailJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        p.UserID,
		"email":          p.Email,
		"name":           p.Name,
		"plan":           p.Plan,
		"billing_cycle":  p.BillingCycle,
		"amount":         p.Amount,
		"currency":       p.Currency,
		"provider":       p.Provider,
		"transaction_id": p.TransactionID,
		"reference_id":   p.ReferenceID,
		"type":           p.Type,
	}
}

// FromMap creates a payload from a map
func PaymentEmailJobPayloadFromMap(data map[string]interface{}) (*PaymentEmailJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload PaymentEmailJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
