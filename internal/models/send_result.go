package models

// Send outcome values.
const (
	SendSuccess = "success"
	SendFailed  = "failed"
)

// SendResult is the outcome of messaging one attendee during a bulk send.
type SendResult struct {
	Email       string `json:"email"`
	AffiliateID string `json:"affiliateId,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}
