package dto

import "time"

type CommitResult struct {
	CommitmentID    string     `json:"commitment_id"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	TotalPrice      string     `json:"total_price"`
	TotalCents      int64      `json:"total_cents"`
	Currency        string     `json:"currency"`
	ConfirmationURL string     `json:"confirmation_url"`
	Assessment      Assessment `json:"assessment"`
}
