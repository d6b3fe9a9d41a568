package models

import "time"

type PublishResult struct {
	Platform  string `json:"platform"`
	AccountID int64  `json:"account_id,omitempty"`
	Success   bool   `json:"success"`
	PostID    string `json:"post_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PublishOutcome is what a single publish attempt of a post produced.
type PublishOutcome struct {
	PostID     int64           `json:"post_id"`
	UserID     int64           `json:"user_id"`
	Status     PostStatus      `json:"status"`
	Results    []PublishResult `json:"results"`
	Skipped    bool            `json:"skipped,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// FinalStatus applies the at-least-one-success rule.
func FinalStatus(results []PublishResult) PostStatus {
	for _, r := range results {
		if r.Success {
			return PostStatusPublished
		}
	}
	return PostStatusFailed
}
