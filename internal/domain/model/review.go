package model

import "time"

// Review represents a review event submitted on a pull request.
type Review struct {
	ReviewerLogin string
	SubmittedAt   time.Time
}
