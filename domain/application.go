package domain

import "time"

type ApplicationStatus string

const (
	StatusApplied   ApplicationStatus = "applied"
	StatusReviewing ApplicationStatus = "reviewing"
	StatusInterview ApplicationStatus = "interview"
	StatusOffer     ApplicationStatus = "offer"
	StatusHired     ApplicationStatus = "hired"
	StatusRejected  ApplicationStatus = "rejected"
)

type Application struct {
	ID           string            `gorm:"primaryKey;size:36" json:"id"`
	JobID        string            `gorm:"size:36;index;not null" json:"jobId"`
	CandidateUID string            `gorm:"size:64;index;not null" json:"candidateUid"`
	RecruiterID  string            `gorm:"size:64;index" json:"recruiterId"`
	ResumeKey    string            `gorm:"size:512" json:"resumeKey"`
	Status       ApplicationStatus `gorm:"size:16;not null;default:'applied'" json:"status"`
	Notes        string            `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

var allowedTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusApplied:   {StatusReviewing, StatusRejected},
	StatusReviewing: {StatusInterview, StatusRejected},
	StatusInterview: {StatusOffer, StatusRejected},
	StatusOffer:     {StatusHired, StatusRejected},
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s ApplicationStatus) bool {
	switch s {
	case StatusApplied, StatusReviewing, StatusInterview, StatusOffer, StatusHired, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from s.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusHired || s == StatusRejected
}

// CanTransition reports whether an application may move from -> to.
func CanTransition(from, to ApplicationStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyRequest carries a candidate's application for a matched job.
type ApplyRequest struct {
	JobID        string
	RecruiterID  string
	CandidateUID string
	Resume       ResumeFile
}

// ApplyReceipt is returned once an application is accepted.
type ApplyReceipt struct {
	ApplicationID string `json:"applicationId,omitempty"`
	Message       string `json:"message"`
}
