package domain

import "time"

// FeedbackInput is submitted once a candidate has used their free views.
type FeedbackInput struct {
	JobRating    int    `json:"jobRating" validate:"required,min=1,max=5"`
	ResumeRating int    `json:"resumeRating" validate:"required,min=1,max=5"`
	Feedback     string `json:"feedback" validate:"max=4000"`
}

type Feedback struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       string `gorm:"size:64;index"`
	UserEmail    string `gorm:"size:255"`
	JobRating    int    `gorm:"not null"`
	ResumeRating int    `gorm:"not null"`
	Feedback     string `gorm:"type:text"`
	CreatedAt    time.Time
}
