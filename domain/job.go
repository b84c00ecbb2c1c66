package domain

import (
	"strings"
	"time"
)

const (
	EmploymentFullTime   = "Full Time"
	EmploymentPartTime   = "Part Time"
	EmploymentInternship = "Internship"
)

// Job is a posting owned by a recruiter. It doubles as the catalog the local matcher scores against.
type Job struct {
	ID             string   `gorm:"primaryKey;size:36" json:"id"`
	RecruiterID    string   `gorm:"size:64;index;not null" json:"recruiterId"`
	Title          string   `gorm:"size:255;not null" json:"title"`
	Company        string   `gorm:"size:255" json:"company"`
	Description    string   `gorm:"type:text;not null" json:"description"`
	SkillsRequired []string `gorm:"serializer:json;type:json" json:"skills_required"`
	Location       string   `gorm:"size:255" json:"location"`
	EmploymentType string   `gorm:"size:64" json:"employment_type"`
	Link           string   `gorm:"size:512" json:"link,omitempty"`
	CreatedAt      time.Time
}

// JobInput is the recruiter-supplied payload for a new posting.
type JobInput struct {
	Title          string   `json:"title" validate:"required,max=255"`
	Company        string   `json:"company" validate:"required,max=255"`
	Description    string   `json:"description" validate:"required"`
	SkillsRequired []string `json:"skills_required" validate:"dive,required"`
	Location       string   `json:"location" validate:"max=255"`
	EmploymentType string   `json:"employment_type" validate:"max=64"`
	Link           string   `json:"link" validate:"omitempty,url"`
}

// NormalizeEmploymentType maps the many spellings found in postings onto
// Full Time, Part Time or Internship. Unknown values are returned trimmed.
func NormalizeEmploymentType(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.NewReplacer("-", " ", "_", " ").Replace(v)
	switch {
	case strings.Contains(v, "full"):
		return EmploymentFullTime
	case strings.Contains(v, "part"):
		return EmploymentPartTime
	case strings.Contains(v, "intern"):
		return EmploymentInternship
	}
	return strings.TrimSpace(raw)
}
