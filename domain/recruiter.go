package domain

import "time"

// RecruiterProfile is the company-facing record behind a recruiter id.
type RecruiterProfile struct {
	RecruiterID    string    `gorm:"primaryKey;size:64" json:"recruiterId"`
	UserID         string    `gorm:"size:64;index" json:"userId"`
	FullName       string    `gorm:"size:255" json:"fullName"`
	CompanyName    string    `gorm:"size:255" json:"companyName"`
	CompanyEmail   string    `gorm:"size:255" json:"companyEmail"`
	Phone          string    `gorm:"size:64" json:"phone"`
	Qualifications string    `gorm:"type:text" json:"qualifications"`
	IsPro          bool      `gorm:"not null;default:false" json:"isPro"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ProfileUpdate changes only the fields that are present.
type ProfileUpdate struct {
	FullName       *string `json:"fullName" validate:"omitempty,max=255"`
	CompanyName    *string `json:"companyName" validate:"omitempty,max=255"`
	CompanyEmail   *string `json:"companyEmail" validate:"omitempty,email,max=255"`
	Phone          *string `json:"phone" validate:"omitempty,max=64"`
	Qualifications *string `json:"qualifications" validate:"omitempty,max=4000"`
	IsPro          *bool   `json:"isPro"`
}

// Apply copies the present fields onto p.
func (u ProfileUpdate) Apply(p *RecruiterProfile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.FullName, u.FullName)
	set(&p.CompanyName, u.CompanyName)
	set(&p.CompanyEmail, u.CompanyEmail)
	set(&p.Phone, u.Phone)
	set(&p.Qualifications, u.Qualifications)
	if u.IsPro != nil {
		p.IsPro = *u.IsPro
	}
}

const (
	SenderRecruiter = "recruiter"
	SenderApplicant = "applicant"
)

// Message is one entry of the thread between a recruiter and an applicant about a job.
type Message struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	JobID       string    `gorm:"size:36;index:idx_message_thread;not null" json:"jobId"`
	RecruiterID string    `gorm:"size:64;index:idx_message_thread;not null" json:"recruiterId"`
	ApplicantID string    `gorm:"size:64;index:idx_message_thread;not null" json:"applicantId"`
	Sender      string    `gorm:"size:16;not null" json:"sender"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	CreatedAt   time.Time `json:"timestamp"`
}

type MessageInput struct {
	JobID       string `json:"jobId" validate:"required"`
	ApplicantID string `json:"applicantId" validate:"required"`
	Content     string `json:"content" validate:"required,max=4000"`
}

// BulkMessageInput sends the same template to several applicants of one job.
type BulkMessageInput struct {
	JobID        string   `json:"jobId" validate:"required"`
	ApplicantIDs []string `json:"applicantIds" validate:"required,min=1,max=200,dive,required"`
	Template     string   `json:"template" validate:"required,max=4000"`
}
