package domain

import "time"

const (
	RoleCandidate = "candidate"
	RoleRecruiter = "recruiter"
)

// Identity is the authenticated caller. The zero value is anonymous.
type Identity struct {
	UID   string
	Email string
}

func (i Identity) Anonymous() bool {
	return i.UID == ""
}

// UserInfo is what the user directory knows about an identity.
type UserInfo struct {
	UID         string `json:"uid"`
	Role        string `json:"role"`
	RecruiterID string `json:"recruiterId,omitempty"`
}

func (u UserInfo) IsRecruiter() bool {
	return u.Role == RoleRecruiter
}

// User is the local directory row.
type User struct {
	UID         string `gorm:"primaryKey;size:64"`
	Email       string `gorm:"size:255"`
	Role        string `gorm:"size:32;not null;default:'candidate'"`
	RecruiterID string `gorm:"size:64"`
	CreatedAt   time.Time
}
