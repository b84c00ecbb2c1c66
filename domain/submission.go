package domain

import (
	"path/filepath"
	"strings"
	"unicode"
)

// AcceptedResumeExtensions lists the file types the matcher can take.
var AcceptedResumeExtensions = []string{".pdf", ".doc", ".docx", ".txt", ".png", ".jpg", ".jpeg"}

type ResumeFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Ext returns the lower-cased extension including the dot.
func (f ResumeFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Filename))
}

// Accepted reports whether the file extension is one of AcceptedResumeExtensions.
func (f ResumeFile) Accepted() bool {
	ext := f.Ext()
	for _, a := range AcceptedResumeExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

type Education struct {
	School string `json:"school"`
	Degree string `json:"degree"`
	Dates  string `json:"dates"`
}

type Experience struct {
	Role        string `json:"role"`
	Company     string `json:"company"`
	Dates       string `json:"dates"`
	Description string `json:"description"`
}

// ManualProfile is entered by the candidate when the résumé could not be read.
type ManualProfile struct {
	Skills      string       `json:"skills" validate:"required,max=2000,skill-list"`
	Education   []Education  `json:"education" validate:"max=20"`
	Experiences []Experience `json:"experiences" validate:"max=50"`
}

// SkillList splits the comma separated skills, dropping blanks.
func (p ManualProfile) SkillList() []string {
	var out []string
	for _, s := range strings.Split(p.Skills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FilledEducation drops rows where every field is blank.
func (p ManualProfile) FilledEducation() []Education {
	out := make([]Education, 0, len(p.Education))
	for _, e := range p.Education {
		if strings.TrimSpace(e.School+e.Degree+e.Dates) != "" {
			out = append(out, e)
		}
	}
	return out
}

// FilledExperiences drops rows where every field is blank.
func (p ManualProfile) FilledExperiences() []Experience {
	out := make([]Experience, 0, len(p.Experiences))
	for _, e := range p.Experiences {
		if strings.TrimSpace(e.Role+e.Company+e.Dates+e.Description) != "" {
			out = append(out, e)
		}
	}
	return out
}

// Submission is one résumé-matching request.
// Manual is set only when the flow is in manual mode.
type Submission struct {
	Resume *ResumeFile
	Salary string
	Manual *ManualProfile
}

// SanitizeSalary keeps only the digits of s.
func SanitizeSalary(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
