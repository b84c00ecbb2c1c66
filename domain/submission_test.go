package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResumeFileAccepted(t *testing.T) {
	for name, want := range map[string]bool{
		"cv.pdf":      true,
		"CV.PDF":      true,
		"cv.docx":     true,
		"cv.doc":      true,
		"notes.txt":   true,
		"scan.jpeg":   true,
		"scan.JPG":    true,
		"scan.png":    true,
		"cv.exe":      false,
		"cv":          false,
		"archive.zip": false,
	} {
		assert.Equal(t, want, ResumeFile{Filename: name}.Accepted(), name)
	}
}

func TestSkillList(t *testing.T) {
	p := ManualProfile{Skills: " Go, , SQL ,Docker,"}
	assert.Equal(t, []string{"Go", "SQL", "Docker"}, p.SkillList())
	assert.Empty(t, ManualProfile{}.SkillList())
}

func TestFilledRows(t *testing.T) {
	p := ManualProfile{
		Education:   []Education{{}, {School: "ITB"}},
		Experiences: []Experience{{Role: "Dev"}, {Dates: "  "}},
	}
	assert.Len(t, p.FilledEducation(), 1)
	assert.Len(t, p.FilledExperiences(), 1)
}

func TestSanitizeSalary(t *testing.T) {
	assert.Equal(t, "5000000", SanitizeSalary("Rp 5.000.000"))
	assert.Equal(t, "", SanitizeSalary("abc"))
}

func TestNormalizeEmploymentType(t *testing.T) {
	cases := map[string]string{
		"full-time":  EmploymentFullTime,
		"FULL_TIME":  EmploymentFullTime,
		"fulltime":   EmploymentFullTime,
		"Permanent":  "Permanent",
		"part time":  EmploymentPartTime,
		"Internship": EmploymentInternship,
		"intern":     EmploymentInternship,
		" Contract ": "Contract",
		"":           "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeEmploymentType(in), in)
	}
}

func TestManualProfileValidation(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Struct(ManualProfile{Skills: "Go, SQL"}))
	assert.Error(t, v.Struct(ManualProfile{}))
	assert.Error(t, v.Struct(ManualProfile{Skills: " , "}))
	assert.Error(t, v.Struct(ManualProfile{Skills: ",,,"}))
}
