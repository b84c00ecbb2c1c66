package domain

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// TopMatchThreshold is the compatibility a match must exceed to be listed as a top match.
const TopMatchThreshold = 50.0

// EmploymentTypeAll disables the employment-type facet.
const EmploymentTypeAll = "All"

// JobMatch is one scored job returned by a matcher.
type JobMatch struct {
	ID             string   `json:"id,omitempty"`
	JobID          string   `json:"job_id,omitempty"`
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Description    string   `json:"description"`
	Compatibility  float64  `json:"compatibility"`
	SkillScore     *float64 `json:"skill_score,omitempty"`
	ExpScore       *float64 `json:"exp_score,omitempty"`
	EduScore       *float64 `json:"edu_score,omitempty"`
	MatchedSkills  []string `json:"matched_skills"`
	MissingSkills  []string `json:"missing_skills"`
	EmploymentType string   `json:"employment_type,omitempty"`
	Location       string   `json:"location,omitempty"`
	Link           string   `json:"link,omitempty"`
	RecruiterID    string   `json:"recruiterId,omitempty"`
	LLMReason      string   `json:"llm_reason,omitempty"`
	Reason         string   `json:"reason,omitempty"`
}

// UnmarshalJSON accepts numeric ids and the recruiter_id spelling some backends emit.
func (m *JobMatch) UnmarshalJSON(data []byte) error {
	type plain JobMatch
	var aux struct {
		plain
		ID             json.RawMessage `json:"id"`
		JobID          json.RawMessage `json:"job_id"`
		RecruiterSnake string          `json:"recruiter_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = JobMatch(aux.plain)
	m.ID = rawIdentifier(aux.ID)
	m.JobID = rawIdentifier(aux.JobID)
	if m.RecruiterID == "" {
		m.RecruiterID = aux.RecruiterSnake
	}
	return nil
}

func rawIdentifier(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// Key is the identifier used to address the match, empty when the backend sent none.
func (m JobMatch) Key() string {
	if m.JobID != "" {
		return m.JobID
	}
	return m.ID
}

// Explanation returns the LLM reasoning attached to the match.
func (m JobMatch) Explanation() string {
	if strings.TrimSpace(m.LLMReason) != "" {
		return m.LLMReason
	}
	return m.Reason
}

// IsTopMatch reports whether the match clears TopMatchThreshold.
func (m JobMatch) IsTopMatch() bool {
	return m.Compatibility > TopMatchThreshold
}

// HasEmploymentType applies the employment-type facet. "All" (or empty) matches everything;
// otherwise the comparison is case-insensitive and a match without a type never qualifies.
func (m JobMatch) HasEmploymentType(filter string) bool {
	if filter == "" || filter == EmploymentTypeAll {
		return true
	}
	if m.EmploymentType == "" {
		return false
	}
	return strings.EqualFold(m.EmploymentType, filter)
}

// MatchResult is the response of one submission.
type MatchResult struct {
	Matches []JobMatch     `json:"matches"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Clone returns a deep copy so readers never observe later mutation.
func (r MatchResult) Clone() MatchResult {
	out := MatchResult{Matches: make([]JobMatch, len(r.Matches))}
	for i, m := range r.Matches {
		out.Matches[i] = m.clone()
	}
	if r.Meta != nil {
		out.Meta = make(map[string]any, len(r.Meta))
		for k, v := range r.Meta {
			out.Meta[k] = v
		}
	}
	return out
}

func (m JobMatch) clone() JobMatch {
	cp := m
	cp.SkillScore = cloneScore(m.SkillScore)
	cp.ExpScore = cloneScore(m.ExpScore)
	cp.EduScore = cloneScore(m.EduScore)
	cp.MatchedSkills = append([]string(nil), m.MatchedSkills...)
	cp.MissingSkills = append([]string(nil), m.MissingSkills...)
	return cp
}

func cloneScore(s *float64) *float64 {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// IndexedMatch keeps a match together with its position in the original result.
type IndexedMatch struct {
	Index int
	JobMatch
}

// Ref is the value used to address the match in navigation: its key, or its position.
func (m IndexedMatch) Ref() string {
	if k := m.Key(); k != "" {
		return k
	}
	return strconv.Itoa(m.Index)
}

// AllJobs returns every match passing the employment-type facet, by compatibility descending.
// Ties keep their original relative order.
func (r MatchResult) AllJobs(employmentType string) []IndexedMatch {
	return r.view(employmentType, false)
}

// TopMatches is AllJobs restricted to matches above TopMatchThreshold.
func (r MatchResult) TopMatches(employmentType string) []IndexedMatch {
	return r.view(employmentType, true)
}

func (r MatchResult) view(employmentType string, topOnly bool) []IndexedMatch {
	out := make([]IndexedMatch, 0, len(r.Matches))
	for i, m := range r.Matches {
		if topOnly && !m.IsTopMatch() {
			continue
		}
		if !m.HasEmploymentType(employmentType) {
			continue
		}
		out = append(out, IndexedMatch{Index: i, JobMatch: m})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Compatibility > out[j].Compatibility
	})
	return out
}

// Resolve finds a match by exact identifier, falling back to ref as a positional index.
func (r MatchResult) Resolve(ref string) (IndexedMatch, bool) {
	for i, m := range r.Matches {
		if (m.JobID != "" && m.JobID == ref) || (m.ID != "" && m.ID == ref) {
			return IndexedMatch{Index: i, JobMatch: m}, true
		}
	}
	idx, err := strconv.Atoi(strings.TrimSpace(ref))
	if err != nil || idx < 0 || idx >= len(r.Matches) {
		return IndexedMatch{}, false
	}
	return IndexedMatch{Index: idx, JobMatch: r.Matches[idx]}, true
}
