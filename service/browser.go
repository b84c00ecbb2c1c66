package service

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"

	"applyai/domain"
)

const (
	ScorePlaceholder       = "-"
	ExplanationPlaceholder = "No explanation available from the AI. Please try re-uploading your resume or contact support."
	NoApplyMethodMessage   = "No application method available"

	PromptFeedback = "feedback"
	PromptUpgrade  = "upgrade"
)

type ApplyKind string

const (
	ApplyInternal ApplyKind = "internal"
	ApplyExternal ApplyKind = "external"
	ApplyNone     ApplyKind = "none"
)

// ApplyOption tells the client how a candidate can apply for the job.
type ApplyOption struct {
	Kind        ApplyKind `json:"kind"`
	JobID       string    `json:"job_id,omitempty"`
	RecruiterID string    `json:"recruiter_id,omitempty"`
	URL         string    `json:"url,omitempty"`
	Message     string    `json:"message,omitempty"`
}

type ScoreBreakdown struct {
	Overall    string `json:"overall"`
	Skills     string `json:"skills"`
	Experience string `json:"experience"`
	Education  string `json:"education"`
}

// JobDetail is the fully resolved view of one match.
type JobDetail struct {
	Ref             string          `json:"ref"`
	Index           int             `json:"index"`
	Job             domain.JobMatch `json:"job"`
	Scores          ScoreBreakdown  `json:"scores"`
	MatchedSkills   []string        `json:"matched_skills"`
	MissingSkills   []string        `json:"missing_skills"`
	SkillsAvailable bool            `json:"skills_available"`
	Explanation     string          `json:"explanation"`
	Apply           ApplyOption     `json:"apply"`
}

// JobCard is one row of a listing.
type JobCard struct {
	Ref string `json:"ref"`
	domain.JobMatch
}

type Views struct {
	TopMatches []JobCard `json:"top_matches"`
	AllJobs    []JobCard `json:"all_jobs"`
}

// Browser serves read access to a session's results and gates opening a job behind the quota ledger.
type Browser struct {
	results *ResultStore
	quota   *QuotaLedger
	log     *logrus.Logger
}

func NewBrowser(results *ResultStore, quota *QuotaLedger, log *logrus.Logger) *Browser {
	return &Browser{results: results, quota: quota, log: log}
}

func (b *Browser) Views(session, employmentType string) (Views, error) {
	res, ok := b.results.Get(session)
	if !ok {
		return Views{}, domain.ErrNoResults
	}
	return Views{
		TopMatches: cards(res.TopMatches(employmentType)),
		AllJobs:    cards(res.AllJobs(employmentType)),
	}, nil
}

func cards(ms []domain.IndexedMatch) []JobCard {
	out := make([]JobCard, len(ms))
	for i, m := range ms {
		out[i] = JobCard{Ref: m.Ref(), JobMatch: m.JobMatch}
	}
	return out
}

// Open records a view of the job and returns the path of its detail page.
func (b *Browser) Open(ctx context.Context, session string, id domain.Identity, ref string) (string, error) {
	if id.Anonymous() {
		return "", domain.ErrAuthRequired
	}
	res, version, ok := b.results.Version(session)
	if !ok {
		return "", domain.ErrNoResults
	}
	m, ok := res.Resolve(ref)
	if !ok {
		return "", domain.ErrJobNotFound
	}
	jobRef := ledgerRef(m, version)

	if b.quota.Policy().Enforce && !b.quota.HasViewed(ctx, id, jobRef) && !b.quota.HasQuota(ctx, id) {
		prompt := PromptUpgrade
		if !b.quota.FeedbackGiven(ctx, id) {
			prompt = PromptFeedback
		}
		b.log.WithFields(logrus.Fields{"user_id": id.UID, "job": jobRef, "prompt": prompt}).Info("job view blocked by quota")
		return "", domain.ErrQuotaExhausted.WithDetails(map[string]string{"prompt": prompt})
	}

	b.quota.RecordView(ctx, id, jobRef)
	return ResultsPath + "/" + m.Ref(), nil
}

// ledgerRef is the job identifier recorded as viewed. A match without one is recorded by
// position within this particular result, so it never collides with a later result set.
func ledgerRef(m domain.IndexedMatch, version string) string {
	if k := m.Key(); k != "" {
		return k
	}
	return version + "#" + strconv.Itoa(m.Index)
}

// Detail resolves ref by identifier first, then by position.
func (b *Browser) Detail(session, ref string) (JobDetail, error) {
	res, ok := b.results.Get(session)
	if !ok {
		return JobDetail{}, domain.ErrNoResults
	}
	m, ok := res.Resolve(ref)
	if !ok {
		return JobDetail{}, domain.ErrJobNotFound
	}

	matched := nonNil(m.MatchedSkills)
	missing := nonNil(m.MissingSkills)
	explanation := m.Explanation()
	if explanation == "" {
		explanation = ExplanationPlaceholder
	}

	return JobDetail{
		Ref:   m.Ref(),
		Index: m.Index,
		Job:   m.JobMatch,
		Scores: ScoreBreakdown{
			Overall:    formatScore(&m.Compatibility),
			Skills:     formatScore(m.SkillScore),
			Experience: formatScore(m.ExpScore),
			Education:  formatScore(m.EduScore),
		},
		MatchedSkills:   matched,
		MissingSkills:   missing,
		SkillsAvailable: len(matched) > 0 || len(missing) > 0,
		Explanation:     explanation,
		Apply:           applyOption(m),
	}, nil
}

func applyOption(m domain.IndexedMatch) ApplyOption {
	switch {
	case m.RecruiterID != "":
		return ApplyOption{Kind: ApplyInternal, JobID: m.Ref(), RecruiterID: m.RecruiterID}
	case m.Link != "":
		return ApplyOption{Kind: ApplyExternal, URL: m.Link}
	default:
		return ApplyOption{Kind: ApplyNone, Message: NoApplyMethodMessage}
	}
}

func formatScore(v *float64) string {
	if v == nil {
		return ScorePlaceholder
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
