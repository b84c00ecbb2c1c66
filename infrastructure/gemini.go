package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"applyai/domain"
)

const catalogLimit = 20

const genericReasonFormat = "Based on your resume and the job description for %s at %s, we couldn't extract detailed skills or experience matches, " +
	"but you may still be a good fit! We encourage you to review the job requirements and consider applying if you feel qualified. " +
	"If you want a more tailored match, try updating your resume with more details."

// JobCatalog lists the postings the local matcher scores against.
type JobCatalog interface {
	Catalog(ctx context.Context, limit int) ([]domain.Job, error)
}

// contentGenerator is the slice of the Gemini API the matcher uses.
type contentGenerator interface {
	Generate(ctx context.Context, model string, parts []*genai.Part, cfg *genai.GenerateContentConfig) (string, error)
}

type GeminiConfig struct {
	APIKey   string
	Model    string
	Project  string
	Location string
}

// NewGeminiClient talks to Vertex AI when a project is configured, otherwise to the Gemini API.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*genai.Client, error) {
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.Project != "" {
		cc = &genai.ClientConfig{Project: cfg.Project, Location: cfg.Location, Backend: genai.BackendVertexAI}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

type genaiGenerator struct {
	client *genai.Client
}

func (g genaiGenerator) Generate(ctx context.Context, model string, parts []*genai.Part, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, []*genai.Content{{Role: "user", Parts: parts}}, cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// GeminiMatcher scores a résumé against the local job catalog with Gemini.
type GeminiMatcher struct {
	gen     contentGenerator
	model   string
	catalog JobCatalog
	retry   RetryConfig
	log     *logrus.Logger
}

func NewGeminiMatcher(client *genai.Client, model string, catalog JobCatalog, log *logrus.Logger) *GeminiMatcher {
	return &GeminiMatcher{
		gen:     genaiGenerator{client: client},
		model:   model,
		catalog: catalog,
		retry:   DefaultRetryConfig.WithLogger(log),
		log:     log,
	}
}

// geminiScore is one element of the model's JSON answer.
type geminiScore struct {
	JobID         string   `json:"job_id"`
	Compatibility float64  `json:"compatibility"`
	SkillScore    *float64 `json:"skill_score"`
	ExpScore      *float64 `json:"exp_score"`
	EduScore      *float64 `json:"edu_score"`
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
	Reason        string   `json:"reason"`
}

func (m *GeminiMatcher) Match(ctx context.Context, sub domain.Submission) (domain.MatchResult, error) {
	text := m.resumeText(ctx, sub.Resume)
	if strings.TrimSpace(text) == "" && sub.Manual == nil {
		return domain.MatchResult{
			Matches: []domain.JobMatch{},
			Meta:    map[string]any{"fallback": true, "error": "no text could be extracted from the resume"},
		}, nil
	}

	jobs, err := m.catalog.Catalog(ctx, catalogLimit)
	if err != nil {
		return domain.MatchResult{}, domain.InternalError(fmt.Errorf("load job catalog: %w", err))
	}
	if len(jobs) == 0 {
		return domain.MatchResult{}, domain.ErrUpstream.WithMessage("No jobs are available for matching right now.")
	}

	prompt, err := buildMatchPrompt(text, sub, jobs)
	if err != nil {
		return domain.MatchResult{}, domain.InternalError(err)
	}

	scores, err := RetryDo(ctx, m.retry, func() ([]geminiScore, error) {
		out, err := m.gen.Generate(ctx, m.model, []*genai.Part{{Text: prompt}}, &genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0.1),
			ResponseMIMEType: "application/json",
			ResponseSchema:   scoreSchema,
		})
		if err != nil {
			return nil, &RetryableError{Err: err}
		}
		var parsed []geminiScore
		if err := json.Unmarshal([]byte(cleanJSONResponse(out)), &parsed); err != nil {
			return nil, &RetryableError{Err: fmt.Errorf("decode model output: %w", err)}
		}
		return parsed, nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return domain.MatchResult{}, err
		}
		return domain.MatchResult{}, domain.WrapError(err, domain.CodeUpstream, domain.ErrUpstream.Message, domain.ErrUpstream.HTTPCode)
	}

	matches := mergeScores(jobs, scores)
	m.log.WithFields(logrus.Fields{"jobs": len(jobs), "matches": len(matches), "model": m.model}).Info("gemini matching finished")

	return domain.MatchResult{
		Matches: matches,
		Meta: map[string]any{
			"fallback":     false,
			"model":        m.model,
			"resume_chars": len(text),
			"manual":       sub.Manual != nil,
		},
	}, nil
}

// resumeText extracts text locally and falls back to Gemini transcription for scans and images.
func (m *GeminiMatcher) resumeText(ctx context.Context, f *domain.ResumeFile) string {
	if f == nil {
		return ""
	}
	text, err := ExtractResumeText(f.Filename, f.Data, m.log)
	if err != nil {
		m.log.WithError(err).WithField("file", f.Filename).Warn("resume text extraction failed")
		return ""
	}
	if text != "" {
		return text
	}

	mime := transcribableMIME(f.Ext())
	if mime == "" {
		return ""
	}
	text, err = RetryDo(ctx, m.retry, func() (string, error) {
		out, err := m.gen.Generate(ctx, m.model, []*genai.Part{
			{Text: transcribePrompt},
			{InlineData: &genai.Blob{MIMEType: mime, Data: f.Data}},
		}, &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.1)})
		if err != nil {
			return "", &RetryableError{Err: err}
		}
		return strings.TrimSpace(out), nil
	})
	if err != nil {
		m.log.WithError(err).Warn("gemini transcription failed")
		return ""
	}
	return text
}

func transcribableMIME(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	return ""
}

const transcribePrompt = `Extract ALL text content from this resume. Return ONLY the raw extracted text without any additional comments, formatting, or explanations. Include:

- Personal information (name, email, phone)
- Education history
- Work experience
- Skills and technologies
- Certifications
- Projects and achievements

Return the text exactly as it appears in the document.`

type promptJob struct {
	JobID          string   `json:"job_id"`
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Description    string   `json:"description"`
	SkillsRequired []string `json:"skills_required"`
	Location       string   `json:"location"`
	EmploymentType string   `json:"employment_type"`
}

func buildMatchPrompt(resumeText string, sub domain.Submission, jobs []domain.Job) (string, error) {
	listing := make([]promptJob, len(jobs))
	for i, j := range jobs {
		listing[i] = promptJob{
			JobID:          j.ID,
			Title:          j.Title,
			Company:        j.Company,
			Description:    j.Description,
			SkillsRequired: j.SkillsRequired,
			Location:       j.Location,
			EmploymentType: j.EmploymentType,
		}
	}
	jobsJSON, err := json.Marshal(listing)
	if err != nil {
		return "", fmt.Errorf("marshal job listing: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a recruiter matching one candidate against a list of job listings.\n\n")
	if resumeText != "" {
		b.WriteString("Candidate Resume:\n")
		b.WriteString(resumeText)
		b.WriteString("\n\n")
	}
	if sub.Manual != nil {
		b.WriteString("Candidate Skills: ")
		b.WriteString(strings.Join(sub.Manual.SkillList(), ", "))
		b.WriteString("\n")
		if edu := sub.Manual.FilledEducation(); len(edu) > 0 {
			raw, _ := json.Marshal(edu)
			b.WriteString("Candidate Education: ")
			b.Write(raw)
			b.WriteString("\n")
		}
		if exp := sub.Manual.FilledExperiences(); len(exp) > 0 {
			raw, _ := json.Marshal(exp)
			b.WriteString("Candidate Experience: ")
			b.Write(raw)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if sub.Salary != "" {
		b.WriteString("Expected Salary: ")
		b.WriteString(sub.Salary)
		b.WriteString("\n\n")
	}
	b.WriteString("Job Listings (JSON):\n")
	b.Write(jobsJSON)
	b.WriteString(`

For every job listing return one object with:
- job_id: the listing's job_id, unchanged
- compatibility: overall fit, 0-100
- skill_score, exp_score, edu_score: 0-100 for skills, work experience and education
- matched_skills: required skills present in the candidate's profile
- missing_skills: required skills the candidate lacks
- reason: a friendly, encouraging explanation of the fit, mentioning relevant experience or education and any gaps

Return ONLY a JSON array, no markdown.`)
	return b.String(), nil
}

var scoreSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"job_id":         {Type: genai.TypeString},
			"compatibility":  {Type: genai.TypeNumber},
			"skill_score":    {Type: genai.TypeNumber},
			"exp_score":      {Type: genai.TypeNumber},
			"edu_score":      {Type: genai.TypeNumber},
			"matched_skills": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"missing_skills": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"reason":         {Type: genai.TypeString},
		},
		Required: []string{"job_id", "compatibility"},
	},
}

// mergeScores joins the model output with the catalog. Scores for unknown ids are dropped
// and each job is reported once.
func mergeScores(jobs []domain.Job, scores []geminiScore) []domain.JobMatch {
	byID := make(map[string]domain.Job, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}

	seen := make(map[string]bool, len(scores))
	out := make([]domain.JobMatch, 0, len(scores))
	for _, s := range scores {
		job, ok := byID[s.JobID]
		if !ok || seen[s.JobID] {
			continue
		}
		seen[s.JobID] = true

		reason := strings.TrimSpace(s.Reason)
		if reason == "" {
			reason = fmt.Sprintf(genericReasonFormat, job.Title, job.Company)
		}
		out = append(out, domain.JobMatch{
			JobID:          job.ID,
			Title:          job.Title,
			Company:        job.Company,
			Description:    job.Description,
			Compatibility:  clampScore(s.Compatibility),
			SkillScore:     clampPtr(s.SkillScore),
			ExpScore:       clampPtr(s.ExpScore),
			EduScore:       clampPtr(s.EduScore),
			MatchedSkills:  nonNilSkills(s.MatchedSkills),
			MissingSkills:  nonNilSkills(s.MissingSkills),
			EmploymentType: domain.NormalizeEmploymentType(job.EmploymentType),
			Location:       job.Location,
			Link:           job.Link,
			RecruiterID:    job.RecruiterID,
			LLMReason:      reason,
			Reason:         reason,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Compatibility > out[j].Compatibility })
	return out
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func clampPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := clampScore(*v)
	return &c
}

func nonNilSkills(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// cleanJSONResponse strips markdown fences and surrounding chatter from a model reply.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	content = strings.TrimSpace(content)

	open, close := "{", "}"
	if i := strings.IndexAny(content, "[{"); i != -1 && content[i] == '[' {
		open, close = "[", "]"
	}
	start := strings.Index(content, open)
	end := strings.LastIndex(content, close)
	if start != -1 && end != -1 && end > start {
		content = content[start : end+1]
	}
	return strings.TrimSpace(content)
}
