package infrastructure

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"applyai/domain"
	"applyai/logger"
)

type fakeGenerator struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts [][]*genai.Part
}

func (g *fakeGenerator) Generate(_ context.Context, _ string, parts []*genai.Part, _ *genai.GenerateContentConfig) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.prompts)
	g.prompts = append(g.prompts, parts)
	var err error
	if n < len(g.errs) {
		err = g.errs[n]
	}
	reply := ""
	if n < len(g.replies) {
		reply = g.replies[n]
	}
	return reply, err
}

type fakeCatalog struct {
	jobs []domain.Job
	err  error
}

func (c fakeCatalog) Catalog(context.Context, int) ([]domain.Job, error) { return c.jobs, c.err }

var testJobs = []domain.Job{
	{ID: "j-1", RecruiterID: "rec-1", Title: "Go Engineer", Company: "Acme", EmploymentType: "full-time", Link: "https://acme.example/go"},
	{ID: "j-2", RecruiterID: "rec-2", Title: "Data Intern", Company: "Globex", EmploymentType: "Internship"},
}

func newTestMatcher(gen contentGenerator, catalog JobCatalog) *GeminiMatcher {
	return &GeminiMatcher{
		gen:     gen,
		model:   "gemini-test",
		catalog: catalog,
		retry:   RetryConfig{MaxRetries: 1, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1},
		log:     logger.Discard(),
	}
}

func textSubmission(body string) domain.Submission {
	return domain.Submission{Resume: &domain.ResumeFile{Filename: "cv.txt", Data: []byte(body)}}
}

func TestGeminiMatcher_MergesCatalog(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"```json\n[" +
		`{"job_id":"j-2","compatibility":40,"reason":""},` +
		`{"job_id":"j-1","compatibility":120,"exp_score":80,"matched_skills":["Go"],"reason":"Strong Go background."},` +
		`{"job_id":"ghost","compatibility":99}` +
		"]\n```"}}
	m := newTestMatcher(gen, fakeCatalog{jobs: testJobs})

	res, err := m.Match(context.Background(), textSubmission("Go developer, 5 years"))
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)

	top := res.Matches[0]
	assert.Equal(t, "j-1", top.JobID)
	assert.Equal(t, 100.0, top.Compatibility)
	assert.Equal(t, "rec-1", top.RecruiterID)
	assert.Equal(t, domain.EmploymentFullTime, top.EmploymentType)
	assert.Equal(t, "https://acme.example/go", top.Link)
	require.NotNil(t, top.ExpScore)
	assert.Equal(t, 80.0, *top.ExpScore)
	assert.Equal(t, []string{}, top.MissingSkills)

	assert.Contains(t, res.Matches[1].LLMReason, "Data Intern at Globex")
	assert.Equal(t, false, res.Meta["fallback"])

	prompt := gen.prompts[0][0].Text
	assert.Contains(t, prompt, "Go developer, 5 years")
	assert.Contains(t, prompt, `"job_id":"j-1"`)
}

func TestGeminiMatcher_ManualProfileInPrompt(t *testing.T) {
	gen := &fakeGenerator{replies: []string{`[{"job_id":"j-1","compatibility":70}]`}}
	m := newTestMatcher(gen, fakeCatalog{jobs: testJobs})

	_, err := m.Match(context.Background(), domain.Submission{
		Salary: "5000000",
		Manual: &domain.ManualProfile{
			Skills:      "Go, SQL",
			Experiences: []domain.Experience{{Role: "Backend Developer"}},
		},
	})
	require.NoError(t, err)

	prompt := gen.prompts[0][0].Text
	assert.Contains(t, prompt, "Candidate Skills: Go, SQL")
	assert.Contains(t, prompt, "Backend Developer")
	assert.Contains(t, prompt, "Expected Salary: 5000000")
}

func TestGeminiMatcher_EmptyResumeNoManual(t *testing.T) {
	gen := &fakeGenerator{}
	m := newTestMatcher(gen, fakeCatalog{jobs: testJobs})

	res, err := m.Match(context.Background(), domain.Submission{
		Resume: &domain.ResumeFile{Filename: "old.doc", Data: []byte{0xD0, 0xCF}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Equal(t, true, res.Meta["fallback"])
	assert.Empty(t, gen.prompts)
}

func TestGeminiMatcher_TranscribesImages(t *testing.T) {
	gen := &fakeGenerator{replies: []string{
		"Jane Doe\nGo, Kubernetes",
		`[{"job_id":"j-1","compatibility":65}]`,
	}}
	m := newTestMatcher(gen, fakeCatalog{jobs: testJobs})

	res, err := m.Match(context.Background(), domain.Submission{
		Resume: &domain.ResumeFile{Filename: "scan.png", Data: []byte{0x89, 0x50, 0x4E, 0x47}},
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)

	require.Len(t, gen.prompts, 2)
	blob := gen.prompts[0][1].InlineData
	require.NotNil(t, blob)
	assert.Equal(t, "image/png", blob.MIMEType)
	assert.Contains(t, gen.prompts[1][0].Text, "Go, Kubernetes")
}

func TestGeminiMatcher_EmptyCatalog(t *testing.T) {
	m := newTestMatcher(&fakeGenerator{}, fakeCatalog{})
	_, err := m.Match(context.Background(), textSubmission("Go developer"))
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestGeminiMatcher_RetriesMalformedOutput(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"sorry, I cannot", `[{"job_id":"j-1","compatibility":55}]`}}
	m := newTestMatcher(gen, fakeCatalog{jobs: testJobs})

	res, err := m.Match(context.Background(), textSubmission("Go developer"))
	require.NoError(t, err)
	assert.Len(t, res.Matches, 1)
	assert.Len(t, gen.prompts, 2)
}

func TestGeminiMatcher_UpstreamFailure(t *testing.T) {
	boom := errors.New("quota exceeded")
	gen := &fakeGenerator{errs: []error{boom, boom}}
	m := newTestMatcher(gen, fakeCatalog{jobs: testJobs})

	_, err := m.Match(context.Background(), textSubmission("Go developer"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.ErrorIs(t, err, boom)
}

func TestCleanJSONResponse(t *testing.T) {
	cases := map[string]string{
		"```json\n[{\"a\":1}]\n```":        `[{"a":1}]`,
		"Here you go: {\"a\":1} thanks":     `{"a":1}`,
		"```\n[1,2]```":                    `[1,2]`,
		"  [{\"a\":{\"b\":2}}]  trailing ": `[{"a":{"b":2}}]`,
	}
	for in, want := range cases {
		assert.Equal(t, want, cleanJSONResponse(in), strings.TrimSpace(in))
	}
}
