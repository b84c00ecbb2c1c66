package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"applyai/domain"
)

func ptr(v float64) *float64 { return &v }

func browserFixture(t *testing.T, policy Policy) (*Browser, *QuotaLedger) {
	t.Helper()
	results := NewResultStore(0)
	t.Cleanup(results.Close)
	results.Set(session, domain.MatchResult{Matches: []domain.JobMatch{
		{JobID: "j1", Title: "Backend", Compatibility: 82, SkillScore: ptr(90), EmploymentType: "Full Time", RecruiterID: "rec-1", LLMReason: "Strong Go background"},
		{ID: "j2", Title: "Intern", Compatibility: 55, EmploymentType: "Internship", Link: "https://jobs.example.com/2", Reason: "Fresh graduate"},
		{Title: "Mystery", Compatibility: 20},
		{JobID: "j4", Title: "Ops", Compatibility: 82, MatchedSkills: []string{"linux"}},
	}})
	quota := NewQuotaLedger(NewMemoryKV(), policy, testLog)
	return NewBrowser(results, quota, testLog), quota
}

func cardRefs(cs []JobCard) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Ref
	}
	return out
}

func TestViews(t *testing.T) {
	b, _ := browserFixture(t, Policy{})

	v, err := b.Views(session, domain.EmploymentTypeAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"j1", "j4", "j2"}, cardRefs(v.TopMatches))
	assert.Equal(t, []string{"j1", "j4", "j2", "2"}, cardRefs(v.AllJobs))

	v, err = b.Views(session, "internship")
	require.NoError(t, err)
	assert.Equal(t, []string{"j2"}, cardRefs(v.AllJobs))
}

func TestViews_NoResults(t *testing.T) {
	b, _ := browserFixture(t, Policy{})
	_, err := b.Views("other-tab", "")
	assert.ErrorIs(t, err, domain.ErrNoResults)
}

func TestOpen_RequiresIdentity(t *testing.T) {
	b, q := browserFixture(t, Policy{})
	_, err := b.Open(context.Background(), session, anon, "j1")
	assert.ErrorIs(t, err, domain.ErrAuthRequired)

	viewed, _ := q.Viewed(context.Background(), anon)
	assert.Empty(t, viewed)
}

func TestOpen_RecordsAndNavigates(t *testing.T) {
	ctx := context.Background()
	b, q := browserFixture(t, Policy{})

	path, err := b.Open(ctx, session, alice, "j1")
	require.NoError(t, err)
	assert.Equal(t, "/jobs/j1", path)

	path, err = b.Open(ctx, session, alice, "2")
	require.NoError(t, err)
	assert.Equal(t, "/jobs/2", path)

	_, version, ok := b.results.Version(session)
	require.True(t, ok)
	viewed, err := q.Viewed(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"j1", version + "#2"}, viewed)
}

func TestOpen_KeylessViewDoesNotCarryOverToNewResults(t *testing.T) {
	ctx := context.Background()
	b, _ := browserFixture(t, Policy{Enforce: true, Limit: 1})

	_, err := b.Open(ctx, session, alice, "2")
	require.NoError(t, err)
	_, err = b.Open(ctx, session, alice, "2")
	require.NoError(t, err, "re-opening the same keyless job is free")

	b.results.Set(session, domain.MatchResult{Matches: []domain.JobMatch{
		{Title: "A"}, {Title: "B"}, {Title: "Unrelated", Compatibility: 10},
	}})
	_, err = b.Open(ctx, session, alice, "2")
	assert.ErrorIs(t, err, domain.ErrQuotaExhausted)
}

func TestOpen_QuotaNotEnforcedByDefault(t *testing.T) {
	ctx := context.Background()
	b, q := browserFixture(t, Policy{})

	for _, ref := range []string{"j1", "j2", "j4"} {
		_, err := b.Open(ctx, session, alice, ref)
		require.NoError(t, err)
	}
	assert.False(t, q.HasQuota(ctx, alice))
}

func TestOpen_EnforcedQuota(t *testing.T) {
	ctx := context.Background()
	b, q := browserFixture(t, Policy{Enforce: true, Limit: 2})

	_, err := b.Open(ctx, session, alice, "j1")
	require.NoError(t, err)
	_, err = b.Open(ctx, session, alice, "j2")
	require.NoError(t, err)

	_, err = b.Open(ctx, session, alice, "j4")
	require.ErrorIs(t, err, domain.ErrQuotaExhausted)
	assert.Equal(t, map[string]string{"prompt": PromptFeedback}, domain.AsAppError(err).Details)

	// already viewed jobs stay reachable
	path, err := b.Open(ctx, session, alice, "j1")
	require.NoError(t, err)
	assert.Equal(t, "/jobs/j1", path)

	q.MarkFeedbackGiven(ctx, alice)
	_, err = b.Open(ctx, session, alice, "j4")
	assert.Equal(t, map[string]string{"prompt": PromptUpgrade}, domain.AsAppError(err).Details)
}

func TestOpen_UnknownJob(t *testing.T) {
	b, _ := browserFixture(t, Policy{})
	_, err := b.Open(context.Background(), session, alice, "nope")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestDetail_InternalApply(t *testing.T) {
	b, _ := browserFixture(t, Policy{})

	d, err := b.Detail(session, "j1")
	require.NoError(t, err)
	assert.Equal(t, "82", d.Scores.Overall)
	assert.Equal(t, "90", d.Scores.Skills)
	assert.Equal(t, ScorePlaceholder, d.Scores.Experience)
	assert.Equal(t, ScorePlaceholder, d.Scores.Education)
	assert.Equal(t, "Strong Go background", d.Explanation)
	assert.False(t, d.SkillsAvailable)
	assert.Equal(t, ApplyOption{Kind: ApplyInternal, JobID: "j1", RecruiterID: "rec-1"}, d.Apply)
}

func TestDetail_ExternalApplyByIDField(t *testing.T) {
	b, _ := browserFixture(t, Policy{})

	d, err := b.Detail(session, "j2")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Index)
	assert.Equal(t, "Fresh graduate", d.Explanation)
	assert.Equal(t, ApplyExternal, d.Apply.Kind)
	assert.Equal(t, "https://jobs.example.com/2", d.Apply.URL)
}

func TestDetail_PositionalFallbackAndPlaceholders(t *testing.T) {
	b, _ := browserFixture(t, Policy{})

	d, err := b.Detail(session, "2")
	require.NoError(t, err)
	assert.Equal(t, "Mystery", d.Job.Title)
	assert.Equal(t, ExplanationPlaceholder, d.Explanation)
	assert.Equal(t, ApplyNone, d.Apply.Kind)
	assert.Equal(t, NoApplyMethodMessage, d.Apply.Message)
	assert.NotNil(t, d.MatchedSkills)
	assert.NotNil(t, d.MissingSkills)

	d, err = b.Detail(session, "j4")
	require.NoError(t, err)
	assert.True(t, d.SkillsAvailable)
}

func TestDetail_NotFound(t *testing.T) {
	b, _ := browserFixture(t, Policy{})

	_, err := b.Detail(session, "17")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	_, err = b.Detail(session, "abc")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	_, err = b.Detail("other-tab", "0")
	assert.ErrorIs(t, err, domain.ErrNoResults)
}
