package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"applyai/domain"
	"applyai/logger"
	"applyai/service"
)

// newTestDB migrates an in-memory SQLite database with the production schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db, logger.Discard()))
	return db
}

func TestMigrate_SeedsCatalogOnce(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(db, logger.Discard()))

	repo := NewJobRepo(db)
	jobs, err := repo.Catalog(context.Background(), catalogLimit)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = repo.Catalog(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestJobRepo(t *testing.T) {
	repo := NewJobRepo(newTestDB(t))
	ctx := context.Background()

	job := &domain.Job{
		ID: "job-1", RecruiterID: "rec-1", Title: "Go Engineer", Company: "Acme",
		Description: "APIs", SkillsRequired: []string{"Go", "SQL"}, CreatedAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, job))

	got, err := repo.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "SQL"}, got.SkillsRequired)

	_, err = repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, service.ErrNotFound)

	mine, err := repo.ListByRecruiter(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "job-1", mine[0].ID)

	catalog, err := repo.Catalog(ctx, 10)
	require.NoError(t, err)
	require.Len(t, catalog, 3)
	assert.Equal(t, "job-1", catalog[0].ID, "newest first")
}

func TestApplicationRepo(t *testing.T) {
	repo := NewApplicationRepo(newTestDB(t))
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.Create(ctx, &domain.Application{ID: "app-2", JobID: "job-1", CandidateUID: "bob", Status: domain.StatusApplied, CreatedAt: now.Add(time.Minute)}))
	require.NoError(t, repo.Create(ctx, &domain.Application{ID: "app-1", JobID: "job-1", CandidateUID: "alice", Status: domain.StatusApplied, CreatedAt: now}))

	apps, err := repo.ListByJob(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "app-1", apps[0].ID)

	require.NoError(t, repo.UpdateStatus(ctx, "app-1", domain.StatusReviewing, "call back"))
	app, err := repo.Get(ctx, "app-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReviewing, app.Status)
	assert.Equal(t, "call back", app.Notes)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", domain.StatusReviewing, ""), service.ErrNotFound)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestUserRepo_UnknownUsersAreCandidates(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	info, err := repo.UserInfo(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, domain.UserInfo{UID: "ghost", Role: domain.RoleCandidate}, info)

	require.NoError(t, db.Create(&domain.User{UID: "rita", Role: domain.RoleRecruiter, RecruiterID: "rec-1"}).Error)
	info, err = repo.UserInfo(ctx, "rita")
	require.NoError(t, err)
	assert.True(t, info.IsRecruiter())
	assert.Equal(t, "rec-1", info.RecruiterID)
}

func TestFeedbackRepo(t *testing.T) {
	repo := NewFeedbackRepo(newTestDB(t))
	fb := &domain.Feedback{UserID: "alice", JobRating: 4, ResumeRating: 5, Feedback: "nice"}
	require.NoError(t, repo.Create(context.Background(), fb))
	assert.NotZero(t, fb.ID)
}

func TestProfileRepo_SaveUpserts(t *testing.T) {
	repo := NewProfileRepo(newTestDB(t))
	ctx := context.Background()

	_, err := repo.Get(ctx, "rec-1")
	assert.ErrorIs(t, err, service.ErrNotFound)

	p := &domain.RecruiterProfile{RecruiterID: "rec-1", UserID: "rita", CompanyName: "Acme"}
	require.NoError(t, repo.Save(ctx, p))

	p.IsPro = true
	require.NoError(t, repo.Save(ctx, p))

	got, err := repo.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.CompanyName)
	assert.True(t, got.IsPro)
}

func TestMessageRepo_Thread(t *testing.T) {
	repo := NewMessageRepo(newTestDB(t))
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, []domain.Message{
		{ID: "m-2", JobID: "job-1", RecruiterID: "rec-1", ApplicantID: "alice", Sender: domain.SenderRecruiter, Content: "second", CreatedAt: now.Add(time.Second)},
		{ID: "m-1", JobID: "job-1", RecruiterID: "rec-1", ApplicantID: "alice", Sender: domain.SenderRecruiter, Content: "first", CreatedAt: now},
		{ID: "m-3", JobID: "job-1", RecruiterID: "rec-1", ApplicantID: "carol", Sender: domain.SenderRecruiter, Content: "other", CreatedAt: now},
	}))
	require.NoError(t, repo.Create(ctx, nil))

	thread, err := repo.Thread(ctx, "job-1", "rec-1", "alice")
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "first", thread[0].Content)
	assert.Equal(t, "second", thread[1].Content)
}
