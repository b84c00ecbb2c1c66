package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"applyai/domain"
	"applyai/service"
)

// NewMySQLConnection opens the database, migrates the schema and seeds demo postings.
func NewMySQLConnection(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DB_DSN is not set")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := Migrate(db, log); err != nil {
		return nil, err
	}

	log.Info("connected to MySQL and migrated schema")
	return db, nil
}

// Migrate creates or updates every table and seeds the demo postings into an empty catalog.
func Migrate(db *gorm.DB, log *logrus.Logger) error {
	if err := db.AutoMigrate(
		&domain.Job{},
		&domain.Application{},
		&domain.User{},
		&domain.Feedback{},
		&domain.RecruiterProfile{},
		&domain.Message{},
	); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return seedJobs(db, log)
}

func seedJobs(db *gorm.DB, log *logrus.Logger) error {
	var count int64
	if err := db.Model(&domain.Job{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count jobs: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	jobs := []domain.Job{
		{
			ID:          "seed-backend-engineer",
			RecruiterID: "demo-recruiter",
			Title:       "Product Engineer (Backend)",
			Company:     "Rakamin",
			Description: "Build scalable backend systems in Go and PHP on MySQL and RabbitMQ, " +
				"design RESTful APIs and ship AI-powered features.",
			SkillsRequired: []string{"Go", "PHP", "MySQL", "RabbitMQ", "REST", "LLM integration"},
			Location:       "Jakarta",
			EmploymentType: domain.EmploymentFullTime,
			CreatedAt:      now,
		},
		{
			ID:             "seed-data-intern",
			RecruiterID:    "demo-recruiter",
			Title:          "Data Analyst Intern",
			Company:        "Rakamin",
			Description:    "Support the analytics team with SQL reporting, dashboards and data cleaning.",
			SkillsRequired: []string{"SQL", "Python", "Excel"},
			Location:       "Remote",
			EmploymentType: domain.EmploymentInternship,
			CreatedAt:      now,
		},
	}
	if err := db.Create(&jobs).Error; err != nil {
		return fmt.Errorf("seed jobs: %w", err)
	}

	log.WithField("jobs", len(jobs)).Info("seeded initial jobs")
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return service.ErrNotFound
	}
	return err
}

type JobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) *JobRepo { return &JobRepo{db: db} }

func (r *JobRepo) Create(ctx context.Context, job *domain.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *JobRepo) Get(ctx context.Context, id string) (domain.Job, error) {
	var job domain.Job
	err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error
	return job, notFound(err)
}

func (r *JobRepo) ListByRecruiter(ctx context.Context, recruiterID string) ([]domain.Job, error) {
	var jobs []domain.Job
	err := r.db.WithContext(ctx).
		Where("recruiter_id = ?", recruiterID).
		Order("created_at DESC").
		Find(&jobs).Error
	return jobs, err
}

// Catalog returns the newest postings for the local matcher.
func (r *JobRepo) Catalog(ctx context.Context, limit int) ([]domain.Job, error) {
	var jobs []domain.Job
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&jobs).Error
	return jobs, err
}

type ApplicationRepo struct {
	db *gorm.DB
}

func NewApplicationRepo(db *gorm.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

func (r *ApplicationRepo) Create(ctx context.Context, app *domain.Application) error {
	return r.db.WithContext(ctx).Create(app).Error
}

func (r *ApplicationRepo) Get(ctx context.Context, id string) (domain.Application, error) {
	var app domain.Application
	err := r.db.WithContext(ctx).First(&app, "id = ?", id).Error
	return app, notFound(err)
}

func (r *ApplicationRepo) ListByJob(ctx context.Context, jobID string) ([]domain.Application, error) {
	var apps []domain.Application
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Order("created_at ASC").Find(&apps).Error
	return apps, err
}

func (r *ApplicationRepo) UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus, notes string) error {
	updates := map[string]any{"status": status}
	if notes != "" {
		updates["notes"] = notes
	}
	res := r.db.WithContext(ctx).Model(&domain.Application{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return service.ErrNotFound
	}
	return nil
}

// UserRepo is the users table as a UserDirectory. Unknown users are candidates.
type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) UserInfo(ctx context.Context, uid string) (domain.UserInfo, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "uid = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UserInfo{UID: uid, Role: domain.RoleCandidate}, nil
	}
	if err != nil {
		return domain.UserInfo{}, err
	}
	return domain.UserInfo{UID: u.UID, Role: u.Role, RecruiterID: u.RecruiterID}, nil
}

type FeedbackRepo struct {
	db *gorm.DB
}

func NewFeedbackRepo(db *gorm.DB) *FeedbackRepo { return &FeedbackRepo{db: db} }

func (r *FeedbackRepo) Create(ctx context.Context, fb *domain.Feedback) error {
	return r.db.WithContext(ctx).Create(fb).Error
}

// ProfileRepo stores recruiter profiles.
type ProfileRepo struct {
	db *gorm.DB
}

func NewProfileRepo(db *gorm.DB) *ProfileRepo { return &ProfileRepo{db: db} }

func (r *ProfileRepo) Get(ctx context.Context, recruiterID string) (domain.RecruiterProfile, error) {
	var p domain.RecruiterProfile
	err := r.db.WithContext(ctx).First(&p, "recruiter_id = ?", recruiterID).Error
	return p, notFound(err)
}

// Save inserts or replaces the profile row.
func (r *ProfileRepo) Save(ctx context.Context, p *domain.RecruiterProfile) error {
	return r.db.WithContext(ctx).Save(p).Error
}

type MessageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) *MessageRepo { return &MessageRepo{db: db} }

func (r *MessageRepo) Create(ctx context.Context, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&msgs).Error
	})
}

func (r *MessageRepo) Thread(ctx context.Context, jobID, recruiterID, applicantID string) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND recruiter_id = ? AND applicant_id = ?", jobID, recruiterID, applicantID).
		Order("created_at ASC").
		Find(&msgs).Error
	return msgs, err
}
