package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"applyai/domain"
)

// ErrNotFound is returned by repositories for missing rows.
var ErrNotFound = errors.New("record not found")

type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, id string) (domain.Job, error)
	ListByRecruiter(ctx context.Context, recruiterID string) ([]domain.Job, error)
}

// UserDirectory resolves the role of an authenticated user.
type UserDirectory interface {
	UserInfo(ctx context.Context, uid string) (domain.UserInfo, error)
}

type RecruiterService struct {
	jobs     JobRepository
	apps     ApplicationRepository
	events   EventPublisher
	resumes  ResumeReader
	profiles ProfileRepository
	messages MessageRepository
	validate *validator.Validate
	log      *logrus.Logger
}

func NewRecruiterService(jobs JobRepository, apps ApplicationRepository, events EventPublisher, validate *validator.Validate, log *logrus.Logger) *RecruiterService {
	return &RecruiterService{jobs: jobs, apps: apps, events: events, validate: validate, log: log}
}

func (s *RecruiterService) ListJobs(ctx context.Context, recruiterID string) ([]domain.Job, error) {
	jobs, err := s.jobs.ListByRecruiter(ctx, recruiterID)
	if err != nil {
		return nil, domain.InternalError(fmt.Errorf("list jobs: %w", err))
	}
	return jobs, nil
}

func (s *RecruiterService) CreateJob(ctx context.Context, recruiterID string, in domain.JobInput) (domain.Job, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.Job{}, domain.ValidationError("Invalid job posting").WithDetails(err.Error())
	}
	job := domain.Job{
		ID:             uuid.NewString(),
		RecruiterID:    recruiterID,
		Title:          in.Title,
		Company:        in.Company,
		Description:    in.Description,
		SkillsRequired: in.SkillsRequired,
		Location:       in.Location,
		EmploymentType: domain.NormalizeEmploymentType(in.EmploymentType),
		Link:           in.Link,
	}
	if job.SkillsRequired == nil {
		job.SkillsRequired = []string{}
	}
	if err := s.jobs.Create(ctx, &job); err != nil {
		return domain.Job{}, domain.InternalError(fmt.Errorf("create job: %w", err))
	}
	s.log.WithFields(logrus.Fields{"job_id": job.ID, "recruiter_id": recruiterID}).Info("job posted")
	return job, nil
}

// ownedJob loads a job and checks it belongs to recruiterID.
func (s *RecruiterService) ownedJob(ctx context.Context, recruiterID, jobID string) (domain.Job, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if errors.Is(err, ErrNotFound) {
		return domain.Job{}, domain.ErrJobNotFound
	}
	if err != nil {
		return domain.Job{}, domain.InternalError(fmt.Errorf("load job %s: %w", jobID, err))
	}
	if job.RecruiterID != recruiterID {
		return domain.Job{}, domain.ErrForbidden
	}
	return job, nil
}

func (s *RecruiterService) ListApplicants(ctx context.Context, recruiterID, jobID string) ([]domain.Application, error) {
	if jobID == "" {
		return nil, domain.ValidationError("jobId is required")
	}
	if _, err := s.ownedJob(ctx, recruiterID, jobID); err != nil {
		return nil, err
	}
	apps, err := s.apps.ListByJob(ctx, jobID)
	if err != nil {
		return nil, domain.InternalError(fmt.Errorf("list applicants: %w", err))
	}
	return apps, nil
}

// UpdateStatus moves an application along the hiring pipeline.
func (s *RecruiterService) UpdateStatus(ctx context.Context, recruiterID, applicationID string, status domain.ApplicationStatus, notes string) (domain.Application, error) {
	if !domain.ValidStatus(status) {
		return domain.Application{}, domain.ValidationError(fmt.Sprintf("unknown status %q", status))
	}
	app, err := s.apps.Get(ctx, applicationID)
	if errors.Is(err, ErrNotFound) {
		return domain.Application{}, domain.ErrApplicationMissing
	}
	if err != nil {
		return domain.Application{}, domain.InternalError(fmt.Errorf("load application: %w", err))
	}
	if _, err := s.ownedJob(ctx, recruiterID, app.JobID); err != nil {
		return domain.Application{}, err
	}
	if !domain.CanTransition(app.Status, status) {
		return domain.Application{}, domain.ErrInvalidTransition.WithDetails(map[string]string{
			"from": string(app.Status),
			"to":   string(status),
		})
	}
	if err := s.apps.UpdateStatus(ctx, app.ID, status, notes); err != nil {
		return domain.Application{}, domain.InternalError(fmt.Errorf("update status: %w", err))
	}

	app.Status = status
	if notes != "" {
		app.Notes = notes
	}
	publish(ctx, s.events, s.log, EventStatus, app)
	return app, nil
}

// ResumeReader fetches stored résumé files.
type ResumeReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// WithResumes enables résumé downloads for applicants.
func (s *RecruiterService) WithResumes(r ResumeReader) *RecruiterService {
	s.resumes = r
	return s
}

// Resume returns the PDF an applicant uploaded, provided the job belongs to recruiterID.
func (s *RecruiterService) Resume(ctx context.Context, recruiterID, applicationID string) ([]byte, error) {
	if s.resumes == nil {
		return nil, domain.ErrApplicationMissing.WithMessage("Resume storage is not configured")
	}
	app, err := s.apps.Get(ctx, applicationID)
	if errors.Is(err, ErrNotFound) {
		return nil, domain.ErrApplicationMissing
	}
	if err != nil {
		return nil, domain.InternalError(fmt.Errorf("load application: %w", err))
	}
	if _, err := s.ownedJob(ctx, recruiterID, app.JobID); err != nil {
		return nil, err
	}
	if app.ResumeKey == "" {
		return nil, domain.ErrApplicationMissing.WithMessage("No resume on file")
	}
	data, err := s.resumes.Get(ctx, app.ResumeKey)
	if errors.Is(err, ErrNotFound) {
		return nil, domain.ErrApplicationMissing.WithMessage("No resume on file")
	}
	if err != nil {
		return nil, domain.InternalError(fmt.Errorf("read resume: %w", err))
	}
	return data, nil
}
