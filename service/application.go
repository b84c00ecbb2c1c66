package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"applyai/domain"
)

const (
	MsgPDFOnly       = "Please upload a PDF file"
	MsgApplied       = "Application submitted successfully"
	MsgApplyExternal = "This job takes applications on the employer's site."
	EventApplication = "application.submitted"
	EventStatus      = "application.status_changed"
	EventFeedback    = "feedback.submitted"
)

// Applier delivers an application to wherever recruiters review it.
type Applier interface {
	Apply(ctx context.Context, req domain.ApplyRequest) (domain.ApplyReceipt, error)
}

// ObjectStore keeps uploaded résumé files.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
}

// EventPublisher emits domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application) error
	Get(ctx context.Context, id string) (domain.Application, error)
	ListByJob(ctx context.Context, jobID string) ([]domain.Application, error)
	UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus, notes string) error
}

// ApplicationService validates candidate applications before handing them to an Applier.
type ApplicationService struct {
	applier Applier
	log     *logrus.Logger
}

func NewApplicationService(applier Applier, log *logrus.Logger) *ApplicationService {
	return &ApplicationService{applier: applier, log: log}
}

// Apply submits resume for a match that carries recruiter linkage. Matches that can only be
// applied for externally, or not at all, are rejected with the option the client should show instead.
func (s *ApplicationService) Apply(ctx context.Context, id domain.Identity, opt ApplyOption, resume *domain.ResumeFile) (domain.ApplyReceipt, error) {
	if id.Anonymous() {
		return domain.ApplyReceipt{}, domain.ErrAuthRequired
	}
	switch {
	case opt.Kind == ApplyExternal:
		return domain.ApplyReceipt{}, domain.ValidationError(MsgApplyExternal).WithDetails(map[string]string{"url": opt.URL})
	case opt.Kind != ApplyInternal || strings.TrimSpace(opt.JobID) == "" || opt.RecruiterID == "":
		return domain.ApplyReceipt{}, domain.ValidationError(NoApplyMethodMessage)
	}
	if resume == nil || len(resume.Data) == 0 {
		return domain.ApplyReceipt{}, domain.ValidationError("Please select a resume file")
	}
	if !isPDF(*resume) {
		return domain.ApplyReceipt{}, domain.ValidationError(MsgPDFOnly)
	}

	receipt, err := s.applier.Apply(ctx, domain.ApplyRequest{
		JobID:        opt.JobID,
		RecruiterID:  opt.RecruiterID,
		CandidateUID: id.UID,
		Resume:       *resume,
	})
	if err != nil {
		return domain.ApplyReceipt{}, err
	}
	s.log.WithFields(logrus.Fields{"job_id": opt.JobID, "user_id": id.UID}).Info("application submitted")
	return receipt, nil
}

func isPDF(f domain.ResumeFile) bool {
	if f.Ext() != ".pdf" {
		return false
	}
	ct := strings.ToLower(f.ContentType)
	return ct == "" || ct == "application/pdf" || ct == "application/octet-stream"
}

// LocalApplier stores the résumé, records the application and announces it.
type LocalApplier struct {
	store  ObjectStore
	apps   ApplicationRepository
	events EventPublisher
	log    *logrus.Logger
	now    func() time.Time
}

// NewLocalApplier builds a LocalApplier. events may be nil when no broker is configured.
func NewLocalApplier(store ObjectStore, apps ApplicationRepository, events EventPublisher, log *logrus.Logger) *LocalApplier {
	return &LocalApplier{store: store, apps: apps, events: events, log: log, now: time.Now}
}

func ResumeKey(uid, jobID string, at time.Time) string {
	return fmt.Sprintf("resumes/%s_%s_%d.pdf", uid, jobID, at.Unix())
}

func (a *LocalApplier) Apply(ctx context.Context, req domain.ApplyRequest) (domain.ApplyReceipt, error) {
	key := ResumeKey(req.CandidateUID, req.JobID, a.now())
	if err := a.store.Put(ctx, key, "application/pdf", req.Resume.Data); err != nil {
		return domain.ApplyReceipt{}, domain.InternalError(fmt.Errorf("store resume: %w", err))
	}

	app := &domain.Application{
		ID:           uuid.NewString(),
		JobID:        req.JobID,
		CandidateUID: req.CandidateUID,
		RecruiterID:  req.RecruiterID,
		ResumeKey:    key,
		Status:       domain.StatusApplied,
	}
	if err := a.apps.Create(ctx, app); err != nil {
		return domain.ApplyReceipt{}, domain.InternalError(fmt.Errorf("save application: %w", err))
	}

	publish(ctx, a.events, a.log, EventApplication, app)
	return domain.ApplyReceipt{ApplicationID: app.ID, Message: MsgApplied}, nil
}

// publish sends an event when a broker is configured. Failures are logged only.
func publish(ctx context.Context, events EventPublisher, log *logrus.Logger, key string, payload any) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, key, payload); err != nil {
		log.WithError(err).WithField("event", key).Warn("failed to publish event")
	}
}
