package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"applyai/domain"
)

type FeedbackRepository interface {
	Create(ctx context.Context, fb *domain.Feedback) error
}

// FeedbackService records candidate feedback and unlocks the "upgrade" prompt afterwards.
type FeedbackService struct {
	repo     FeedbackRepository
	events   EventPublisher
	quota    *QuotaLedger
	validate *validator.Validate
	log      *logrus.Logger
}

// NewFeedbackService wires the service. repo and events are optional.
func NewFeedbackService(repo FeedbackRepository, events EventPublisher, quota *QuotaLedger, validate *validator.Validate, log *logrus.Logger) *FeedbackService {
	return &FeedbackService{repo: repo, events: events, quota: quota, validate: validate, log: log}
}

func (s *FeedbackService) Submit(ctx context.Context, id domain.Identity, in domain.FeedbackInput) error {
	if id.Anonymous() {
		return domain.ErrAuthRequired
	}
	if err := s.validate.Struct(in); err != nil {
		return domain.ValidationError("Please rate both job matching and resume parsing.").WithDetails(err.Error())
	}

	fb := &domain.Feedback{
		UserID:       id.UID,
		UserEmail:    id.Email,
		JobRating:    in.JobRating,
		ResumeRating: in.ResumeRating,
		Feedback:     in.Feedback,
	}
	if s.repo != nil {
		if err := s.repo.Create(ctx, fb); err != nil {
			return domain.InternalError(fmt.Errorf("save feedback: %w", err))
		}
	}
	publish(ctx, s.events, s.log, EventFeedback, fb)
	s.quota.MarkFeedbackGiven(ctx, id)
	return nil
}
