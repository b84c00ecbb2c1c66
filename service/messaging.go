package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"applyai/domain"
)

const EventMessage = "message.sent"

type ProfileRepository interface {
	Get(ctx context.Context, recruiterID string) (domain.RecruiterProfile, error)
	Save(ctx context.Context, profile *domain.RecruiterProfile) error
}

type MessageRepository interface {
	// Create stores every message or none of them.
	Create(ctx context.Context, msgs []domain.Message) error
	Thread(ctx context.Context, jobID, recruiterID, applicantID string) ([]domain.Message, error)
}

// WithMessaging enables recruiter profiles and applicant messaging.
func (s *RecruiterService) WithMessaging(profiles ProfileRepository, messages MessageRepository) *RecruiterService {
	s.profiles = profiles
	s.messages = messages
	return s
}

func (s *RecruiterService) Profile(ctx context.Context, recruiterID string) (domain.RecruiterProfile, error) {
	if s.profiles == nil {
		return domain.RecruiterProfile{}, domain.ErrProfileMissing
	}
	p, err := s.profiles.Get(ctx, recruiterID)
	if errors.Is(err, ErrNotFound) {
		return domain.RecruiterProfile{}, domain.ErrProfileMissing
	}
	if err != nil {
		return domain.RecruiterProfile{}, domain.InternalError(fmt.Errorf("load profile: %w", err))
	}
	return p, nil
}

// UpdateProfile applies in to the recruiter's profile, creating it on first write.
func (s *RecruiterService) UpdateProfile(ctx context.Context, recruiterID, uid string, in domain.ProfileUpdate) (domain.RecruiterProfile, error) {
	if s.profiles == nil {
		return domain.RecruiterProfile{}, domain.ErrProfileMissing
	}
	if err := s.validate.Struct(in); err != nil {
		return domain.RecruiterProfile{}, domain.ValidationError("Invalid profile").WithDetails(err.Error())
	}
	p, err := s.profiles.Get(ctx, recruiterID)
	switch {
	case errors.Is(err, ErrNotFound):
		p = domain.RecruiterProfile{RecruiterID: recruiterID, UserID: uid}
	case err != nil:
		return domain.RecruiterProfile{}, domain.InternalError(fmt.Errorf("load profile: %w", err))
	}
	in.Apply(&p)
	if err := s.profiles.Save(ctx, &p); err != nil {
		return domain.RecruiterProfile{}, domain.InternalError(fmt.Errorf("save profile: %w", err))
	}
	s.log.WithField("recruiter_id", recruiterID).Info("recruiter profile updated")
	return p, nil
}

// requirePro rejects recruiters without a Pro profile.
func (s *RecruiterService) requirePro(ctx context.Context, recruiterID string) error {
	if s.messages == nil {
		return domain.ErrProRequired
	}
	p, err := s.Profile(ctx, recruiterID)
	if errors.Is(err, domain.ErrProfileMissing) || (err == nil && !p.IsPro) {
		return domain.ErrProRequired
	}
	return err
}

// applicants returns the candidates who applied to jobID.
func (s *RecruiterService) applicants(ctx context.Context, jobID string) (map[string]bool, error) {
	apps, err := s.apps.ListByJob(ctx, jobID)
	if err != nil {
		return nil, domain.InternalError(fmt.Errorf("list applicants: %w", err))
	}
	out := make(map[string]bool, len(apps))
	for _, a := range apps {
		out[a.CandidateUID] = true
	}
	return out, nil
}

// SendMessage posts a recruiter message to an applicant of one of the recruiter's jobs.
func (s *RecruiterService) SendMessage(ctx context.Context, recruiterID string, in domain.MessageInput) (domain.Message, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.Message{}, domain.ValidationError("Invalid message").WithDetails(err.Error())
	}
	msgs, err := s.send(ctx, recruiterID, in.JobID, []string{in.ApplicantID}, in.Content)
	if err != nil {
		return domain.Message{}, err
	}
	return msgs[0], nil
}

// SendBulk posts the same template to several applicants of one job.
func (s *RecruiterService) SendBulk(ctx context.Context, recruiterID string, in domain.BulkMessageInput) ([]domain.Message, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, domain.ValidationError("Invalid bulk message").WithDetails(err.Error())
	}
	return s.send(ctx, recruiterID, in.JobID, in.ApplicantIDs, in.Template)
}

func (s *RecruiterService) send(ctx context.Context, recruiterID, jobID string, applicantIDs []string, content string) ([]domain.Message, error) {
	if err := s.requirePro(ctx, recruiterID); err != nil {
		return nil, err
	}
	if _, err := s.ownedJob(ctx, recruiterID, jobID); err != nil {
		return nil, err
	}
	applied, err := s.applicants(ctx, jobID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	msgs := make([]domain.Message, 0, len(applicantIDs))
	seen := make(map[string]bool, len(applicantIDs))
	for _, id := range applicantIDs {
		if !applied[id] {
			return nil, domain.ValidationError("Applicant has not applied to this job").WithDetails(map[string]string{"applicantId": id})
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		msgs = append(msgs, domain.Message{
			ID:          uuid.NewString(),
			JobID:       jobID,
			RecruiterID: recruiterID,
			ApplicantID: id,
			Sender:      domain.SenderRecruiter,
			Content:     content,
			CreatedAt:   now,
		})
	}
	if err := s.messages.Create(ctx, msgs); err != nil {
		return nil, domain.InternalError(fmt.Errorf("save messages: %w", err))
	}
	for i := range msgs {
		publish(ctx, s.events, s.log, EventMessage, msgs[i])
	}
	s.log.WithFields(logrus.Fields{"recruiter_id": recruiterID, "job_id": jobID, "messages": len(msgs)}).Info("messages sent")
	return msgs, nil
}

// Thread lists the conversation with one applicant about one job, oldest first.
func (s *RecruiterService) Thread(ctx context.Context, recruiterID, jobID, applicantID string) ([]domain.Message, error) {
	if jobID == "" || applicantID == "" {
		return nil, domain.ValidationError("jobId and applicantId are required")
	}
	if s.messages == nil {
		return []domain.Message{}, nil
	}
	if _, err := s.ownedJob(ctx, recruiterID, jobID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.Thread(ctx, jobID, recruiterID, applicantID)
	if err != nil {
		return nil, domain.InternalError(fmt.Errorf("load thread: %w", err))
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}
