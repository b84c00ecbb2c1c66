package service

import (
	"context"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"

	"applyai/domain"
	"applyai/logger"
)

var errKVDown = errors.New("kv unavailable")

// brokenKV fails every call.
type brokenKV struct{}

func (brokenKV) Get(context.Context, string) ([]byte, error) { return nil, errKVDown }
func (brokenKV) Set(context.Context, string, []byte) error   { return errKVDown }

// stubMatcher returns canned responses and can be held open until release is closed.
type stubMatcher struct {
	mu      sync.Mutex
	calls   []domain.Submission
	result  domain.MatchResult
	err     error
	release chan struct{}
}

func (m *stubMatcher) Match(ctx context.Context, sub domain.Submission) (domain.MatchResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, sub)
	release := m.release
	result, err := m.result, m.err
	m.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return domain.MatchResult{}, ctx.Err()
		}
	}
	return result, err
}

func (m *stubMatcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *stubMatcher) lastCall() domain.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

type memoryStore struct {
	mu   sync.Mutex
	puts map[string][]byte
	err  error
}

func (s *memoryStore) Put(_ context.Context, key, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.puts == nil {
		s.puts = map[string][]byte{}
	}
	s.puts[key] = data
	return nil
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.puts[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

type memoryApps struct {
	mu   sync.Mutex
	rows map[string]domain.Application
}

func newMemoryApps() *memoryApps {
	return &memoryApps{rows: map[string]domain.Application{}}
}

func (r *memoryApps) Create(_ context.Context, app *domain.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[app.ID] = *app
	return nil
}

func (r *memoryApps) Get(_ context.Context, id string) (domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.rows[id]
	if !ok {
		return domain.Application{}, ErrNotFound
	}
	return app, nil
}

func (r *memoryApps) ListByJob(_ context.Context, jobID string) ([]domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Application
	for _, a := range r.rows {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryApps) UpdateStatus(_ context.Context, id string, status domain.ApplicationStatus, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	app.Status = status
	if notes != "" {
		app.Notes = notes
	}
	r.rows[id] = app
	return nil
}

type memoryJobs struct {
	mu   sync.Mutex
	rows map[string]domain.Job
}

func newMemoryJobs(jobs ...domain.Job) *memoryJobs {
	r := &memoryJobs{rows: map[string]domain.Job{}}
	for _, j := range jobs {
		r.rows[j.ID] = j
	}
	return r
}

func (r *memoryJobs) Create(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[job.ID] = *job
	return nil
}

func (r *memoryJobs) Get(_ context.Context, id string) (domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.rows[id]
	if !ok {
		return domain.Job{}, ErrNotFound
	}
	return j, nil
}

func (r *memoryJobs) ListByRecruiter(_ context.Context, recruiterID string) ([]domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Job
	for _, j := range r.rows {
		if j.RecruiterID == recruiterID {
			out = append(out, j)
		}
	}
	return out, nil
}

type recordedEvent struct {
	key     string
	payload any
}

type memoryEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (e *memoryEvents) Publish(_ context.Context, key string, payload any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, recordedEvent{key: key, payload: payload})
	return nil
}

func (e *memoryEvents) keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.key
	}
	return out
}

func newValidator() *validator.Validate {
	return domain.NewValidator()
}

var testLog = logger.Discard()

var (
	alice = domain.Identity{UID: "alice", Email: "alice@example.com"}
	anon  = domain.Identity{}
)

type memoryProfiles struct {
	mu   sync.Mutex
	rows map[string]domain.RecruiterProfile
}

func newMemoryProfiles(profiles ...domain.RecruiterProfile) *memoryProfiles {
	r := &memoryProfiles{rows: map[string]domain.RecruiterProfile{}}
	for _, p := range profiles {
		r.rows[p.RecruiterID] = p
	}
	return r
}

func (r *memoryProfiles) Get(_ context.Context, id string) (domain.RecruiterProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return domain.RecruiterProfile{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryProfiles) Save(_ context.Context, p *domain.RecruiterProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.RecruiterID] = *p
	return nil
}

type memoryMessages struct {
	mu   sync.Mutex
	rows []domain.Message
}

func (r *memoryMessages) Create(_ context.Context, msgs []domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, msgs...)
	return nil
}

func (r *memoryMessages) Thread(_ context.Context, jobID, recruiterID, applicantID string) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.rows {
		if m.JobID == jobID && m.RecruiterID == recruiterID && m.ApplicantID == applicantID {
			out = append(out, m)
		}
	}
	return out, nil
}
