package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"applyai/domain"
	"applyai/logger"
)

const (
	MsgSelectResume    = "Please select a resume file."
	MsgUnsupportedFile = "Unsupported file type. Please upload a PDF, DOC, DOCX, TXT, PNG or JPG file."
	MsgManualFallback  = "We could not extract enough information from your resume. Please enter your skills and work experience manually."
	MsgSomethingWrong  = "Something went wrong."

	ResultsPath = "/jobs"
)

// Matcher turns a submission into ranked job matches.
type Matcher interface {
	Match(ctx context.Context, sub domain.Submission) (domain.MatchResult, error)
}

type FlowState string

const (
	StateIdle       FlowState = "idle"
	StateProcessing FlowState = "processing"
	StateDone       FlowState = "done"
	StateManual     FlowState = "manual"
	StateFailed     FlowState = "failed"
)

// FlowStatus is a point-in-time view of a session's submission flow.
type FlowStatus struct {
	State      FlowState `json:"state"`
	Processing bool      `json:"processing"`
	ManualMode bool      `json:"manual_mode"`
	Progress   float64   `json:"progress"`
	Tip        string    `json:"tip,omitempty"`
	Message    string    `json:"message,omitempty"`
	Generation uint64    `json:"generation"`
	NavigateTo string    `json:"navigate_to,omitempty"`
	MatchCount int       `json:"match_count,omitempty"`
}

type FlowSettings struct {
	ProgressInterval time.Duration
	TipInterval      time.Duration
	Tips             []string
	// IdleTTL drops flows that have not been touched for this long. Zero disables the sweep.
	IdleTTL time.Duration
}

type flow struct {
	mu         sync.Mutex
	state      FlowState
	manualMode bool
	generation uint64
	cancel     context.CancelFunc
	progress   *Progress
	tips       *TipRotator
	tip        string
	message    string
	navigateTo string
	matchCount int
	touched    time.Time
}

func (f *flow) status() FlowStatus {
	return FlowStatus{
		State:      f.state,
		Processing: f.state == StateProcessing,
		ManualMode: f.manualMode,
		Progress:   f.progress.Value(),
		Tip:        f.tip,
		Message:    f.message,
		Generation: f.generation,
		NavigateTo: f.navigateTo,
		MatchCount: f.matchCount,
	}
}

// FlowRegistry runs at most one submission per session.
type FlowRegistry struct {
	mu       sync.Mutex
	flows    map[string]*flow
	matcher  Matcher
	results  *ResultStore
	validate *validator.Validate
	settings FlowSettings
	log      *logrus.Logger
	stop     chan struct{}
	once     sync.Once
}

func NewFlowRegistry(matcher Matcher, results *ResultStore, validate *validator.Validate, settings FlowSettings, log *logrus.Logger) *FlowRegistry {
	if settings.ProgressInterval <= 0 {
		settings.ProgressInterval = 350 * time.Millisecond
	}
	if settings.TipInterval <= 0 {
		settings.TipInterval = 3 * time.Second
	}
	r := &FlowRegistry{
		flows:    make(map[string]*flow),
		matcher:  matcher,
		results:  results,
		validate: validate,
		settings: settings,
		log:      log,
		stop:     make(chan struct{}),
	}
	if settings.IdleTTL > 0 {
		go r.sweepLoop()
	}
	return r
}

func (r *FlowRegistry) flowFor(session string, create bool) *flow {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[session]
	if !ok && create {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		f = &flow{
			state:    StateIdle,
			progress: NewProgress(rnd),
			tips:     NewTipRotator(r.settings.Tips, rnd),
		}
		r.flows[session] = f
	}
	if f != nil {
		f.mu.Lock()
		f.touched = time.Now()
		f.mu.Unlock()
	}
	return f
}

// Submit validates the request and starts the matcher call in the background.
// The returned status reflects the flow right after the request was accepted.
func (r *FlowRegistry) Submit(ctx context.Context, session string, id domain.Identity, sub domain.Submission) (FlowStatus, error) {
	if id.Anonymous() {
		return FlowStatus{}, domain.ErrAuthRequired
	}

	f := r.flowFor(session, true)
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateProcessing {
		return f.status(), domain.ErrSubmissionInFlight
	}
	if sub.Resume == nil && !f.manualMode {
		return f.status(), domain.ValidationError(MsgSelectResume)
	}
	if sub.Resume != nil && !sub.Resume.Accepted() {
		return f.status(), domain.ValidationError(MsgUnsupportedFile)
	}
	if f.manualMode {
		if sub.Manual == nil {
			sub.Manual = &domain.ManualProfile{}
		}
		if err := r.validate.Struct(sub.Manual); err != nil {
			return f.status(), domain.ValidationError("Please enter your skills.").WithDetails(err.Error())
		}
	} else {
		sub.Manual = nil
	}
	sub.Salary = domain.SanitizeSalary(sub.Salary)

	f.generation++
	gen := f.generation
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f.cancel = cancel
	f.state = StateProcessing
	f.message = ""
	f.navigateTo = ""
	f.matchCount = 0
	f.progress.Reset()
	f.tip = f.tips.Next()

	logger.FromContext(ctx, r.log).WithFields(logrus.Fields{
		"generation": gen,
		"manual":     sub.Manual != nil,
		"has_file":   sub.Resume != nil,
	}).Info("submission started")

	go r.tick(runCtx, f, gen)
	go r.run(runCtx, session, f, gen, sub)

	return f.status(), nil
}

func (r *FlowRegistry) run(ctx context.Context, session string, f *flow, gen uint64, sub domain.Submission) {
	result, err := r.matcher.Match(ctx, sub)
	r.finish(ctx, session, f, gen, result, err)
}

func (r *FlowRegistry) finish(ctx context.Context, session string, f *flow, gen uint64, result domain.MatchResult, err error) {
	log := logger.FromContext(ctx, r.log).WithField("generation", gen)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.generation != gen {
		log.Info("discarding superseded submission response")
		return
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.progress.Complete()

	switch {
	case err != nil:
		f.state = StateFailed
		f.message = failureMessage(err)
		log.WithError(err).Warn("submission failed")
	case len(result.Matches) == 0:
		f.state = StateManual
		f.manualMode = true
		f.message = MsgManualFallback
		log.Info("no matches, switching to manual entry")
	default:
		r.results.Set(session, result)
		f.state = StateDone
		f.manualMode = false
		f.matchCount = len(result.Matches)
		f.navigateTo = ResultsPath
		log.WithField("matches", len(result.Matches)).Info("submission completed")
	}
}

func failureMessage(err error) string {
	var appErr *domain.AppError
	if errors.As(err, &appErr) && appErr.Code != domain.CodeInternal {
		return appErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrUpstream.Message
	}
	return MsgSomethingWrong
}

// tick drives the progress estimate and the tip rotation until the run context ends.
func (r *FlowRegistry) tick(ctx context.Context, f *flow, gen uint64) {
	progress := time.NewTicker(r.settings.ProgressInterval)
	tips := time.NewTicker(r.settings.TipInterval)
	defer progress.Stop()
	defer tips.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-progress.C:
			f.mu.Lock()
			if f.generation == gen && f.state == StateProcessing {
				f.progress.Step()
			}
			f.mu.Unlock()
		case <-tips.C:
			f.mu.Lock()
			if f.generation == gen && f.state == StateProcessing {
				f.tip = f.tips.Next()
			}
			f.mu.Unlock()
		}
	}
}

// Status returns the session's flow. A pending navigation is reported once.
func (r *FlowRegistry) Status(session string) FlowStatus {
	f := r.flowFor(session, false)
	if f == nil {
		return FlowStatus{State: StateIdle}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	st := f.status()
	f.navigateTo = ""
	return st
}

// Cancel abandons the in-flight submission; a late response is discarded.
func (r *FlowRegistry) Cancel(session string) FlowStatus {
	f := r.flowFor(session, false)
	if f == nil {
		return FlowStatus{State: StateIdle}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateProcessing {
		return f.status()
	}
	f.generation++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.state = StateIdle
	f.progress.Reset()
	f.tip = ""
	r.log.WithField("session_id", session).Info("submission cancelled")
	return f.status()
}

// ResetManual leaves manual-entry mode so a file can be uploaded again.
func (r *FlowRegistry) ResetManual(session string) (FlowStatus, error) {
	f := r.flowFor(session, false)
	if f == nil {
		return FlowStatus{State: StateIdle}, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateProcessing {
		return f.status(), domain.ErrSubmissionInFlight
	}
	f.manualMode = false
	if f.state == StateManual {
		f.state = StateIdle
	}
	f.message = ""
	return f.status(), nil
}

// Sweep drops idle, non-processing flows untouched for longer than IdleTTL.
func (r *FlowRegistry) Sweep() int {
	cutoff := time.Now().Add(-r.settings.IdleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, f := range r.flows {
		f.mu.Lock()
		stale := f.state != StateProcessing && f.touched.Before(cutoff)
		f.mu.Unlock()
		if stale {
			delete(r.flows, k)
			n++
		}
	}
	return n
}

func (r *FlowRegistry) sweepLoop() {
	t := time.NewTicker(r.settings.IdleTTL / 2)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if n := r.Sweep(); n > 0 {
				r.log.WithField("flows", n).Debug("swept idle submission flows")
			}
		case <-r.stop:
			return
		}
	}
}

// Close cancels every in-flight submission and stops the sweeper.
func (r *FlowRegistry) Close() {
	r.once.Do(func() { close(r.stop) })
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.flows {
		f.mu.Lock()
		if f.cancel != nil {
			f.cancel()
		}
		f.mu.Unlock()
	}
}
