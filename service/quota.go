package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"applyai/domain"
)

const (
	viewedJobsKey    = "viewedJobs"
	feedbackGivenKey = "feedbackGiven"

	DefaultQuotaLimit = 2
)

// Policy controls whether the free-view quota gates job opening.
type Policy struct {
	Enforce bool
	Limit   int
}

// QuotaLedger tracks which jobs an identity has opened.
// Storage failures never surface: reads fall back to "has quota" and writes are dropped.
type QuotaLedger struct {
	kv     KV
	policy Policy
	log    *logrus.Logger
	mu     sync.Mutex
}

func NewQuotaLedger(kv KV, policy Policy, log *logrus.Logger) *QuotaLedger {
	if policy.Limit <= 0 {
		policy.Limit = DefaultQuotaLimit
	}
	return &QuotaLedger{kv: kv, policy: policy, log: log}
}

func (q *QuotaLedger) Policy() Policy {
	return q.policy
}

// KeyFor namespaces the ledger per identity; anonymous callers share one bucket.
func KeyFor(id domain.Identity) string {
	return namespaced(viewedJobsKey, id)
}

func feedbackKeyFor(id domain.Identity) string {
	return namespaced(feedbackGivenKey, id)
}

func namespaced(prefix string, id domain.Identity) string {
	if id.Anonymous() {
		return prefix
	}
	return prefix + "_" + id.UID
}

// Viewed returns the recorded job ids in insertion order.
func (q *QuotaLedger) Viewed(ctx context.Context, id domain.Identity) ([]string, error) {
	raw, err := q.kv.Get(ctx, KeyFor(id))
	if errors.Is(err, ErrKeyNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", KeyFor(id), err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyFor(id), err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// HasQuota reports whether fewer than Limit jobs have been recorded.
func (q *QuotaLedger) HasQuota(ctx context.Context, id domain.Identity) bool {
	ids, err := q.Viewed(ctx, id)
	if err != nil {
		q.log.WithError(err).WithField("key", KeyFor(id)).Warn("quota ledger unreadable, allowing view")
		return true
	}
	return len(ids) < q.policy.Limit
}

// HasViewed reports whether jobID is already recorded. Read errors count as not viewed.
func (q *QuotaLedger) HasViewed(ctx context.Context, id domain.Identity, jobID string) bool {
	ids, err := q.Viewed(ctx, id)
	if err != nil {
		return false
	}
	return contains(ids, jobID)
}

// RecordView appends jobID once. Duplicate calls leave the ledger unchanged.
func (q *QuotaLedger) RecordView(ctx context.Context, id domain.Identity, jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry := q.log.WithField("key", KeyFor(id))
	ids, err := q.Viewed(ctx, id)
	if err != nil {
		entry.WithError(err).Warn("quota ledger unreadable, view not recorded")
		return
	}
	if contains(ids, jobID) {
		return
	}
	raw, err := json.Marshal(append(ids, jobID))
	if err != nil {
		entry.WithError(err).Warn("encode quota ledger")
		return
	}
	if err := q.kv.Set(ctx, KeyFor(id), raw); err != nil {
		entry.WithError(err).Warn("quota ledger write failed, view not recorded")
	}
}

func (q *QuotaLedger) FeedbackGiven(ctx context.Context, id domain.Identity) bool {
	raw, err := q.kv.Get(ctx, feedbackKeyFor(id))
	if err != nil {
		return false
	}
	return string(raw) == "true"
}

func (q *QuotaLedger) MarkFeedbackGiven(ctx context.Context, id domain.Identity) {
	if err := q.kv.Set(ctx, feedbackKeyFor(id), []byte("true")); err != nil {
		q.log.WithError(err).WithField("key", feedbackKeyFor(id)).Warn("feedback flag write failed")
	}
}

// QuotaStatus is the ledger summary exposed to clients.
type QuotaStatus struct {
	Key           string   `json:"key"`
	Viewed        []string `json:"viewed"`
	HasQuota      bool     `json:"has_quota"`
	Enforce       bool     `json:"enforce"`
	Limit         int      `json:"limit"`
	FeedbackGiven bool     `json:"feedback_given"`
}

func (q *QuotaLedger) Status(ctx context.Context, id domain.Identity) QuotaStatus {
	ids, err := q.Viewed(ctx, id)
	if err != nil {
		ids = []string{}
	}
	return QuotaStatus{
		Key:           KeyFor(id),
		Viewed:        ids,
		HasQuota:      q.HasQuota(ctx, id),
		Enforce:       q.policy.Enforce,
		Limit:         q.policy.Limit,
		FeedbackGiven: q.FeedbackGiven(ctx, id),
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
