package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"applyai/domain"
)

// BackendClient talks to the résumé matching backend over HTTP. Only idempotent
// reads are retried; match and apply requests are sent once.
type BackendClient struct {
	baseURL string
	http    *http.Client
	retry   RetryConfig
	log     *logrus.Logger
}

func NewBackendClient(baseURL string, timeout time.Duration, log *logrus.Logger) *BackendClient {
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		retry:   DefaultRetryConfig.WithLogger(log),
		log:     log,
	}
}

type matchResponse struct {
	Matches    []domain.JobMatch `json:"matches"`
	ResumeData json.RawMessage   `json:"resume_data,omitempty"`
	Fallback   bool              `json:"fallback,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Match posts the submission to /match-resume.
func (c *BackendClient) Match(ctx context.Context, sub domain.Submission) (domain.MatchResult, error) {
	body, contentType, err := matchForm(sub)
	if err != nil {
		return domain.MatchResult{}, domain.InternalError(err)
	}

	raw, err := c.send(ctx, http.MethodPost, "/match-resume", contentType, body)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return domain.MatchResult{}, err
		}
		return domain.MatchResult{}, domain.WrapError(err, domain.CodeUpstream, domain.ErrUpstream.Message, domain.ErrUpstream.HTTPCode)
	}

	var resp matchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.MatchResult{}, domain.WrapError(fmt.Errorf("decode match response: %w", err),
			domain.CodeUpstream, domain.ErrUpstream.Message, domain.ErrUpstream.HTTPCode)
	}

	meta := map[string]any{"fallback": resp.Fallback}
	if resp.Error != "" {
		meta["error"] = resp.Error
	}
	if len(resp.ResumeData) > 0 && string(resp.ResumeData) != "null" {
		var rd any
		if err := json.Unmarshal(resp.ResumeData, &rd); err == nil {
			meta["resume_data"] = rd
		}
	}
	if resp.Matches == nil {
		resp.Matches = []domain.JobMatch{}
	}
	return domain.MatchResult{Matches: resp.Matches, Meta: meta}, nil
}

func matchForm(sub domain.Submission) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if sub.Resume != nil {
		part, err := w.CreateFormFile("resume", sub.Resume.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("create resume part: %w", err)
		}
		if _, err := part.Write(sub.Resume.Data); err != nil {
			return nil, "", fmt.Errorf("write resume part: %w", err)
		}
	}

	fields := [][2]string{{"use_llm", "true"}}
	if sub.Salary != "" {
		fields = append(fields, [2]string{"salary", sub.Salary})
	}
	if sub.Manual != nil {
		edu, err := json.Marshal(nonNilRows(sub.Manual.Education))
		if err != nil {
			return nil, "", err
		}
		exp, err := json.Marshal(nonNilRows(sub.Manual.Experiences))
		if err != nil {
			return nil, "", err
		}
		fields = append(fields,
			[2]string{"manual_skills", sub.Manual.Skills},
			[2]string{"manual_education", string(edu)},
			[2]string{"manual_experiences", string(exp)},
		)
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func nonNilRows[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}

type userInfoResponse struct {
	Success     bool   `json:"success"`
	Role        string `json:"role"`
	RecruiterID string `json:"recruiterId"`
	Error       string `json:"error"`
}

// UserInfo resolves a user's role via /user-info. Users the backend does not know are candidates.
func (c *BackendClient) UserInfo(ctx context.Context, uid string) (domain.UserInfo, error) {
	raw, err := c.get(ctx, "/user-info?uid="+url.QueryEscape(uid))
	if err != nil {
		return domain.UserInfo{}, fmt.Errorf("user info: %w", err)
	}
	var resp userInfoResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.UserInfo{}, fmt.Errorf("decode user info: %w", err)
	}
	if !resp.Success {
		c.log.WithField("user_id", uid).WithField("reason", resp.Error).Debug("user unknown to backend")
		return domain.UserInfo{UID: uid, Role: domain.RoleCandidate}, nil
	}
	role := resp.Role
	if role == "" {
		role = domain.RoleCandidate
	}
	return domain.UserInfo{UID: uid, Role: role, RecruiterID: resp.RecruiterID}, nil
}

type applyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Apply forwards an application to /job/apply.
func (c *BackendClient) Apply(ctx context.Context, req domain.ApplyRequest) (domain.ApplyReceipt, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("resume", req.Resume.Filename)
	if err != nil {
		return domain.ApplyReceipt{}, domain.InternalError(err)
	}
	if _, err := part.Write(req.Resume.Data); err != nil {
		return domain.ApplyReceipt{}, domain.InternalError(err)
	}
	for k, v := range map[string]string{
		"jobId":        req.JobID,
		"candidateUid": req.CandidateUID,
		"recruiterId":  req.RecruiterID,
	} {
		if err := w.WriteField(k, v); err != nil {
			return domain.ApplyReceipt{}, domain.InternalError(err)
		}
	}
	if err := w.Close(); err != nil {
		return domain.ApplyReceipt{}, domain.InternalError(err)
	}

	raw, err := c.send(ctx, http.MethodPost, "/job/apply", w.FormDataContentType(), buf.Bytes())
	if err != nil {
		return domain.ApplyReceipt{}, domain.WrapError(err, domain.CodeUpstream, "Failed to submit application.", http.StatusBadGateway)
	}
	var resp applyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.ApplyReceipt{}, domain.WrapError(err, domain.CodeUpstream, "Failed to submit application.", http.StatusBadGateway)
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "Failed to submit application."
		}
		return domain.ApplyReceipt{}, domain.NewAppError(domain.CodeUpstream, msg, http.StatusBadGateway)
	}
	msg := resp.Message
	if msg == "" {
		msg = "Application submitted successfully"
	}
	return domain.ApplyReceipt{Message: msg}, nil
}

// get fetches path, retrying transient failures.
func (c *BackendClient) get(ctx context.Context, path string) ([]byte, error) {
	return RetryDo(ctx, c.retry, func() ([]byte, error) {
		return c.send(ctx, http.MethodGet, path, "", nil)
	})
}

// send performs a single request and returns the body of a 2xx response.
func (c *BackendClient) send(ctx context.Context, method, path, contentType string, body []byte) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("read body: %w", err)}
	}
	c.log.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("backend call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 200)}
	}
	return raw, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
