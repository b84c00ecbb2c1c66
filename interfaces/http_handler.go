package interfaces

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"applyai/domain"
	"applyai/service"
)

// MaxResumeBytes caps uploaded résumé files.
const MaxResumeBytes = 10 << 20

type HTTPHandler struct {
	Flows        *service.FlowRegistry
	Browser      *service.Browser
	Quota        *service.QuotaLedger
	Applications *service.ApplicationService
	Feedback     *service.FeedbackService
	Users        service.UserDirectory

	// Recruiter is nil when no database is configured; recruiter routes are then not registered.
	Recruiter *service.RecruiterService
}

// NewHTTPHandler registers every route on router.
func NewHTTPHandler(router *gin.Engine, h *HTTPHandler, verifier IdentityVerifier) {
	router.MaxMultipartMemory = MaxResumeBytes

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api", Session(), Authenticate(verifier))

	api.POST("/submissions", h.Submit)
	api.GET("/submissions/current", h.SubmissionStatus)
	api.DELETE("/submissions/current", h.CancelSubmission)
	api.POST("/submissions/manual/reset", h.ResetManual)

	api.GET("/jobs", h.Jobs)
	api.GET("/jobs/:ref", h.JobDetail)
	api.POST("/jobs/:ref/open", h.OpenJob)
	api.POST("/jobs/:ref/apply", h.Apply)

	api.GET("/quota", h.QuotaStatus)
	api.POST("/feedback", h.SubmitFeedback)
	api.GET("/user-info", h.UserInfo)

	if h.Recruiter != nil {
		rec := api.Group("/recruiter", RequireRecruiter(h.Users))
		rec.GET("/jobs", h.ListJobs)
		rec.POST("/jobs", h.CreateJob)
		rec.GET("/applicants", h.ListApplicants)
		rec.PUT("/applications/:id/status", h.UpdateStatus)
		rec.GET("/applications/:id/resume", h.DownloadResume)
		rec.GET("/profile", h.GetProfile)
		rec.PUT("/profile", h.UpdateProfile)
		rec.GET("/messages", h.Thread)
		rec.POST("/messages", h.SendMessage)
		rec.POST("/messages/bulk", h.SendBulkMessages)
	}
}

// Submit accepts a résumé (or the manual profile) and starts matching in the background.
func (h *HTTPHandler) Submit(c *gin.Context) {
	sub, err := parseSubmission(c)
	if err != nil {
		respondError(c, err)
		return
	}
	st, err := h.Flows.Submit(c.Request.Context(), scope(c), identity(c), sub)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, st)
}

func parseSubmission(c *gin.Context) (domain.Submission, error) {
	var sub domain.Submission

	header, err := c.FormFile("resume")
	switch {
	case err == nil:
		f, err := readUpload(header)
		if err != nil {
			return sub, err
		}
		sub.Resume = f
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return sub, domain.ValidationError("Invalid upload").WithDetails(err.Error())
	}

	sub.Salary = c.PostForm("salary")

	if skills, ok := c.GetPostForm("manual_skills"); ok {
		m := &domain.ManualProfile{Skills: skills}
		if raw := c.PostForm("manual_education"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &m.Education); err != nil {
				return sub, domain.ValidationError("manual_education must be a JSON array")
			}
		}
		if raw := c.PostForm("manual_experiences"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &m.Experiences); err != nil {
				return sub, domain.ValidationError("manual_experiences must be a JSON array")
			}
		}
		sub.Manual = m
	}
	return sub, nil
}

func readUpload(header *multipart.FileHeader) (*domain.ResumeFile, error) {
	if header.Size > MaxResumeBytes {
		return nil, domain.ValidationError(fmt.Sprintf("File is too large (max %d MB).", MaxResumeBytes>>20))
	}
	f, err := header.Open()
	if err != nil {
		return nil, domain.InternalError(fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxResumeBytes+1))
	if err != nil {
		return nil, domain.InternalError(fmt.Errorf("read upload: %w", err))
	}
	if len(data) > MaxResumeBytes {
		return nil, domain.ValidationError(fmt.Sprintf("File is too large (max %d MB).", MaxResumeBytes>>20))
	}
	return &domain.ResumeFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (h *HTTPHandler) SubmissionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Flows.Status(scope(c)))
}

func (h *HTTPHandler) CancelSubmission(c *gin.Context) {
	c.JSON(http.StatusOK, h.Flows.Cancel(scope(c)))
}

func (h *HTTPHandler) ResetManual(c *gin.Context) {
	st, err := h.Flows.ResetManual(scope(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *HTTPHandler) Jobs(c *gin.Context) {
	views, err := h.Browser.Views(scope(c), c.DefaultQuery("employment_type", domain.EmploymentTypeAll))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *HTTPHandler) JobDetail(c *gin.Context) {
	detail, err := h.Browser.Detail(scope(c), c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// OpenJob consumes a free view (when enforced) and returns where the client should go.
func (h *HTTPHandler) OpenJob(c *gin.Context) {
	path, err := h.Browser.Open(c.Request.Context(), scope(c), identity(c), c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"navigate_to": path})
}

// Apply sends a PDF résumé for a job from the caller's results. Where it goes is decided
// by the stored match, never by the request.
func (h *HTTPHandler) Apply(c *gin.Context) {
	if identity(c).Anonymous() {
		respondError(c, domain.ErrAuthRequired)
		return
	}
	detail, err := h.Browser.Detail(scope(c), c.Param("ref"))
	if err != nil {
		respondError(c, err)
		return
	}

	var resume *domain.ResumeFile
	if header, err := c.FormFile("resume"); err == nil {
		f, err := readUpload(header)
		if err != nil {
			respondError(c, err)
			return
		}
		resume = f
	}

	receipt, err := h.Applications.Apply(c.Request.Context(), identity(c), detail.Apply, resume)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       receipt.Message,
		"applicationId": receipt.ApplicationID,
	})
}

func (h *HTTPHandler) QuotaStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Quota.Status(c.Request.Context(), identity(c)))
}

func (h *HTTPHandler) SubmitFeedback(c *gin.Context) {
	var in domain.FeedbackInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, domain.ValidationError("Please rate both job matching and resume parsing.").WithDetails(err.Error()))
		return
	}
	if err := h.Feedback.Submit(c.Request.Context(), identity(c), in); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// UserInfo reports the caller's role, mirroring the backend's /user-info shape.
func (h *HTTPHandler) UserInfo(c *gin.Context) {
	id := identity(c)
	if id.Anonymous() {
		respondError(c, domain.ErrAuthRequired)
		return
	}
	info, err := h.Users.UserInfo(c.Request.Context(), id.UID)
	if err != nil {
		respondError(c, domain.InternalError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "role": info.Role, "recruiterId": info.RecruiterID})
}

func (h *HTTPHandler) ListJobs(c *gin.Context) {
	jobs, err := h.Recruiter.ListJobs(c.Request.Context(), recruiterID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *HTTPHandler) CreateJob(c *gin.Context) {
	var in domain.JobInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, domain.ValidationError("Invalid job posting").WithDetails(err.Error()))
		return
	}
	job, err := h.Recruiter.CreateJob(c.Request.Context(), recruiterID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *HTTPHandler) ListApplicants(c *gin.Context) {
	apps, err := h.Recruiter.ListApplicants(c.Request.Context(), recruiterID(c), c.Query("jobId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applicants": apps})
}

type statusUpdate struct {
	Status domain.ApplicationStatus `json:"status"`
	Notes  string                   `json:"notes"`
}

func (h *HTTPHandler) UpdateStatus(c *gin.Context) {
	var req statusUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, domain.ValidationError("Invalid request body").WithDetails(err.Error()))
		return
	}
	app, err := h.Recruiter.UpdateStatus(c.Request.Context(), recruiterID(c), c.Param("id"), req.Status, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *HTTPHandler) DownloadResume(c *gin.Context) {
	id := c.Param("id")
	data, err := h.Recruiter.Resume(c.Request.Context(), recruiterID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="resume-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (h *HTTPHandler) GetProfile(c *gin.Context) {
	p, err := h.Recruiter.Profile(c.Request.Context(), recruiterID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

func (h *HTTPHandler) UpdateProfile(c *gin.Context) {
	var in domain.ProfileUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, domain.ValidationError("Invalid profile").WithDetails(err.Error()))
		return
	}
	p, err := h.Recruiter.UpdateProfile(c.Request.Context(), recruiterID(c), identity(c).UID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

func (h *HTTPHandler) Thread(c *gin.Context) {
	msgs, err := h.Recruiter.Thread(c.Request.Context(), recruiterID(c), c.Query("jobId"), c.Query("applicantId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *HTTPHandler) SendMessage(c *gin.Context) {
	var in domain.MessageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, domain.ValidationError("Invalid message").WithDetails(err.Error()))
		return
	}
	msg, err := h.Recruiter.SendMessage(c.Request.Context(), recruiterID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "messageId": msg.ID})
}

func (h *HTTPHandler) SendBulkMessages(c *gin.Context) {
	var in domain.BulkMessageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, domain.ValidationError("Invalid bulk message").WithDetails(err.Error()))
		return
	}
	msgs, err := h.Recruiter.SendBulk(c.Request.Context(), recruiterID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	sent := make([]string, len(msgs))
	for i, m := range msgs {
		sent[i] = m.ID
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "sent": sent})
}
