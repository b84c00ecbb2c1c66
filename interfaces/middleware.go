package interfaces

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"applyai/domain"
	"applyai/logger"
	"applyai/service"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderSessionID = "X-Session-ID"

	ctxSession     = "session_id"
	ctxIdentity    = "identity"
	ctxRecruiterID = "recruiter_id"
	ctxLogger      = "logger"
)

// IdentityVerifier turns a bearer token into an identity.
type IdentityVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// RequestID tags every request and its log lines with an id, reusing the caller's when sent.
// Handlers log through log.
func RequestID(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Set(ctxLogger, log)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// Session binds the request to a browser session. A missing header starts a new session,
// which is echoed back so the client can keep using it.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := strings.TrimSpace(c.GetHeader(HeaderSessionID))
		if sid == "" || len(sid) > 128 {
			sid = uuid.NewString()
		}
		c.Header(HeaderSessionID, sid)
		c.Set(ctxSession, sid)
		c.Request = c.Request.WithContext(logger.WithSessionID(c.Request.Context(), sid))
		c.Next()
	}
}

// Authenticate resolves an optional bearer token. No token means anonymous; a bad one is rejected.
func Authenticate(verifier IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(ctxIdentity, domain.Identity{})
			c.Next()
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(c, domain.ErrAuthRequired.WithMessage("Authorization header missing or invalid"))
			return
		}
		id, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			respondError(c, domain.WrapError(err, domain.CodeAuthRequired, "Invalid token", domain.ErrAuthRequired.HTTPCode))
			return
		}
		c.Set(ctxIdentity, id)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), id.UID))
		c.Next()
	}
}

// RequireRecruiter lets through authenticated users whose directory role is recruiter.
func RequireRecruiter(dir service.UserDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := identity(c)
		if id.Anonymous() {
			respondError(c, domain.ErrAuthRequired)
			return
		}
		info, err := dir.UserInfo(c.Request.Context(), id.UID)
		if err != nil {
			respondError(c, domain.InternalError(err))
			return
		}
		if !info.IsRecruiter() {
			respondError(c, domain.ErrForbidden.WithMessage("Access denied: recruiters only"))
			return
		}
		rid := info.RecruiterID
		if rid == "" {
			rid = id.UID
		}
		c.Set(ctxRecruiterID, rid)
		c.Next()
	}
}

// AccessLog writes one line per request.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := requestLog(c).WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("request served")
			return
		}
		entry.Info("request served")
	}
}

func session(c *gin.Context) string {
	return c.GetString(ctxSession)
}

// scope keys per-tab state by the signed-in user as well as the session id,
// so knowing another tab's session id does not expose its results.
func scope(c *gin.Context) string {
	return identity(c).UID + "|" + session(c)
}

func requestLog(c *gin.Context) *logrus.Entry {
	v, _ := c.Get(ctxLogger)
	l, _ := v.(*logrus.Logger)
	return logger.FromContext(c.Request.Context(), l)
}

func identity(c *gin.Context) domain.Identity {
	id, _ := c.Get(ctxIdentity)
	v, _ := id.(domain.Identity)
	return v
}

func recruiterID(c *gin.Context) string {
	return c.GetString(ctxRecruiterID)
}
