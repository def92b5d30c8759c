package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/careerpilot/authcore"
)

// Server holds the handler dependencies. Construct it with NewServer and
// mount it with Register.
type Server struct {
	engine *authcore.Engine
	logger *zap.Logger
}

// NewServer returns a Server for engine. A nil logger falls back to
// zap.NewNop.
func NewServer(engine *authcore.Engine, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine: engine,
		logger: logger,
	}
}

// Register mounts the auth routes under /auth on r. Every route runs behind
// the client-IP middleware; logout additionally requires a bearer token.
func (s *Server) Register(r gin.IRouter) {
	auth := r.Group("/auth", s.withClientIP)
	auth.POST("/login", s.handleLogin)
	auth.POST("/refresh", s.handleRefresh)
	auth.POST("/logout", s.requireBearer, s.handleLogout)
	auth.POST("/password-reset/request", s.handleResetRequest)
	auth.POST("/password-reset/confirm", s.handleResetConfirm)
}

// withClientIP stamps the caller's IP into the request context so the
// engine's guard and audit trail see it.
func (s *Server) withClientIP(c *gin.Context) {
	ctx := authcore.WithClientIP(c.Request.Context(), c.ClientIP())
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.engine.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.engine.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	LogoutAll    bool   `json:"logout_all"`
}

func (s *Server) handleLogout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := c.GetString(contextKeyUserID)

	var err error
	if req.LogoutAll {
		err = s.engine.LogoutAll(c.Request.Context(), userID)
	} else {
		if req.RefreshToken == "" {
			writeError(c, http.StatusBadRequest, "refresh_token required unless logout_all is set")
			return
		}
		err = s.engine.Logout(c.Request.Context(), userID, req.RefreshToken)
	}
	if err != nil {
		// The caller is already authenticated; a token that fails to
		// decode or belongs to someone else is a bad request, not a
		// failed authentication.
		if errors.Is(err, authcore.ErrTokenInvalid) {
			writeError(c, http.StatusBadRequest, "invalid refresh token")
			return
		}
		s.writeEngineError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type resetRequestBody struct {
	Email string `json:"email" binding:"required"`
}

func (s *Server) handleResetRequest(c *gin.Context) {
	var req resetRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.engine.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		s.writeEngineError(c, err)
		return
	}

	// Identical body for known and unknown emails.
	c.JSON(http.StatusOK, gin.H{
		"message": "if the account exists, a reset link has been sent",
	})
}

type resetConfirmBody struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (s *Server) handleResetConfirm(c *gin.Context) {
	var req resetConfirmBody
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.engine.ConfirmPasswordReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		s.writeEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// writeEngineError maps engine errors onto the wire. Unknown errors are
// logged and surface as an opaque 500 so infrastructure details never leak.
func (s *Server) writeEngineError(c *gin.Context, err error) {
	var locked *authcore.LockedError
	switch {
	case errors.As(err, &locked):
		c.Header("Retry-After", strconv.Itoa(int(locked.RetryAfter.Seconds())))
		writeError(c, http.StatusTooManyRequests, "too many failed attempts")
	case errors.Is(err, authcore.ErrInvalidCredentials):
		writeError(c, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, authcore.ErrTokenInvalid),
		errors.Is(err, authcore.ErrTokenExpired),
		errors.Is(err, authcore.ErrTokenReuseDetected):
		writeError(c, http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, authcore.ErrResetTokenInvalid):
		writeError(c, http.StatusBadRequest, "invalid or expired reset token")
	case errors.Is(err, authcore.ErrWeakPassword):
		writeError(c, http.StatusBadRequest, "password does not meet strength requirements")
	case errors.Is(err, authcore.ErrTooManyAttempts):
		writeError(c, http.StatusTooManyRequests, "too many requests")
	default:
		s.logger.Error("auth operation failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
