package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Juanes-crypto/grupo-agro-backend/internal/auth"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/domain"
	"github.com/Juanes-crypto/grupo-agro-backend/internal/repository"
	apperrors "github.com/Juanes-crypto/grupo-agro-backend/pkg/errors"
)

// AuthHandler serves registration and login
type AuthHandler struct {
	users      repository.UserRepository
	jwtManager *auth.JWTManager
	logger     *zap.Logger
}

func NewAuthHandler(users repository.UserRepository, jwtManager *auth.JWTManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users:      users,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// Register handles POST /api/v1/auth/register
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      RegisterRequest  true  "Registration request"
// @Success      201      {object}  AuthResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse  "Email already registered"
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid registration payload", err.Error()))
		return
	}

	if _, err := h.users.FindByEmail(c.Request.Context(), req.Email); err == nil {
		fail(c, apperrors.NewStandardError("DuplicateEmail", "email is already registered", "Email: "+req.Email))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("Failed to hash password", zap.Error(err))
		fail(c, apperrors.NewInternalError("failed to register user", nil))
		return
	}

	user := domain.NewUser(req.Name, req.Email, hash)
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		h.logger.Error("Failed to create user", zap.Error(err))
		fail(c, err)
		return
	}

	token, err := h.jwtManager.GenerateToken(user.ID, user.Role)
	if err != nil {
		fail(c, apperrors.NewInternalError("failed to issue token", err))
		return
	}

	h.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	c.JSON(http.StatusCreated, AuthResponse{Token: token, User: newUserResponse(user)})
}

// Login handles POST /api/v1/auth/login
// @Summary      Authenticate and obtain a JWT
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      LoginRequest  true  "Login request"
// @Success      200      {object}  AuthResponse
// @Failure      401      {object}  ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperrors.NewInvalidRequest("invalid login payload", err.Error()))
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		fail(c, apperrors.NewUnauthorized("invalid credentials", ""))
		return
	}
	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		fail(c, apperrors.NewUnauthorized("invalid credentials", ""))
		return
	}

	token, err := h.jwtManager.GenerateToken(user.ID, user.Role)
	if err != nil {
		fail(c, apperrors.NewInternalError("failed to issue token", err))
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Token: token, User: newUserResponse(user)})
}
