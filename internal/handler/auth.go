package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-reservation/internal/config"
	"github.com/iliyamo/theatre-reservation/internal/middleware"
	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/repository"
	"github.com/iliyamo/theatre-reservation/internal/utils"
	"github.com/iliyamo/theatre-reservation/internal/view"
)

// AuthHandler bundles dependencies for the account endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=5,max=128"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	Refresh string `json:"refresh" validate:"required"`
}

type verifyReq struct {
	Token string `json:"token" validate:"required"`
}

type profileReq struct {
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Password  string `json:"password" validate:"omitempty,min=5,max=128"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type tokenPair struct {
	User    view.User `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register handles POST /register.  New accounts are never staff; see
// cmd/create-staff for that.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u := model.User{Email: req.Email, FirstName: strings.TrimSpace(req.FirstName), LastName: strings.TrimSpace(req.LastName)}
	if err := h.Users.Create(ctx, &u, req.Password, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return respondError(c, repository.Invalid("email", "user with this email already exists"))
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, view.NewUser(u))
}

// Token handles POST /token: verify credentials and return a new pair.
func (h *AuthHandler) Token(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	hash := ""
	u, err := h.Users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		hash = u.PasswordHash
	case !errors.Is(err, repository.ErrNotFound):
		return respondError(c, err)
	}
	// VerifyPassword runs bcrypt even for unknown emails.
	if !utils.VerifyPassword(hash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no active account found with the given credentials"})
	}
	return h.issue(c, u, http.StatusOK)
}

// Refresh handles POST /token/refresh.  The presented refresh token is
// revoked and replaced; a token can be used once.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.Refresh))

	ctx, cancel := requestContext(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token is invalid or expired"})
		}
		return respondError(c, err)
	}
	// Losing the race against a concurrent refresh of the same token
	// shows up as ErrNotFound here.
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token is invalid or expired"})
		}
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token is invalid or expired"})
		}
		return respondError(c, err)
	}
	return h.issue(c, u, http.StatusOK)
}

// Verify handles POST /token/verify: 200 when the access token is
// valid, 401 otherwise.
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if _, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimSpace(req.Token)); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token is invalid or expired"})
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

// Logout revokes the refresh token in the body, or every refresh token
// of the authenticated caller when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.Refresh)

	ctx, cancel := requestContext(c)
	defer cancel()

	if raw != "" {
		if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw)); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token is invalid or expired"})
			}
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	id := middleware.IdentityFrom(c)
	if id == nil {
		return respondError(c, repository.Invalid("refresh", "provide a refresh token or an access token"))
	}
	if err := h.Tokens.RevokeAllForUser(ctx, id.UserID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me handles GET /me.
func (h *AuthHandler) Me(c echo.Context) error {
	u, err := h.current(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, view.NewUser(*u))
}

// UpdateMe handles PUT and PATCH /me.  Email and staff status cannot be
// changed here; an empty password keeps the current one.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	u, err := h.current(c)
	if err != nil {
		return respondError(c, err)
	}
	var req profileReq
	if c.Request().Method == http.MethodPatch {
		req = profileReq{FirstName: u.FirstName, LastName: u.LastName}
	}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	u.FirstName, u.LastName = strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)
	if err := h.Users.UpdateProfile(ctx, u, req.Password, h.Cfg.BcryptCost); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, view.NewUser(*u))
}

func (h *AuthHandler) current(c echo.Context) (*model.User, error) {
	id := middleware.IdentityFrom(c)
	if id == nil {
		return nil, repository.ErrNotFound
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	return h.Users.GetByID(ctx, id.UserID)
}

// issue signs an access token, stores a hashed refresh token and
// answers with both.
func (h *AuthHandler) issue(c echo.Context, u *model.User, status int) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role(), h.Cfg.AccessTTLMin)
	if err != nil {
		return respondError(c, err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return respondError(c, err)
	}
	return c.JSON(status, tokenPair{
		User:    view.NewUser(*u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}
