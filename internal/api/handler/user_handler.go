package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storefront/shop-api/internal/api/metrics"
	"github.com/storefront/shop-api/internal/core/domain"
	"github.com/storefront/shop-api/internal/core/ports"
)

const (
	msgAlreadyLoggedIn = "already logged in"
	msgSignupLoggedIn  = "already logged in, log out to create a new account"
)

type UserHandler struct {
	auth  ports.AuthService
	users ports.UserService
}

func NewUserHandler(auth ports.AuthService, users ports.UserService) *UserHandler {
	return &UserHandler{auth: auth, users: users}
}

type signupRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Username string `json:"username" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type authResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    userResponse `json:"user"`
}

type testTokenResults struct {
	Username string `json:"username"`
	RoleID   int64  `json:"roleId"`
}

type testTokenResponse struct {
	ID      int64            `json:"id"`
	Results testTokenResults `json:"results"`
}

func toUserResponse(u ports.PublicUser) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// Signup creates a new account. The role of the account depends on the caller:
// anonymous callers get a client account and admins create admin accounts.
//
// @Summary      Create an account
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      signupRequest  true  "Account details"
// @Success      201   {object}  authResponse
// @Success      200   {object}  messageResponse  "caller is already logged in as a client"
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /users/signup [post]
func (h *UserHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Signup(c.Request().Context(), ports.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
		Caller:   callerIdentity(c),
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyAuthenticated) {
			return c.JSON(http.StatusOK, messageResponse{Message: msgSignupLoggedIn})
		}
		return err
	}

	metrics.SignupsTotal.WithLabelValues(res.User.Role).Inc()
	return c.JSON(http.StatusCreated, authResponse{
		Message: "user created",
		Token:   res.Token,
		User:    toUserResponse(res.User),
	})
}

// Login authenticates a user and returns a bearer token.
//
// @Summary      Login
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /users/login [post]
func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	res, err := h.auth.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		Caller:   callerIdentity(c),
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAlreadyAuthenticated):
		metrics.LoginsTotal.WithLabelValues("already_authenticated").Inc()
		return c.JSON(http.StatusOK, messageResponse{Message: msgAlreadyLoggedIn})
	case errors.Is(err, domain.ErrInvalidCredentials):
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return err
	default:
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, authResponse{
		Message: "logged in",
		Token:   res.Token,
		User:    toUserResponse(res.User),
	})
}

// List returns every account.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one account.
//
// @Summary      Get a user
// @Description  Answers 200 OK. Releases before this API answered 201 Created on this route.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  userResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(*user))
}

// TestToken echoes the account behind the caller's token.
//
// @Summary      Inspect the caller's token
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  testTokenResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /users/test-token [get]
func (h *UserHandler) TestToken(c echo.Context) error {
	identity := callerIdentity(c)
	if identity == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	user, err := h.users.GetUser(c.Request().Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "user not found")
		}
		return err
	}

	return c.JSON(http.StatusOK, testTokenResponse{
		ID:      user.ID,
		Results: testTokenResults{Username: user.Username, RoleID: user.RoleID},
	})
}
