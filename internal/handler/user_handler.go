package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/eaglebank/user-service/internal/service"
	"github.com/eaglebank/user-service/shared/cqrs"
	"github.com/eaglebank/user-service/shared/middleware"
	"github.com/eaglebank/user-service/shared/models"
	"github.com/gin-gonic/gin"
)

const userDeletedMessage = "User has been deleted"

// UserCommander defines the write-side operations used by UserHandler.
type UserCommander interface {
	CreateUser(context.Context, cqrs.CreateUserCommand) (*models.User, error)
	UpdateUser(context.Context, cqrs.UpdateUserCommand) (*models.User, error)
	DeleteUser(context.Context, cqrs.DeleteUserCommand) error
}

// UserQuerier defines the read-side operations used by UserHandler.
type UserQuerier interface {
	ListUsers(context.Context, cqrs.ListUsersQuery) ([]models.User, error)
	GetUser(context.Context, cqrs.GetUserQuery) (*models.User, error)
	UsersByBirthDateRange(context.Context, cqrs.UsersByBirthDateRangeQuery) ([]models.User, error)
}

// UserHandler routes requests to the command or query service as appropriate.
type UserHandler struct {
	commands UserCommander
	queries  UserQuerier
	metrics  *middleware.Metrics
}

// UserRequest is the body of create and update requests. Only a request that
// passed ValidateRequest is turned into a models.User.
type UserRequest struct {
	Email       string `json:"email" validate:"required,useremail"`
	FirstName   string `json:"firstName" validate:"required,alpha,min=3,max=20"`
	LastName    string `json:"lastName" validate:"required,alpha"`
	BirthDate   string `json:"birthDate" validate:"required,datetime=2006-01-02,pastdate"`
	Address     string `json:"address"`
	PhoneNumber int64  `json:"phoneNumber"`
}

func (r UserRequest) toUser() (models.User, error) {
	birthDate, err := models.ParseDate(r.BirthDate)
	if err != nil {
		return models.User{}, err
	}
	return models.User{
		Email:       r.Email,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		BirthDate:   birthDate,
		Address:     r.Address,
		PhoneNumber: r.PhoneNumber,
	}, nil
}

type HandlerOption func(*UserHandler)

// WithMetrics counts every user operation and its outcome.
func WithMetrics(m *middleware.Metrics) HandlerOption {
	return func(h *UserHandler) {
		h.metrics = m
	}
}

func NewUserHandler(commands UserCommander, queries UserQuerier, opts ...HandlerOption) *UserHandler {
	h := &UserHandler{commands: commands, queries: queries}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the user endpoints on group, typically /api/users.
func (h *UserHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("", h.CreateUser)
	group.GET("", h.ListUsers)
	group.GET("/range", h.UsersByBirthDateRange)
	group.GET("/:id", h.GetUser)
	group.PUT("/:id", h.UpdateUser)
	group.DELETE("/:id", h.DeleteUser)
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	user, ok := bindUser(c)
	if !ok {
		return
	}

	created, err := h.commands.CreateUser(c.Request.Context(), cqrs.CreateUserCommand{User: user})
	h.observe("create", err)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewUserView(created))
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.queries.ListUsers(c.Request.Context(), cqrs.ListUsersQuery{})
	h.observe("list", err)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewUserViews(users))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	user, err := h.queries.GetUser(c.Request.Context(), cqrs.GetUserQuery{UserID: userID})
	h.observe("get", err)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewUserView(user))
}

func (h *UserHandler) UsersByBirthDateRange(c *gin.Context) {
	fromDate, err := models.ParseDate(c.Query("fromDate"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid fromDate, expected yyyy-MM-dd")
		return
	}
	toDate, err := models.ParseDate(c.Query("toDate"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid toDate, expected yyyy-MM-dd")
		return
	}

	users, err := h.queries.UsersByBirthDateRange(c.Request.Context(), cqrs.UsersByBirthDateRangeQuery{
		FromDate: fromDate,
		ToDate:   toDate,
	})
	h.observe("range", err)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewUserViews(users))
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	user, ok := bindUser(c)
	if !ok {
		return
	}

	updated, err := h.commands.UpdateUser(c.Request.Context(), cqrs.UpdateUserCommand{
		UserID: userID,
		User:   user,
	})
	h.observe("update", err)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewUserView(updated))
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	err := h.commands.DeleteUser(c.Request.Context(), cqrs.DeleteUserCommand{UserID: userID})
	h.observe("delete", err)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": userDeletedMessage})
}

func (h *UserHandler) observe(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = service.KindOf(err).String()
	}
	h.metrics.ObserveUserOperation(operation, outcome)
}

func bindUser(c *gin.Context) (models.User, bool) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return models.User{}, false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return models.User{}, false
	}

	user, err := req.toUser()
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid birth date")
		return models.User{}, false
	}
	return user, true
}

func parseUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	return userID, true
}

func respondWithServiceError(c *gin.Context, err error) {
	switch service.KindOf(err) {
	case service.KindInvalidAge, service.KindInvalidRange:
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
	case service.KindNotFound:
		middleware.RespondWithError(c, http.StatusNotFound, err.Error())
	default:
		_ = c.Error(err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}
