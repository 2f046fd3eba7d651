package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/service"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// --- Request/Response Structs ---

type RegisterCoachRequest struct {
	Name        string    `json:"name" binding:"required"`
	Nickname    string    `json:"nickname"`
	Email       string    `json:"email" binding:"required,email"`
	Password    string    `json:"password" binding:"required,min=8"`
	Phone       string    `json:"phone"`
	DateOfBirth time.Time `json:"dateOfBirth"`
	Specialty   string    `json:"specialty"`
	Bio         string    `json:"bio"`
}

type RegisterCustomerRequest struct {
	Name               string             `json:"name" binding:"required"`
	Nickname           string             `json:"nickname"`
	Email              string             `json:"email" binding:"required,email"`
	Password           string             `json:"password" binding:"required,min=8"`
	Phone              string             `json:"phone"`
	DateOfBirth        time.Time          `json:"dateOfBirth"`
	RunnerLevel        domain.RunnerLevel `json:"runnerLevel" binding:"required,oneof=beginner intermediate advanced pro"`
	WeeklyAvailability int                `json:"weeklyAvailability" binding:"min=0,max=7"`
	ChallengeNextMonth string             `json:"challengeNextMonth"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse excludes sensitive info like the password hash.
type UserResponse struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Nickname           string      `json:"nickname,omitempty"`
	Email              string      `json:"email"`
	Role               domain.Role `json:"role"`
	Phone              string      `json:"phone,omitempty"`
	IsActive           bool        `json:"isActive"`
	CreatedAt          time.Time   `json:"createdAt"`
	Specialty          string      `json:"specialty,omitempty"`
	Bio                string      `json:"bio,omitempty"`
	CoachID            *string     `json:"coachId,omitempty"`
	RunnerLevel        string      `json:"runnerLevel,omitempty"`
	WeeklyAvailability int         `json:"weeklyAvailability,omitempty"`
	ChallengeNextMonth string      `json:"challengeNextMonth,omitempty"`
	StravaConnected    bool        `json:"stravaConnected"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type AssignCoachRequest struct {
	CoachID string `json:"coachId" binding:"required,uuid"`
}

type UpdateCoachProfileRequest struct {
	Name      *string `json:"name,omitempty"`
	Nickname  *string `json:"nickname,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Specialty *string `json:"specialty,omitempty"`
	Bio       *string `json:"bio,omitempty"`
}

type UpdateCustomerProfileRequest struct {
	Name               *string             `json:"name,omitempty"`
	Nickname           *string             `json:"nickname,omitempty"`
	Phone              *string             `json:"phone,omitempty"`
	RunnerLevel        *domain.RunnerLevel `json:"runnerLevel,omitempty" binding:"omitempty,oneof=beginner intermediate advanced pro"`
	WeeklyAvailability *int                `json:"weeklyAvailability,omitempty"`
	ChallengeNextMonth *string             `json:"challengeNextMonth,omitempty"`
}

func toUserResponse(user *domain.User) UserResponse {
	resp := UserResponse{
		ID:                 user.ID.String(),
		Name:               user.Name,
		Nickname:           user.Nickname,
		Email:              user.Email,
		Role:               user.Role,
		Phone:              user.Phone,
		IsActive:           user.IsActive,
		CreatedAt:          user.CreatedAt,
		Specialty:          user.Specialty,
		Bio:                user.Bio,
		RunnerLevel:        string(user.RunnerLevel),
		WeeklyAvailability: user.WeeklyAvailability,
		ChallengeNextMonth: user.ChallengeNextMonth,
		StravaConnected:    user.IsStravaConnected(),
	}
	if user.CoachID != nil {
		id := user.CoachID.String()
		resp.CoachID = &id
	}
	return resp
}

func toUserResponses(users []domain.User) []UserResponse {
	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, toUserResponse(&users[i]))
	}
	return resp
}

// --- Handler Methods ---

// RegisterCoach godoc
// @Summary Register a new coach account
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body RegisterCoachRequest true "Registration details"
// @Success 201 {object} UserResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 409 {object} gin.H "Email already registered"
// @Router /auth/register/coach [post]
func (h *AuthHandler) RegisterCoach(c *gin.Context) {
	var req RegisterCoachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := h.authService.RegisterCoach(c.Request.Context(), service.RegisterCoachInput{
		Name:        req.Name,
		Nickname:    req.Nickname,
		Email:       req.Email,
		Password:    req.Password,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Specialty:   req.Specialty,
		Bio:         req.Bio,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

// RegisterCustomer godoc
// @Summary Register a new customer account
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body RegisterCustomerRequest true "Registration details"
// @Success 201 {object} UserResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 409 {object} gin.H "Email already registered"
// @Router /auth/register/customer [post]
func (h *AuthHandler) RegisterCustomer(c *gin.Context) {
	var req RegisterCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := h.authService.RegisterCustomer(c.Request.Context(), service.RegisterCustomerInput{
		Name:               req.Name,
		Nickname:           req.Nickname,
		Email:              req.Email,
		Password:           req.Password,
		Phone:              req.Phone,
		DateOfBirth:        req.DateOfBirth,
		RunnerLevel:        req.RunnerLevel,
		WeeklyAvailability: req.WeeklyAvailability,
		ChallengeNextMonth: req.ChallengeNextMonth,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

// Login godoc
// @Summary Authenticate and receive a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} gin.H "Invalid email or password"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Token: token, User: toUserResponse(user)})
}

// Me returns the identity asserted by the presented token.
func (h *AuthHandler) Me(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": caller.ID.String(), "role": caller.Role})
}

// AssignCoach godoc
// @Summary Assign a coach to the calling customer
// @Tags Users
// @Accept json
// @Produce json
// @Param body body AssignCoachRequest true "Coach to assign"
// @Success 200 {object} UserResponse
// @Failure 404 {object} gin.H "Coach not found"
// @Router /customers/me/coach [put]
func (h *AuthHandler) AssignCoach(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}

	var req AssignCoachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, err := uuid.Parse(req.CoachID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid coach id format")
		return
	}

	user, err := h.authService.AssignCoachToCustomer(c.Request.Context(), caller, caller.ID, coachID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// ListCoaches godoc
// @Summary List available coaches
// @Tags Users
// @Produce json
// @Success 200 {array} UserResponse
// @Router /coaches [get]
func (h *AuthHandler) ListCoaches(c *gin.Context) {
	coaches, err := h.authService.ListCoaches(c.Request.Context(), pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponses(coaches))
}

// ListMyCustomers returns the customers assigned to the calling coach.
func (h *AuthHandler) ListMyCustomers(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}

	customers, err := h.authService.ListCustomersForCoach(c.Request.Context(), caller, caller.ID, pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponses(customers))
}

// ListCustomers returns every customer. Admin only (enforced in the service).
func (h *AuthHandler) ListCustomers(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}

	customers, err := h.authService.ListCustomers(c.Request.Context(), caller, pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponses(customers))
}

// UpdateCoachProfile updates the calling coach's own profile.
func (h *AuthHandler) UpdateCoachProfile(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}

	var req UpdateCoachProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := h.authService.UpdateCoachProfile(c.Request.Context(), caller, service.UpdateCoachProfileInput{
		Name:      req.Name,
		Nickname:  req.Nickname,
		Phone:     req.Phone,
		Specialty: req.Specialty,
		Bio:       req.Bio,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// UpdateCustomerProfile updates the calling customer's own profile.
func (h *AuthHandler) UpdateCustomerProfile(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}

	var req UpdateCustomerProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	user, err := h.authService.UpdateCustomerProfile(c.Request.Context(), caller, service.UpdateCustomerProfileInput{
		Name:               req.Name,
		Nickname:           req.Nickname,
		Phone:              req.Phone,
		RunnerLevel:        req.RunnerLevel,
		WeeklyAvailability: req.WeeklyAvailability,
		ChallengeNextMonth: req.ChallengeNextMonth,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// DeactivateUser disables an account. Admin only (enforced in the service).
func (h *AuthHandler) DeactivateUser(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}

	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	if err := h.authService.DeactivateUser(c.Request.Context(), caller, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
