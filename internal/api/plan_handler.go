package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/service"
)

// PlanHandler holds the training-plan service dependency.
type PlanHandler struct {
	planService service.PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- Request/Response Structs ---

type CreatePlanRequest struct {
	CustomerID string    `json:"customerId" binding:"required,uuid"`
	CoachID    string    `json:"coachId"` // Admin only: create on a coach's behalf
	Goal       string    `json:"goal" binding:"required"`
	Notes      string    `json:"notes"`
	StartDate  time.Time `json:"startDate" binding:"required"`
	EndDate    time.Time `json:"endDate" binding:"required"`
}

type UpdatePlanRequest struct {
	Goal      string    `json:"goal" binding:"required"`
	Notes     string    `json:"notes"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
}

type SetPlanActiveRequest struct {
	Active bool `json:"active"`
}

type AddTrainingDayRequest struct {
	WeekDay         domain.WeekDay      `json:"weekDay" binding:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Type            domain.TrainingType `json:"type" binding:"required,oneof=easy_run tempo interval long_run rest"`
	Intensity       domain.Intensity    `json:"intensity" binding:"required,oneof=low moderate high"`
	DurationMinutes int                 `json:"durationMinutes" binding:"min=0"`
	DistanceKm      float64             `json:"distanceKm" binding:"min=0"`
	Description     string              `json:"description"`
	Notes           string              `json:"notes"`
}

type TrainingDayResponse struct {
	ID              string    `json:"id"`
	PlanID          string    `json:"planId"`
	WeekDay         string    `json:"weekDay"`
	Type            string    `json:"type"`
	Intensity       string    `json:"intensity"`
	DurationMinutes int       `json:"durationMinutes"`
	DistanceKm      float64   `json:"distanceKm"`
	Description     string    `json:"description,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type TrainingPlanResponse struct {
	ID         string                `json:"id"`
	CoachID    string                `json:"coachId"`
	CustomerID string                `json:"customerId"`
	Goal       string                `json:"goal"`
	Notes      string                `json:"notes,omitempty"`
	StartDate  time.Time             `json:"startDate"`
	EndDate    time.Time             `json:"endDate"`
	IsActive   bool                  `json:"isActive"`
	CreatedAt  time.Time             `json:"createdAt"`
	UpdatedAt  time.Time             `json:"updatedAt"`
	Days       []TrainingDayResponse `json:"days,omitempty"`
}

func toTrainingDayResponse(day *domain.TrainingDay) TrainingDayResponse {
	return TrainingDayResponse{
		ID:              day.ID.String(),
		PlanID:          day.PlanID.String(),
		WeekDay:         string(day.WeekDay),
		Type:            string(day.Type),
		Intensity:       string(day.Intensity),
		DurationMinutes: day.DurationMinutes,
		DistanceKm:      day.DistanceKm,
		Description:     day.Description,
		Notes:           day.Notes,
		CreatedAt:       day.CreatedAt,
	}
}

func toTrainingPlanResponse(plan *domain.TrainingPlan) TrainingPlanResponse {
	resp := TrainingPlanResponse{
		ID:         plan.ID.String(),
		CoachID:    plan.CoachID.String(),
		CustomerID: plan.CustomerID.String(),
		Goal:       plan.Goal,
		Notes:      plan.Notes,
		StartDate:  plan.StartDate,
		EndDate:    plan.EndDate,
		IsActive:   plan.IsActive,
		CreatedAt:  plan.CreatedAt,
		UpdatedAt:  plan.UpdatedAt,
	}
	for i := range plan.Days {
		resp.Days = append(resp.Days, toTrainingDayResponse(&plan.Days[i]))
	}
	return resp
}

func toTrainingPlanResponses(plans []domain.TrainingPlan) []TrainingPlanResponse {
	resp := make([]TrainingPlanResponse, 0, len(plans))
	for i := range plans {
		resp = append(resp, toTrainingPlanResponse(&plans[i]))
	}
	return resp
}

// --- Handler Methods ---

// CreatePlan godoc
// @Summary Create a training plan for a customer
// @Tags Plans
// @Accept json
// @Produce json
// @Param plan body CreatePlanRequest true "Plan details"
// @Success 201 {object} TrainingPlanResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Customer not found or not assigned"
// @Router /plans [post]
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}

	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid customer id format")
		return
	}
	input := service.CreatePlanInput{
		CustomerID: customerID,
		Goal:       req.Goal,
		Notes:      req.Notes,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	}
	if req.CoachID != "" {
		coachID, err := uuid.Parse(req.CoachID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid coach id format")
			return
		}
		input.CoachID = coachID
	}

	plan, err := h.planService.CreatePlan(c.Request.Context(), caller, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTrainingPlanResponse(plan))
}

// GetPlan godoc
// @Summary Get a plan with its scheduled days
// @Tags Plans
// @Produce json
// @Param planId path string true "Plan ID"
// @Success 200 {object} TrainingPlanResponse
// @Failure 404 {object} gin.H "Plan not found"
// @Router /plans/{planId} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}
	planID, ok := parseIDParam(c, "planId")
	if !ok {
		return
	}

	plan, err := h.planService.GetPlan(c.Request.Context(), caller, planID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTrainingPlanResponse(plan))
}

// UpdatePlan overwrites the plan's goal, notes and date range.
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}
	planID, ok := parseIDParam(c, "planId")
	if !ok {
		return
	}

	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	plan, err := h.planService.UpdatePlan(c.Request.Context(), caller, planID, service.UpdatePlanInput{
		Goal:      req.Goal,
		Notes:     req.Notes,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTrainingPlanResponse(plan))
}

// DeletePlan removes a plan and its days.
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}
	planID, ok := parseIDParam(c, "planId")
	if !ok {
		return
	}

	if err := h.planService.DeletePlan(c.Request.Context(), caller, planID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPlanActive flips the plan's active flag.
func (h *PlanHandler) SetPlanActive(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}
	planID, ok := parseIDParam(c, "planId")
	if !ok {
		return
	}

	var req SetPlanActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	plan, err := h.planService.SetPlanActive(c.Request.Context(), caller, planID, req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTrainingPlanResponse(plan))
}

// AddTrainingDay godoc
// @Summary Schedule a workout slot on a plan
// @Tags Plans
// @Accept json
// @Produce json
// @Param planId path string true "Plan ID"
// @Param day body AddTrainingDayRequest true "Workout details"
// @Success 201 {object} TrainingDayResponse
// @Failure 409 {object} gin.H "Week day already scheduled"
// @Router /plans/{planId}/days [post]
func (h *PlanHandler) AddTrainingDay(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}
	planID, ok := parseIDParam(c, "planId")
	if !ok {
		return
	}

	var req AddTrainingDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	day, err := h.planService.AddTrainingDay(c.Request.Context(), caller, planID, service.AddTrainingDayInput{
		WeekDay:         req.WeekDay,
		Type:            req.Type,
		Intensity:       req.Intensity,
		DurationMinutes: req.DurationMinutes,
		DistanceKm:      req.DistanceKm,
		Description:     req.Description,
		Notes:           req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTrainingDayResponse(day))
}

// RemoveTrainingDay deletes a workout slot from a plan.
func (h *PlanHandler) RemoveTrainingDay(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}
	planID, ok := parseIDParam(c, "planId")
	if !ok {
		return
	}
	dayID, ok := parseIDParam(c, "dayId")
	if !ok {
		return
	}

	if err := h.planService.RemoveTrainingDay(c.Request.Context(), caller, planID, dayID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMyPlans returns the plans the caller authored (coach) or receives
// (customer).
func (h *PlanHandler) ListMyPlans(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}

	var plans []domain.TrainingPlan
	switch caller.Role {
	case domain.RoleCoach:
		plans, err = h.planService.ListPlansForCoach(c.Request.Context(), caller, caller.ID, pageFromQuery(c))
	case domain.RoleCustomer:
		plans, err = h.planService.ListPlansForCustomer(c.Request.Context(), caller, caller.ID, pageFromQuery(c))
	default:
		abortWithError(c, http.StatusForbidden, "Admins list plans per coach or customer")
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTrainingPlanResponses(plans))
}

// ListAllPlans returns every plan. Admin only (enforced in the service).
func (h *PlanHandler) ListAllPlans(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}

	plans, err := h.planService.ListAllPlans(c.Request.Context(), caller, pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTrainingPlanResponses(plans))
}

// ListCustomerPlans returns the plans written for a specific customer.
func (h *PlanHandler) ListCustomerPlans(c *gin.Context) {
	caller, err := callerFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve caller")
		return
	}
	customerID, ok := parseIDParam(c, "customerId")
	if !ok {
		return
	}

	plans, err := h.planService.ListPlansForCustomer(c.Request.Context(), caller, customerID, pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTrainingPlanResponses(plans))
}
