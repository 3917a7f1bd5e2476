package booking

import (
	"errors"
	"net/http"
	"strconv"

	"labbooking/internal/middleware"
	"labbooking/internal/pkg/response"
	"labbooking/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the booking endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/book-equipment", h.CreateBooking)
	rg.GET("/view-bookings", h.ListMyBookings)
	rg.POST("/cancel-booking/:id", h.CancelBooking)
	rg.GET("/edit-booking/:id", h.GetBooking)
	rg.POST("/edit-booking/:id", h.EditBooking)
}

// RegisterAdminRoutes mounts the administrator view.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookings", middleware.AdminOnly(), h.ListAllBookings)
}

func (h *Handler) CreateBooking(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	req, ok := bindForm(c)
	if !ok {
		return
	}

	b, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"booking": b})
}

func (h *Handler) EditBooking(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}
	req, ok := bindForm(c)
	if !ok {
		return
	}

	b, err := h.service.Edit(c.Request.Context(), actor, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) GetBooking(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}

	b, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) CancelBooking(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}

	if err := h.service.Cancel(c.Request.Context(), actor, id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cancelled": id})
}

func (h *Handler) ListMyBookings(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	list, err := h.service.ListForUser(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": list})
}

func (h *Handler) ListAllBookings(c *gin.Context) {
	actor, ok := middleware.MustActor(c)
	if !ok {
		return
	}
	list, err := h.service.ListAll(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": list})
}

func bindForm(c *gin.Context) (SlotRequest, bool) {
	var form BookingForm
	if err := c.ShouldBind(&form); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid booking request",
			gin.H{"fields": validator.FieldErrors(err)})
		return SlotRequest{}, false
	}
	req, err := form.ToRequest()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return SlotRequest{}, false
	}
	return req, true
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid booking id")
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrConflict):
		response.Error(c, http.StatusConflict, "BOOKING_CONFLICT",
			"The equipment is already booked for an overlapping time on that date; choose a different slot")
	case errors.Is(err, ErrEquipmentNotFound):
		response.Error(c, http.StatusNotFound, "EQUIPMENT_NOT_FOUND", "Equipment not found")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You are not allowed to do this")
	case errors.Is(err, ErrBusy):
		response.Error(c, http.StatusServiceUnavailable, "SLOT_BUSY", "The slot is being booked by someone else, try again")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process booking")
	}
}
