package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"parking_manager/constants"
	"parking_manager/middleware"
	"parking_manager/model"
	"parking_manager/utils"
)

func (h *Handler) CreateBooking(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateBookingInput)
	caller := middleware.GetCaller(c)

	booking, err := h.Engine.CreateBooking(c.UserContext(), caller.ID, input)
	if err != nil {
		return utils.HandleError(c, err)
	}

	if user, err := h.Store.Users().Get(c.UserContext(), caller.ID); err == nil {
		h.Mailer.SendBookingReceipt(user.Email, booking)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, booking)
}

func (h *Handler) CancelBooking(c *fiber.Ctx) error {
	booking, err := h.Engine.CancelBooking(c.UserContext(), middleware.GetCaller(c), h.inputId(c))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, booking)
}

func (h *Handler) MyBookings(c *fiber.Ctx) error {
	bookings, err := h.Engine.GetBookingsForUser(c.UserContext(), middleware.GetCaller(c).ID)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, bookings)
}

// AllBookings accepts optional status, vehicle, from, to and limit query
// params.
func (h *Handler) AllBookings(c *fiber.Ctx) error {
	var filter model.BookingFilter

	if v := c.Query("status"); v != "" {
		status, err := model.ParseBookingStatus(v)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.INVALID_INPUT, err)
		}
		filter.Status = status
	}
	filter.Vehicle = c.Query("vehicle")

	var err error
	if filter.From, err = utils.OptionalDate(c.Query("from")); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.INVALID_INPUT, err)
	}
	if filter.To, err = utils.OptionalDate(c.Query("to")); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.INVALID_INPUT, err)
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.INVALID_INPUT, err)
		}
		filter.Limit = limit
	}

	bookings, err := h.Engine.GetAllBookings(c.UserContext(), middleware.GetCaller(c), filter)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, bookings)
}

func (h *Handler) SetBookingStatus(c *fiber.Ctx) error {
	input := c.Locals("input").(model.UpdateBookingStatusInput)

	booking, err := h.Engine.AdminSetBookingStatus(c.UserContext(), h.inputId(c), input.Status)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, booking)
}

// BookingQR returns the booking pass as a PNG QR code.
func (h *Handler) BookingQR(c *fiber.Ctx) error {
	booking, err := h.Engine.GetBooking(c.UserContext(), middleware.GetCaller(c), h.inputId(c))
	if err != nil {
		return utils.HandleError(c, err)
	}

	png, err := utils.BookingPass(booking)
	if err != nil {
		return utils.HandleError(c, err)
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}
