package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/copier"

	"parking_manager/apperror"
	"parking_manager/constants"
	"parking_manager/helper"
	"parking_manager/middleware"
	"parking_manager/model"
	"parking_manager/store"
	"parking_manager/utils"
)

func (h *Handler) LoginAdmin(c *fiber.Ctx) error {
	input := c.Locals("input").(model.LoginInput)

	admin, err := h.Store.Admins().GetByEmail(c.UserContext(), strings.TrimSpace(input.Email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return utils.HandleError(c, err)
	}
	if admin == nil || !helper.CheckPasswordHash(input.Password, admin.Password) {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.INVALID_EMAIL_OR_PASSWORD, nil)
	}

	token, err := h.issueToken(c, admin.ID, constants.ROLE_ADMIN)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, AuthResponse{
		ID: admin.ID, Name: admin.Name, Email: admin.Email, Token: token,
	})
}

func (h *Handler) GetAdminProfile(c *fiber.Ctx) error {
	admin, err := h.Store.Admins().Get(c.UserContext(), middleware.GetCaller(c).ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, constants.ADMIN_NOT_FOUND, nil)
		}
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, admin)
}

func (h *Handler) UpdateAdminProfile(c *fiber.Ctx) error {
	input := c.Locals("input").(model.UpdateProfileInput)

	admin, err := h.Store.Admins().Get(c.UserContext(), middleware.GetCaller(c).ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, constants.ADMIN_NOT_FOUND, nil)
		}
		return utils.HandleError(c, err)
	}

	password := input.Password
	input.Password = ""
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := copier.CopyWithOption(admin, &input, copier.Option{IgnoreEmpty: true}); err != nil {
		return utils.HandleError(c, err)
	}
	if password != "" {
		if admin.Password, err = helper.HashPassword(password); err != nil {
			return utils.HandleError(c, err)
		}
	}

	if err := h.Store.Admins().Save(c.UserContext(), admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return utils.HandleError(c, apperror.Conflict(constants.EMAIL_ALREADY_EXISTS))
		}
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, admin)
}

func (h *Handler) GetUsers(c *fiber.Ctx) error {
	users, err := h.Store.Users().List(c.UserContext())
	if err != nil {
		return utils.HandleError(c, err)
	}
	if users == nil {
		users = []model.User{}
	}
	return utils.SuccessResponse(c, fiber.StatusOK, users)
}

func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	if err := h.Engine.RemoveUser(c.UserContext(), h.inputId(c)); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "User deleted successfully")
}

func (h *Handler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.Engine.Dashboard(c.UserContext())
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, stats)
}

func (h *Handler) Reports(c *fiber.Ctx) error {
	report, err := h.Engine.Report(c.UserContext(), nil)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, report)
}

// ReportsByDate requires startDate and endDate; the end day is inclusive.
func (h *Handler) ReportsByDate(c *fiber.Ctx) error {
	startDate, endDate := c.Query("startDate"), c.Query("endDate")
	if startDate == "" || endDate == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.DATE_RANGE_REQUIRED, nil)
	}
	rng, err := utils.ParseReportRange(startDate, endDate)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.INVALID_INPUT, err)
	}

	report, err := h.Engine.Report(c.UserContext(), &rng)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, report)
}

func (h *Handler) Sweep(c *fiber.Ctx) error {
	result, err := h.Engine.SweepExpiredBookings(c.UserContext(), time.Now())
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, result)
}
