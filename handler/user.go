package handler

import (
	"errors"
	"strings"

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

type AuthResponse struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile,omitempty"`
	Token  string `json:"token,omitempty"`
}

func (h *Handler) RegisterUser(c *fiber.Ctx) error {
	input := c.Locals("input").(model.RegisterUserInput)

	var user model.User
	if err := copier.Copy(&user, &input); err != nil {
		return utils.HandleError(c, err)
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	hash, err := helper.HashPassword(input.Password)
	if err != nil {
		return utils.HandleError(c, err)
	}
	user.Password = hash

	if err := h.Store.Users().Create(c.UserContext(), &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return utils.HandleError(c, apperror.Conflict(constants.EMAIL_ALREADY_EXISTS))
		}
		return utils.HandleError(c, err)
	}

	token, err := h.issueToken(c, user.ID, constants.ROLE_USER)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, AuthResponse{
		ID: user.ID, Name: user.Name, Email: user.Email, Mobile: user.Mobile, Token: token,
	})
}

func (h *Handler) LoginUser(c *fiber.Ctx) error {
	input := c.Locals("input").(model.LoginInput)

	user, err := h.Store.Users().GetByEmail(c.UserContext(), strings.TrimSpace(input.Email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return utils.HandleError(c, err)
	}
	if user == nil || !helper.CheckPasswordHash(input.Password, user.Password) {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.INVALID_EMAIL_OR_PASSWORD, nil)
	}

	token, err := h.issueToken(c, user.ID, constants.ROLE_USER)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, AuthResponse{
		ID: user.ID, Name: user.Name, Email: user.Email, Mobile: user.Mobile, Token: token,
	})
}

func (h *Handler) GetUserProfile(c *fiber.Ctx) error {
	user, err := h.Store.Users().Get(c.UserContext(), middleware.GetCaller(c).ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, constants.USER_NOT_FOUND, nil)
		}
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, user)
}

// UpdateUserProfile applies only the fields present in the request.
func (h *Handler) UpdateUserProfile(c *fiber.Ctx) error {
	input := c.Locals("input").(model.UpdateProfileInput)

	user, err := h.Store.Users().Get(c.UserContext(), middleware.GetCaller(c).ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, constants.USER_NOT_FOUND, nil)
		}
		return utils.HandleError(c, err)
	}

	password := input.Password
	input.Password = ""
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := copier.CopyWithOption(user, &input, copier.Option{IgnoreEmpty: true}); err != nil {
		return utils.HandleError(c, err)
	}
	if password != "" {
		if user.Password, err = helper.HashPassword(password); err != nil {
			return utils.HandleError(c, err)
		}
	}

	if err := h.Store.Users().Save(c.UserContext(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return utils.HandleError(c, apperror.Conflict(constants.EMAIL_ALREADY_EXISTS))
		}
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, user)
}
