package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"parking_manager/constants"
	"parking_manager/helper"
	"parking_manager/model"
	"parking_manager/store"
	"parking_manager/utils"
)

const callerKey = "caller"

// Accounts looks up the user or admin a token was issued to.
type Accounts interface {
	Users() store.UserStore
	Admins() store.AdminStore
}

// Protected requires a valid bearer token for an account that still exists
// and stores the caller in Locals. The token may also come from the
// access_token cookie.
func Protected(secret []byte, accounts Accounts) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies("access_token")

		if token == "" {
			auth := c.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if token == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.MISSING_TOKEN, nil)
		}

		claim, err := helper.ParseToken(token, secret)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, constants.INVALID_TOKEN, nil)
		}

		switch err := accountExists(c.UserContext(), accounts, claim); {
		case errors.Is(err, store.ErrNotFound):
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, notFoundMessage(claim.Role), nil)
		case err != nil:
			return utils.HandleError(c, err)
		}

		c.Locals(callerKey, model.Caller{ID: claim.Id, Role: claim.Role})
		return c.Next()
	}
}

func accountExists(ctx context.Context, accounts Accounts, claim model.TokenClaim) error {
	var err error
	switch claim.Role {
	case constants.ROLE_ADMIN:
		_, err = accounts.Admins().Get(ctx, claim.Id)
	case constants.ROLE_USER:
		_, err = accounts.Users().Get(ctx, claim.Id)
	default:
		err = store.ErrNotFound
	}
	return err
}

func notFoundMessage(role string) string {
	if role == constants.ROLE_ADMIN {
		return constants.ADMIN_NOT_FOUND
	}
	return constants.USER_NOT_FOUND
}

// AdminOnly must run after Protected.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !GetCaller(c).IsAdmin() {
			return utils.ErrorResponse(c, fiber.StatusForbidden, constants.NOT_ADMIN, nil)
		}
		return c.Next()
	}
}

// UserOnly rejects admin tokens on routes that act for a user account.
func UserOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetCaller(c).Role != constants.ROLE_USER {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied. Users only.", nil)
		}
		return c.Next()
	}
}

func GetCaller(c *fiber.Ctx) model.Caller {
	caller, _ := c.Locals(callerKey).(model.Caller)
	return caller
}
