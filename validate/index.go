package validate

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"parking_manager/constants"
	"parking_manager/model"
	"parking_manager/utils"
)

var validate = validator.New()

// GetById parses a positive numeric route param into Locals("inputId").
func GetById(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params(key), 10, 64)
		if err != nil || id == 0 {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.INVALID_ID, nil)
		}
		c.Locals("inputId", uint(id))
		return c.Next()
	}
}

// body parses and validates the JSON body into T and stores it in
// Locals("input").
func body[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input T
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.INVALID_INPUT, err)
		}
		if err := validate.Struct(input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, constants.ALL_FIELDS_REQUIRED, err)
		}
		c.Locals("input", input)
		return c.Next()
	}
}

func CreateBooking() fiber.Handler       { return body[model.CreateBookingInput]() }
func UpdateBookingStatus() fiber.Handler { return body[model.UpdateBookingStatusInput]() }
func CreateSlot() fiber.Handler          { return body[model.CreateSlotInput]() }
func RegisterUser() fiber.Handler        { return body[model.RegisterUserInput]() }
func Login() fiber.Handler               { return body[model.LoginInput]() }
func UpdateProfile() fiber.Handler       { return body[model.UpdateProfileInput]() }
