package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"parking_manager/apperror"
	"parking_manager/constants"
	"parking_manager/logger"
)

func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	var errMsg interface{}
	if err != nil {
		errMsg = err.Error()
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   errMsg,
	})
}

func SuccessResponse(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}

// HandleError writes err using its application kind. Internal failures are
// logged and answered with a generic message only.
func HandleError(c *fiber.Ctx, err error) error {
	kind := apperror.KindOf(err)
	status := apperror.HTTPStatus(kind)

	if kind == apperror.KindInternal {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("request failed")
		return ErrorResponse(c, status, constants.ERROR_INTERNAL_ERROR, nil)
	}

	var appErr *apperror.Error
	message := err.Error()
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	return ErrorResponse(c, status, message, nil)
}

func Ptr[T any](v T) *T {
	return &v
}
