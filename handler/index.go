package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"parking_manager/config"
	"parking_manager/engine"
	"parking_manager/helper"
	"parking_manager/model"
	"parking_manager/store"
	"parking_manager/utils"
)

// Handler holds the dependencies shared by every route.
type Handler struct {
	Engine   *engine.Engine
	Store    store.Store
	Settings *config.Settings
	Mailer   *utils.Mailer
	Hub      *helper.SlotHub
	Redis    *redis.Client
	Log      logrus.FieldLogger
}

func (h *Handler) issueToken(c *fiber.Ctx, id uint, role string) (string, error) {
	token, err := helper.GenerateToken(model.TokenClaim{Id: id, Role: role}, []byte(h.Settings.JWTSecret), h.Settings.TokenTTL)
	if err != nil {
		return "", err
	}
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    token,
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
		MaxAge:   int(h.Settings.TokenTTL.Seconds()),
	})
	return token, nil
}

func (h *Handler) inputId(c *fiber.Ctx) uint {
	id, _ := c.Locals("inputId").(uint)
	return id
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
