package handler

import (
	"github.com/gofiber/fiber/v2"

	"parking_manager/model"
	"parking_manager/utils"
)

func (h *Handler) GetSlots(c *fiber.Ctx) error {
	slots, err := h.Engine.ListSlots(c.UserContext())
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, slots)
}

func (h *Handler) AddSlot(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateSlotInput)

	slot, err := h.Engine.AddSlot(c.UserContext(), input.SlotNumber, input.Status)
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, slot)
}

func (h *Handler) DeleteSlot(c *fiber.Ctx) error {
	if err := h.Engine.DeleteSlot(c.UserContext(), h.inputId(c)); err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Slot deleted")
}

func (h *Handler) ToggleSlot(c *fiber.Ctx) error {
	slot, err := h.Engine.ToggleSlotStatus(c.UserContext(), h.inputId(c))
	if err != nil {
		return utils.HandleError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, slot)
}
