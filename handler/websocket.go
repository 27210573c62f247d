package handler

import (
	"context"
	"encoding/json"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// UpgradeSlotFeed rejects plain HTTP requests to the live feed.
func UpgradeSlotFeed(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// SlotFeed sends the current slot list, then every slot event until the
// client goes away.
func (h *Handler) SlotFeed() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		err := h.Hub.Join(conn, func() ([]byte, error) {
			slots, err := h.Engine.ListSlots(context.Background())
			if err != nil {
				return nil, err
			}
			return json.Marshal(slots)
		})
		if err != nil {
			h.Log.WithError(err).Warn("slot feed: join")
			return
		}
		defer h.Hub.Unregister(conn)

		// Reads only detect the close; clients send nothing.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}
