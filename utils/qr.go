package utils

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"

	"parking_manager/model"
)

const passSize = 256

// PassContent is the text a gate scanner reads from a booking pass.
func PassContent(b *model.Booking) string {
	fields := []string{"code=" + b.Code}
	if b.Slot != nil {
		fields = append(fields, fmt.Sprintf("slot=%d", b.Slot.SlotNumber))
	}
	fields = append(fields,
		"vehicle="+b.VehicleNumber,
		"date="+b.BookingDate.Format("2006-01-02"),
		"time="+b.BookingTime,
	)
	return strings.Join(fields, ";")
}

// BookingPass renders the booking's pass as a PNG QR code.
func BookingPass(b *model.Booking) ([]byte, error) {
	return qrcode.Encode(PassContent(b), qrcode.Medium, passSize)
}
