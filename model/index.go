package model

import (
	"parking_manager/constants"
	"time"
)

type DTO struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TokenClaim struct {
	Id   uint   `json:"id"`
	Role string `json:"role"`
}

// Caller is the identity attached to a request by the auth middleware.
type Caller struct {
	ID   uint
	Role string
}

func (c Caller) IsAdmin() bool { return c.Role == constants.ROLE_ADMIN }
