package models

import (
	"time"
)

// Client is an API consumer allowed to submit table images.
type Client struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time `gorm:"index"`
	Name         string     `gorm:"size:255;not null;unique"`
	HashedSecret []byte     `gorm:"not null"`
	RoleID       *uint      `gorm:"index"`
	Role         Role       `gorm:"foreignKey:RoleID;references:ID"`
}

// RoleName returns the client's role, defaulting to RoleClient.
func (c Client) RoleName() string {
	if c.Role.Name == "" {
		return RoleClient
	}
	return c.Role.Name
}
