package domain

import "time"

// Role distinguishes riders from drivers.
type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

// Account is a registered user.
type Account struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}
