package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleCustomer   = "customer"
	RoleBrand      = "brand"
	RoleInfluencer = "influencer"
	RoleAdmin      = "admin"
)

type User struct {
	ID        uuid.UUID
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
