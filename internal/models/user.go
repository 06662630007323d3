package models

import (
	"time"

	"gorm.io/gorm"
)

// Role decides which side of the marketplace a user acts on.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleBaker    Role = "baker"
)

// User represents a customer or a baker.
type User struct {
	ID         string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name       string         `json:"name" gorm:"type:varchar(100)" validate:"required,min=2,max=100"`
	Email      string         `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password   string         `json:"-" gorm:"type:varchar(255)"`
	Role       Role           `json:"role" gorm:"index;type:varchar(16);not null" validate:"required,oneof=customer baker"`
	BakeryName string         `json:"bakery_name,omitempty" gorm:"type:varchar(100)"`
	Phone      string         `json:"phone,omitempty" gorm:"type:varchar(32)"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// CustomerSummary is the part of a user a baker sees next to an order.
type CustomerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Summary returns the customer-facing projection of u.
func (u User) Summary() CustomerSummary {
	return CustomerSummary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}

// BakerSummary is the part of a baker shown to the customer of an order.
type BakerSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	BakeryName string `json:"bakery_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// BakerSummary returns the baker-facing projection of u.
func (u User) BakerSummary() BakerSummary {
	return BakerSummary{ID: u.ID, Name: u.Name, BakeryName: u.BakeryName, Phone: u.Phone}
}
