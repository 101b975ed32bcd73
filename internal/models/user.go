package models

import "time"

type UserRole string

const (
	RoleAdmin       UserRole = "admin"       // her şey
	RoleManager     UserRole = "manager"     // onay / ret / düzeltme
	RoleFinance     UserRole = "finance"     // ödeme
	RoleSalesperson UserRole = "salesperson" // sadece kendi komisyonları
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleFinance, RoleSalesperson:
		return true
	}
	return false
}

type User struct {
	ID           uint     `gorm:"primaryKey"`
	Name         string   `gorm:"size:100;not null"`
	Email        string   `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	Active       bool     `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
