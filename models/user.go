package models

import (
	"strings"
)

type Role string

const (
	RoleLandlord  Role = "LANDLORD"
	RoleCaretaker Role = "CARETAKER"
	RoleTenant    Role = "TENANT"
	RoleAdmin     Role = "ADMIN"
)

type User struct {
	Base
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Phone      string `gorm:"type:varchar(15)" json:"phone"`
	Address    string `json:"address"`
	NationalID string `gorm:"type:varchar(50)" json:"nationalId"`

	Role     Role `gorm:"type:varchar(20);not null;default:'TENANT'" json:"role"`
	IsStaff  bool `gorm:"default:false" json:"isStaff"`
	IsActive bool `gorm:"default:true" json:"isActive"`
}

func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

func (u *User) IsLandlord() bool  { return u.Role == RoleLandlord }
func (u *User) IsCaretaker() bool { return u.Role == RoleCaretaker }
func (u *User) IsTenant() bool    { return u.Role == RoleTenant }

// IsAdministrator reports whether the user has unrestricted back-office access.
func (u *User) IsAdministrator() bool { return u.IsStaff || u.Role == RoleAdmin }
