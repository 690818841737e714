package models

import (
	"github.com/google/uuid"
)

type PropertyType string

const (
	PropertyApartment  PropertyType = "APARTMENT"
	PropertyHouse      PropertyType = "HOUSE"
	PropertyCommercial PropertyType = "COMMERCIAL"
	PropertyMixed      PropertyType = "MIXED"
)

type Property struct {
	Base
	Name         string       `gorm:"type:varchar(200);not null" json:"name"`
	PropertyType PropertyType `gorm:"type:varchar(20);not null;default:'APARTMENT'" json:"propertyType"`
	Address      string       `gorm:"type:text;not null" json:"address"`
	City         string       `gorm:"type:varchar(100);not null" json:"city"`
	Description  string       `gorm:"type:text" json:"description"`
	ImageKey     string       `json:"imageKey,omitempty"`

	OwnerID uuid.UUID `gorm:"type:uuid;index;not null" json:"ownerId"`
	Owner   *User     `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`

	// TotalUnits is maintained by the portfolio service on every unit add, move and remove.
	TotalUnits int `gorm:"default:0" json:"totalUnits"`

	Units []Unit `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE" json:"units,omitempty"`
}
