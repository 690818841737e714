package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UnitStatus string

const (
	UnitVacant      UnitStatus = "VACANT"
	UnitOccupied    UnitStatus = "OCCUPIED"
	UnitMaintenance UnitStatus = "MAINTENANCE"
)

type Unit struct {
	Base
	PropertyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_unit_property_number,priority:1" json:"propertyId"`
	UnitNumber string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_unit_property_number,priority:2" json:"unitNumber"`

	Floor         *int             `json:"floor"`
	Bedrooms      int              `gorm:"default:1" json:"bedrooms"`
	Bathrooms     int              `gorm:"default:1" json:"bathrooms"`
	SizeSqft      *decimal.Decimal `gorm:"type:decimal(10,2)" json:"sizeSqft"`
	RentAmount    decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"rentAmount"`
	DepositAmount *decimal.Decimal `gorm:"type:decimal(10,2)" json:"depositAmount"`
	Status        UnitStatus       `gorm:"type:varchar(20);not null;default:'VACANT';index" json:"status"`
	Description   string           `gorm:"type:text" json:"description"`
	ImageKey      string           `json:"imageKey,omitempty"`

	Property  *Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
	Tenancies []Tenancy `gorm:"foreignKey:UnitID;constraint:OnDelete:CASCADE" json:"-"`
}
