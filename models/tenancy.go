package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TenancyStatus string

const (
	TenancyActive    TenancyStatus = "ACTIVE"
	TenancyVacated   TenancyStatus = "VACATED"
	TenancySuspended TenancyStatus = "SUSPENDED"
)

// Tenancy binds a tenant identity to a unit. The HTTP surface calls it a "tenant".
type Tenancy struct {
	Base
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	UnitID uuid.UUID `gorm:"type:uuid;index;not null" json:"unitId"`

	MoveInDate          time.Time       `gorm:"not null" json:"moveInDate"`
	MoveOutDate         *time.Time      `json:"moveOutDate"`
	LeaseDurationMonths int             `gorm:"default:12" json:"leaseDurationMonths"`
	DepositPaid         decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"depositPaid"`
	Status              TenancyStatus   `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	Notes               string          `gorm:"type:text" json:"notes"`

	EmergencyContactName  string `gorm:"type:varchar(200)" json:"emergencyContactName"`
	EmergencyContactPhone string `gorm:"type:varchar(15)" json:"emergencyContactPhone"`

	User      *User            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Unit      *Unit            `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	Documents []TenantDocument `gorm:"foreignKey:TenancyID;constraint:OnDelete:CASCADE" json:"documents,omitempty"`
	Invoices  []Invoice        `gorm:"foreignKey:TenancyID;constraint:OnDelete:CASCADE" json:"-"`
	Payments  []Payment        `gorm:"foreignKey:TenancyID;constraint:OnDelete:CASCADE" json:"-"`
}

type DocumentType string

const (
	DocumentNationalID DocumentType = "ID"
	DocumentPassport   DocumentType = "PASSPORT"
	DocumentContract   DocumentType = "CONTRACT"
	DocumentOther      DocumentType = "OTHER"
)

// TenantDocument references a file held in the blob store.
type TenantDocument struct {
	Base
	TenancyID    uuid.UUID    `gorm:"type:uuid;index;not null" json:"tenancyId"`
	DocumentType DocumentType `gorm:"type:varchar(20);not null" json:"documentType"`
	FileKey      string       `gorm:"not null" json:"fileKey"`
	Description  string       `gorm:"type:varchar(200)" json:"description"`

	URL string `gorm:"-" json:"url,omitempty"`
}
