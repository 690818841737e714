package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ComplaintStatus string

const (
	ComplaintSubmitted  ComplaintStatus = "SUBMITTED"
	ComplaintInProgress ComplaintStatus = "IN_PROGRESS"
	ComplaintResolved   ComplaintStatus = "RESOLVED"
	ComplaintClosed     ComplaintStatus = "CLOSED"
	ComplaintCancelled  ComplaintStatus = "CANCELLED"
)

type ComplaintPriority string

const (
	PriorityLow    ComplaintPriority = "LOW"
	PriorityMedium ComplaintPriority = "MEDIUM"
	PriorityHigh   ComplaintPriority = "HIGH"
	PriorityUrgent ComplaintPriority = "URGENT"
)

type ComplaintCategory string

const (
	CategoryPlumbing   ComplaintCategory = "PLUMBING"
	CategoryElectrical ComplaintCategory = "ELECTRICAL"
	CategoryStructural ComplaintCategory = "STRUCTURAL"
	CategoryAppliance  ComplaintCategory = "APPLIANCE"
	CategoryCleaning   ComplaintCategory = "CLEANING"
	CategorySecurity   ComplaintCategory = "SECURITY"
	CategoryOther      ComplaintCategory = "OTHER"
)

type Complaint struct {
	Base
	TenancyID uuid.UUID `gorm:"type:uuid;index;not null" json:"tenancyId"`
	UnitID    uuid.UUID `gorm:"type:uuid;index;not null" json:"unitId"`

	Title       string            `gorm:"type:varchar(200);not null" json:"title"`
	Description string            `gorm:"type:text;not null" json:"description"`
	Category    ComplaintCategory `gorm:"type:varchar(20);not null;default:'OTHER'" json:"category"`
	Priority    ComplaintPriority `gorm:"type:varchar(20);not null;default:'MEDIUM';index" json:"priority"`
	Status      ComplaintStatus   `gorm:"type:varchar(20);not null;default:'SUBMITTED';index" json:"status"`

	AssignedToID *uuid.UUID `gorm:"type:uuid;index" json:"assignedToId"`
	AssignedTo   *User      `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL" json:"assignedTo,omitempty"`

	EstimatedCost *decimal.Decimal `gorm:"type:decimal(10,2)" json:"estimatedCost"`
	ActualCost    *decimal.Decimal `gorm:"type:decimal(10,2)" json:"actualCost"`

	SubmittedAt time.Time  `gorm:"not null" json:"submittedAt"`
	StartedAt   *time.Time `json:"startedAt"`
	ResolvedAt  *time.Time `json:"resolvedAt"`
	ClosedAt    *time.Time `json:"closedAt"`

	ResolutionNotes string `gorm:"type:text" json:"resolutionNotes"`
	TechnicianName  string `gorm:"type:varchar(200)" json:"technicianName"`
	TechnicianPhone string `gorm:"type:varchar(15)" json:"technicianPhone"`

	Tenancy *Tenancy         `gorm:"foreignKey:TenancyID;constraint:OnDelete:CASCADE" json:"tenancy,omitempty"`
	Unit    *Unit            `gorm:"foreignKey:UnitID;constraint:OnDelete:CASCADE" json:"unit,omitempty"`
	Images  []ComplaintImage `gorm:"foreignKey:ComplaintID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

type ComplaintImage struct {
	Base
	ComplaintID uuid.UUID `gorm:"type:uuid;index;not null" json:"complaintId"`
	ImageKey    string    `gorm:"not null" json:"imageKey"`
	Description string    `gorm:"type:varchar(200)" json:"description"`

	URL string `gorm:"-" json:"url,omitempty"`
}
