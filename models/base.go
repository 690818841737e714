package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the identity and timestamps shared by every record.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Initialize UUID before creating
func (b *Base) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Property{},
		&Unit{},
		&Tenancy{},
		&TenantDocument{},
		&InvoiceSequence{},
		&Invoice{},
		&Payment{},
		&Receipt{},
		&Complaint{},
		&ComplaintImage{},
		&NotificationLog{},
	}
}
