// models/notification_log.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationLog records every overdue-rent reminder attempt.
type NotificationLog struct {
	Base
	InvoiceID    uuid.UUID `gorm:"type:uuid;index;not null" json:"invoiceId"`
	UserID       uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	Channel      string    `gorm:"type:varchar(20)" json:"channel"` // sms, whatsapp
	Message      string    `gorm:"type:text" json:"message"`
	Status       string    `gorm:"type:varchar(20)" json:"status"` // sent, failed, skipped
	ErrorMessage string    `gorm:"type:text" json:"errorMessage"`
	SentAt       time.Time `json:"sentAt"`
}
