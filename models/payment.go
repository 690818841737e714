package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMobileMoney  PaymentMethod = "MOBILE_MONEY"
	PaymentCheque       PaymentMethod = "CHEQUE"
	PaymentCard         PaymentMethod = "CARD"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

type Payment struct {
	Base
	TenancyID uuid.UUID  `gorm:"type:uuid;index;not null" json:"tenancyId"`
	InvoiceID *uuid.UUID `gorm:"type:uuid;index" json:"invoiceId"`

	Amount               decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentMethod        PaymentMethod   `gorm:"type:varchar(20);not null" json:"paymentMethod"`
	PaymentDate          time.Time       `gorm:"not null;index" json:"paymentDate"`
	TransactionReference string          `gorm:"type:varchar(100)" json:"transactionReference"`
	Status               PaymentStatus   `gorm:"type:varchar(20);not null;default:'COMPLETED';index" json:"status"`
	Notes                string          `gorm:"type:text" json:"notes"`
	RecordedByID         *uuid.UUID      `gorm:"type:uuid" json:"recordedById"`

	Tenancy *Tenancy `gorm:"foreignKey:TenancyID" json:"tenancy,omitempty"`
	Invoice *Invoice `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	Receipt *Receipt `gorm:"foreignKey:PaymentID;constraint:OnDelete:CASCADE" json:"receipt,omitempty"`
}

// Receipt is issued exactly once per payment and never edited.
type Receipt struct {
	Base
	PaymentID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"paymentId"`
	ReceiptNumber string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"receiptNumber"`

	Payment *Payment `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
}
