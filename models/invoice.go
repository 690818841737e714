package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "PENDING"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceOverdue   InvoiceStatus = "OVERDUE"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

type Invoice struct {
	Base
	TenancyID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_tenancy_month,priority:1" json:"tenancyId"`
	InvoiceNumber string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"invoiceNumber"`
	Month         time.Time `gorm:"not null;uniqueIndex:idx_invoice_tenancy_month,priority:2" json:"month"`

	RentAmount              decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"rentAmount"`
	WaterBill               decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"waterBill"`
	ElectricityBill         decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"electricityBill"`
	OtherCharges            decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"otherCharges"`
	OtherChargesDescription string          `gorm:"type:text" json:"otherChargesDescription"`

	// Derived by the billing service, never written by clients.
	Subtotal    decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"subtotal"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"totalAmount"`
	AmountPaid  decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"amountPaid"`
	Balance     decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"balance"`

	Status  InvoiceStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	DueDate time.Time     `gorm:"not null" json:"dueDate"`
	Notes   string        `gorm:"type:text" json:"notes"`

	Tenancy  *Tenancy  `gorm:"foreignKey:TenancyID" json:"tenancy,omitempty"`
	Payments []Payment `gorm:"foreignKey:InvoiceID;constraint:OnDelete:SET NULL" json:"payments,omitempty"`
}

// InvoiceSequence is the per-month counter behind invoice numbers.
type InvoiceSequence struct {
	Period    string `gorm:"type:varchar(6);primary_key"`
	LastValue int    `gorm:"not null;default:0"`
}
