package services

import (
	"context"
	"fmt"
	"time"

	"elms-backend/models"
	"elms-backend/scope"
	"elms-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentInput records money received. Zero PaymentDate means today and an empty
// Status means COMPLETED.
type PaymentInput struct {
	TenancyID            uuid.UUID
	InvoiceID            *uuid.UUID
	Amount               decimal.Decimal
	PaymentMethod        models.PaymentMethod
	PaymentDate          time.Time
	TransactionReference string
	Status               models.PaymentStatus
	Notes                string
}

// PaymentChanges is a partial update. An InvoiceID of uuid.Nil unlinks the payment.
type PaymentChanges struct {
	InvoiceID            *uuid.UUID
	Amount               *decimal.Decimal
	PaymentMethod        *models.PaymentMethod
	PaymentDate          *time.Time
	TransactionReference *string
	Status               *models.PaymentStatus
	Notes                *string
}

type PaymentFilter struct {
	Status    models.PaymentStatus
	TenancyID *uuid.UUID
	From      *time.Time
	To        *time.Time
}

type PaymentStats struct {
	TotalReceived     decimal.Decimal `json:"total_received"`
	MonthlyCollection decimal.Decimal `json:"monthly_collection"`
	TotalPayments     int64           `json:"total_payments"`
	CompletedCount    int64           `json:"completed_count"`
	PendingCount      int64           `json:"pending_count"`
}

// ReceiptNumber is derived from the issue date and the payment id, so it is unique per payment.
func ReceiptNumber(issued time.Time, paymentID uuid.UUID) string {
	return fmt.Sprintf("RCP-%s-%s", issued.Format("20060102"), paymentID)
}

// RecordPayment stores the payment, issues its receipt and reconciles the linked
// invoice, all in one transaction.
func (s *BillingService) RecordPayment(ctx context.Context, actor *models.User, in PaymentInput) (*models.Payment, error) {
	if !canManage(actor) {
		return nil, utils.NewValidationError("tenancyId", "only landlords and staff can record payments")
	}
	if !in.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "must be greater than zero")
	}

	policy := scope.For(actor)
	payment := models.Payment{
		TenancyID:            in.TenancyID,
		InvoiceID:            in.InvoiceID,
		Amount:               in.Amount,
		PaymentMethod:        in.PaymentMethod,
		PaymentDate:          in.PaymentDate,
		TransactionReference: in.TransactionReference,
		Status:               in.Status,
		Notes:                in.Notes,
		RecordedByID:         &actor.ID,
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = s.Clock.today()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentCompleted
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenancy models.Tenancy
		if err := tx.Scopes(policy.Scope(scope.Tenancies)).
			First(&tenancy, "tenancies.id = ?", in.TenancyID).Error; err != nil {
			return notFoundAs(err, "tenancyId", "tenancy not found")
		}
		if err := checkInvoiceLink(tx, payment.InvoiceID, tenancy.ID); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(&payment).Error; err != nil {
			return err
		}

		receipt := models.Receipt{
			PaymentID:     payment.ID,
			ReceiptNumber: ReceiptNumber(s.Clock.now(), payment.ID),
		}
		if err := tx.Create(&receipt).Error; err != nil {
			return fmt.Errorf("issue receipt: %w", err)
		}
		payment.Receipt = &receipt

		if payment.InvoiceID != nil {
			invoice, err := s.ReconcileInvoice(tx, *payment.InvoiceID)
			if err != nil {
				return err
			}
			payment.Invoice = invoice
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("payment", payment.ID.String()),
		zap.String("receipt", payment.Receipt.ReceiptNumber),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)
	return &payment, nil
}

// UpdatePayment saves the changes and reconciles both the previously and the newly
// linked invoice.
func (s *BillingService) UpdatePayment(ctx context.Context, actor *models.User, id uuid.UUID, ch PaymentChanges) (*models.Payment, error) {
	if !canManage(actor) {
		return nil, utils.NewValidationError("id", "only landlords and staff can change payments")
	}
	if ch.Amount != nil && !ch.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "must be greater than zero")
	}

	policy := scope.For(actor)
	var payment models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(policy.Scope(scope.Payments)).
			First(&payment, "payments.id = ?", id).Error; err != nil {
			return err
		}
		previousInvoice := payment.InvoiceID

		if ch.InvoiceID != nil {
			if *ch.InvoiceID == uuid.Nil {
				payment.InvoiceID = nil
			} else {
				invoiceID := *ch.InvoiceID
				payment.InvoiceID = &invoiceID
			}
			if err := checkInvoiceLink(tx, payment.InvoiceID, payment.TenancyID); err != nil {
				return err
			}
		}
		if ch.Amount != nil {
			payment.Amount = *ch.Amount
		}
		if ch.PaymentMethod != nil {
			payment.PaymentMethod = *ch.PaymentMethod
		}
		if ch.PaymentDate != nil {
			payment.PaymentDate = *ch.PaymentDate
		}
		if ch.TransactionReference != nil {
			payment.TransactionReference = *ch.TransactionReference
		}
		if ch.Status != nil {
			payment.Status = *ch.Status
		}
		if ch.Notes != nil {
			payment.Notes = *ch.Notes
		}

		if err := tx.Omit(clause.Associations).Save(&payment).Error; err != nil {
			return err
		}
		return s.reconcileLinked(tx, previousInvoice, payment.InvoiceID)
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// DeletePayment removes the payment with its receipt and reconciles the invoice it paid.
func (s *BillingService) DeletePayment(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if !canManage(actor) {
		return utils.NewValidationError("id", "only landlords and staff can delete payments")
	}
	policy := scope.For(actor)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Scopes(policy.Scope(scope.Payments)).
			First(&payment, "payments.id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("payment_id = ?", payment.ID).Delete(&models.Receipt{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&payment).Error; err != nil {
			return err
		}
		return s.reconcileLinked(tx, payment.InvoiceID, nil)
	})
}

func (s *BillingService) reconcileLinked(tx *gorm.DB, ids ...*uuid.UUID) error {
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if id == nil || seen[*id] {
			continue
		}
		seen[*id] = true
		if _, err := s.ReconcileInvoice(tx, *id); err != nil {
			return err
		}
	}
	return nil
}

func (s *BillingService) ListPayments(ctx context.Context, policy scope.Policy, filter PaymentFilter) ([]models.Payment, error) {
	q := s.db.WithContext(ctx).Scopes(policy.Scope(scope.Payments)).Preload("Receipt")
	if filter.Status != "" {
		q = q.Where("payments.status = ?", filter.Status)
	}
	if filter.TenancyID != nil {
		q = q.Where("payments.tenancy_id = ?", *filter.TenancyID)
	}
	if filter.From != nil {
		q = q.Where("payments.payment_date >= ?", utils.BeginningOfDay(*filter.From))
	}
	if filter.To != nil {
		q = q.Where("payments.payment_date < ?", utils.BeginningOfDay(*filter.To).AddDate(0, 0, 1))
	}

	var payments []models.Payment
	if err := q.Order("payments.payment_date DESC, payments.created_at DESC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// RecentPayments lists payments dated within the last 30 days.
func (s *BillingService) RecentPayments(ctx context.Context, policy scope.Policy) ([]models.Payment, error) {
	from := s.Clock.today().AddDate(0, 0, -30)
	return s.ListPayments(ctx, policy, PaymentFilter{From: &from})
}

func (s *BillingService) GetPayment(ctx context.Context, policy scope.Policy, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).
		Scopes(policy.Scope(scope.Payments)).
		Preload("Receipt").
		Preload("Invoice").
		First(&payment, "payments.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *BillingService) PaymentStatistics(ctx context.Context, policy scope.Policy) (*PaymentStats, error) {
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Payment{}).Scopes(policy.Scope(scope.Payments))
	}
	monthStart := utils.BeginningOfMonth(s.Clock.today())

	var sums struct {
		Received decimal.Decimal
		Monthly  decimal.Decimal
	}
	if err := base().Select(
		"COALESCE(SUM(payments.amount), 0) AS received, "+
			"COALESCE(SUM(CASE WHEN payments.payment_date >= ? THEN payments.amount ELSE 0 END), 0) AS monthly",
		monthStart,
	).Where("payments.status = ?", models.PaymentCompleted).Scan(&sums).Error; err != nil {
		return nil, err
	}

	stats := &PaymentStats{TotalReceived: sums.Received, MonthlyCollection: sums.Monthly}
	if err := base().Count(&stats.TotalPayments).Error; err != nil {
		return nil, err
	}
	if err := base().Where("payments.status = ?", models.PaymentCompleted).Count(&stats.CompletedCount).Error; err != nil {
		return nil, err
	}
	if err := base().Where("payments.status = ?", models.PaymentPending).Count(&stats.PendingCount).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *BillingService) ListReceipts(ctx context.Context, policy scope.Policy) ([]models.Receipt, error) {
	var receipts []models.Receipt
	if err := s.db.WithContext(ctx).
		Scopes(policy.Scope(scope.Receipts)).
		Preload("Payment").
		Order("receipts.created_at DESC").
		Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

func (s *BillingService) GetReceipt(ctx context.Context, policy scope.Policy, id uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := s.db.WithContext(ctx).
		Scopes(policy.Scope(scope.Receipts)).
		Preload("Payment").
		First(&receipt, "receipts.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

func checkInvoiceLink(tx *gorm.DB, invoiceID *uuid.UUID, tenancyID uuid.UUID) error {
	if invoiceID == nil {
		return nil
	}
	var invoice models.Invoice
	if err := tx.Select("id", "tenancy_id").First(&invoice, "id = ?", *invoiceID).Error; err != nil {
		return notFoundAs(err, "invoiceId", "invoice not found")
	}
	if invoice.TenancyID != tenancyID {
		return utils.NewValidationError("invoiceId", "invoice belongs to a different tenancy")
	}
	return nil
}
