// services/billing.go
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

type BillingService struct {
	db     *gorm.DB
	logger *zap.Logger
	Clock  Clock
}

func NewBillingService(db *gorm.DB, logger *zap.Logger) *BillingService {
	return &BillingService{db: db, logger: logger.Named("billing")}
}

// InvoiceInput carries the charges of a new invoice. A nil RentAmount takes the unit's rent.
type InvoiceInput struct {
	TenancyID               uuid.UUID
	Month                   time.Time
	RentAmount              *decimal.Decimal
	WaterBill               decimal.Decimal
	ElectricityBill         decimal.Decimal
	OtherCharges            decimal.Decimal
	OtherChargesDescription string
	DueDate                 time.Time
	Notes                   string
}

// InvoiceChanges is a partial update. Status accepts only PENDING or CANCELLED.
type InvoiceChanges struct {
	Month                   *time.Time
	RentAmount              *decimal.Decimal
	WaterBill               *decimal.Decimal
	ElectricityBill         *decimal.Decimal
	OtherCharges            *decimal.Decimal
	OtherChargesDescription *string
	DueDate                 *time.Time
	Status                  *models.InvoiceStatus
	Notes                   *string
}

type InvoiceFilter struct {
	Status    models.InvoiceStatus
	TenancyID *uuid.UUID
	From      *time.Time
	To        *time.Time
}

// InvoiceStats are literal sums and counts over the caller's visible invoices.
type InvoiceStats struct {
	TotalInvoiced    decimal.Decimal `json:"total_invoiced"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	PendingCount     int64           `json:"pending_count"`
	OverdueCount     int64           `json:"overdue_count"`
	PaidCount        int64           `json:"paid_count"`
}

// NextInvoiceNumber takes the next value of the month's counter and formats it as
// INV-YYYYMM-NNNN. It must run inside the transaction that inserts the invoice.
func NextInvoiceNumber(tx *gorm.DB, at time.Time) (string, error) {
	period := at.Format("200601")

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "period"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_value": gorm.Expr("invoice_sequences.last_value + 1"),
		}),
	}).Create(&models.InvoiceSequence{Period: period, LastValue: 1}).Error
	if err != nil {
		return "", fmt.Errorf("advance invoice sequence: %w", err)
	}

	var seq models.InvoiceSequence
	if err := tx.First(&seq, "period = ?", period).Error; err != nil {
		return "", fmt.Errorf("read invoice sequence: %w", err)
	}
	return fmt.Sprintf("INV-%s-%04d", period, seq.LastValue), nil
}

// RecomputeInvoiceTotals derives subtotal, total, balance and status from the charges
// and AmountPaid. CANCELLED invoices keep their status.
func RecomputeInvoiceTotals(inv *models.Invoice, today time.Time) {
	inv.Subtotal = inv.RentAmount.Add(inv.WaterBill).Add(inv.ElectricityBill).Add(inv.OtherCharges)
	inv.TotalAmount = inv.Subtotal
	inv.Balance = inv.TotalAmount.Sub(inv.AmountPaid)

	switch {
	case inv.Status == models.InvoiceCancelled:
	case inv.AmountPaid.GreaterThanOrEqual(inv.TotalAmount):
		inv.Status = models.InvoicePaid
	case inv.Status == models.InvoicePending &&
		utils.BeginningOfDay(inv.DueDate).Before(utils.BeginningOfDay(today)):
		inv.Status = models.InvoiceOverdue
	}
}

// ReconcileInvoice sets AmountPaid to the sum of the invoice's COMPLETED payments and
// re-derives everything else. Running it twice changes nothing.
func (s *BillingService) ReconcileInvoice(tx *gorm.DB, invoiceID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, "id = ?", invoiceID).Error; err != nil {
		return nil, err
	}

	var paid struct {
		Total decimal.Decimal
	}
	if err := tx.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("invoice_id = ? AND status = ?", invoiceID, models.PaymentCompleted).
		Scan(&paid).Error; err != nil {
		return nil, fmt.Errorf("sum payments: %w", err)
	}

	previous := invoice.Status
	invoice.AmountPaid = paid.Total
	RecomputeInvoiceTotals(&invoice, s.Clock.today())
	if err := tx.Omit(clause.Associations).Save(&invoice).Error; err != nil {
		return nil, err
	}

	if previous != invoice.Status {
		s.logger.Info("invoice status changed",
			zap.String("invoice", invoice.InvoiceNumber),
			zap.String("from", string(previous)),
			zap.String("to", string(invoice.Status)),
		)
	}
	return &invoice, nil
}

func (s *BillingService) ListInvoices(ctx context.Context, policy scope.Policy, filter InvoiceFilter) ([]models.Invoice, error) {
	q := s.db.WithContext(ctx).Scopes(policy.Scope(scope.Invoices))
	if filter.Status != "" {
		q = q.Where("invoices.status = ?", filter.Status)
	}
	if filter.TenancyID != nil {
		q = q.Where("invoices.tenancy_id = ?", *filter.TenancyID)
	}
	if filter.From != nil {
		q = q.Where("invoices.month >= ?", utils.BeginningOfMonth(*filter.From))
	}
	if filter.To != nil {
		q = q.Where("invoices.month <= ?", utils.BeginningOfMonth(*filter.To))
	}

	var invoices []models.Invoice
	if err := q.Order("invoices.month DESC, invoices.created_at DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *BillingService) GetInvoice(ctx context.Context, policy scope.Policy, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.db.WithContext(ctx).
		Scopes(policy.Scope(scope.Invoices)).
		Preload("Payments").
		First(&invoice, "invoices.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// CreateInvoice numbers and totals a new invoice in one transaction.
func (s *BillingService) CreateInvoice(ctx context.Context, actor *models.User, in InvoiceInput) (*models.Invoice, error) {
	if !canManage(actor) {
		return nil, utils.NewValidationError("tenancyId", "only landlords and staff can issue invoices")
	}
	verr := &utils.ValidationError{}
	validateCharge(verr, "rentAmount", in.RentAmount)
	validateCharge(verr, "waterBill", &in.WaterBill)
	validateCharge(verr, "electricityBill", &in.ElectricityBill)
	validateCharge(verr, "otherCharges", &in.OtherCharges)
	if in.Month.IsZero() {
		verr.Add("month", "this field is required")
	}
	if in.DueDate.IsZero() {
		verr.Add("dueDate", "this field is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	policy := scope.For(actor)
	invoice := models.Invoice{
		TenancyID:               in.TenancyID,
		Month:                   utils.BeginningOfMonth(in.Month),
		WaterBill:               in.WaterBill,
		ElectricityBill:         in.ElectricityBill,
		OtherCharges:            in.OtherCharges,
		OtherChargesDescription: in.OtherChargesDescription,
		DueDate:                 in.DueDate,
		Notes:                   in.Notes,
		Status:                  models.InvoicePending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenancy models.Tenancy
		if err := tx.Scopes(policy.Scope(scope.Tenancies)).
			First(&tenancy, "tenancies.id = ?", in.TenancyID).Error; err != nil {
			return notFoundAs(err, "tenancyId", "tenancy not found")
		}

		if in.RentAmount != nil {
			invoice.RentAmount = *in.RentAmount
		} else {
			var unit models.Unit
			if err := tx.First(&unit, "id = ?", tenancy.UnitID).Error; err != nil {
				return err
			}
			invoice.RentAmount = unit.RentAmount
		}

		if err := ensureMonthFree(tx, invoice.TenancyID, invoice.Month, uuid.Nil); err != nil {
			return err
		}

		number, err := NextInvoiceNumber(tx, s.Clock.now())
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number

		RecomputeInvoiceTotals(&invoice, s.Clock.today())
		return tx.Omit(clause.Associations).Create(&invoice).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice issued",
		zap.String("invoice", invoice.InvoiceNumber),
		zap.String("tenancy", invoice.TenancyID.String()),
		zap.String("total", invoice.TotalAmount.StringFixed(2)),
	)
	return &invoice, nil
}

// UpdateInvoice applies changes and re-derives totals from the charges and payments.
func (s *BillingService) UpdateInvoice(ctx context.Context, actor *models.User, id uuid.UUID, ch InvoiceChanges) (*models.Invoice, error) {
	if !canManage(actor) {
		return nil, utils.NewValidationError("status", "only landlords and staff can change invoices")
	}
	verr := &utils.ValidationError{}
	validateCharge(verr, "rentAmount", ch.RentAmount)
	validateCharge(verr, "waterBill", ch.WaterBill)
	validateCharge(verr, "electricityBill", ch.ElectricityBill)
	validateCharge(verr, "otherCharges", ch.OtherCharges)
	if ch.Status != nil && *ch.Status != models.InvoicePending && *ch.Status != models.InvoiceCancelled {
		verr.Add("status", "can only be set to PENDING or CANCELLED")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	policy := scope.For(actor)
	var invoice models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(policy.Scope(scope.Invoices)).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&invoice, "invoices.id = ?", id).Error; err != nil {
			return err
		}

		if ch.Month != nil {
			month := utils.BeginningOfMonth(*ch.Month)
			if !month.Equal(invoice.Month) {
				if err := ensureMonthFree(tx, invoice.TenancyID, month, invoice.ID); err != nil {
					return err
				}
			}
			invoice.Month = month
		}
		if ch.RentAmount != nil {
			invoice.RentAmount = *ch.RentAmount
		}
		if ch.WaterBill != nil {
			invoice.WaterBill = *ch.WaterBill
		}
		if ch.ElectricityBill != nil {
			invoice.ElectricityBill = *ch.ElectricityBill
		}
		if ch.OtherCharges != nil {
			invoice.OtherCharges = *ch.OtherCharges
		}
		if ch.OtherChargesDescription != nil {
			invoice.OtherChargesDescription = *ch.OtherChargesDescription
		}
		if ch.DueDate != nil {
			invoice.DueDate = *ch.DueDate
		}
		if ch.Notes != nil {
			invoice.Notes = *ch.Notes
		}
		if ch.Status != nil {
			invoice.Status = *ch.Status
		}

		RecomputeInvoiceTotals(&invoice, s.Clock.today())
		return tx.Omit(clause.Associations).Save(&invoice).Error
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// DeleteInvoice removes the invoice and detaches its payments.
func (s *BillingService) DeleteInvoice(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if !canManage(actor) {
		return utils.NewValidationError("id", "only landlords and staff can delete invoices")
	}
	policy := scope.For(actor)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.Scopes(policy.Scope(scope.Invoices)).
			First(&invoice, "invoices.id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Payment{}).
			Where("invoice_id = ?", invoice.ID).
			Update("invoice_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&invoice).Error
	})
}

func (s *BillingService) InvoiceStatistics(ctx context.Context, policy scope.Policy) (*InvoiceStats, error) {
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Invoice{}).Scopes(policy.Scope(scope.Invoices))
	}

	var sums struct {
		Invoiced    decimal.Decimal
		Paid        decimal.Decimal
		Outstanding decimal.Decimal
	}
	if err := base().Select(
		"COALESCE(SUM(invoices.total_amount), 0) AS invoiced, " +
			"COALESCE(SUM(invoices.amount_paid), 0) AS paid, " +
			"COALESCE(SUM(invoices.balance), 0) AS outstanding",
	).Scan(&sums).Error; err != nil {
		return nil, err
	}

	stats := &InvoiceStats{
		TotalInvoiced:    sums.Invoiced,
		TotalPaid:        sums.Paid,
		TotalOutstanding: sums.Outstanding,
	}
	counts := []struct {
		status models.InvoiceStatus
		dst    *int64
	}{
		{models.InvoicePending, &stats.PendingCount},
		{models.InvoiceOverdue, &stats.OverdueCount},
		{models.InvoicePaid, &stats.PaidCount},
	}
	for _, c := range counts {
		if err := base().Where("invoices.status = ?", c.status).Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// SweepOverdue re-saves PENDING invoices whose due date has passed and returns
// those that became OVERDUE.
func (s *BillingService) SweepOverdue(ctx context.Context) ([]models.Invoice, error) {
	today := s.Clock.today()
	var flipped []models.Invoice

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []models.Invoice
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ? AND due_date < ?", models.InvoicePending, today).
			Find(&candidates).Error; err != nil {
			return err
		}
		for i := range candidates {
			invoice := &candidates[i]
			RecomputeInvoiceTotals(invoice, today)
			if invoice.Status != models.InvoiceOverdue {
				continue
			}
			if err := tx.Model(invoice).Update("status", invoice.Status).Error; err != nil {
				return err
			}
			flipped = append(flipped, *invoice)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("overdue sweep finished", zap.Int("flipped", len(flipped)))
	return flipped, nil
}

func ensureMonthFree(tx *gorm.DB, tenancyID uuid.UUID, month time.Time, except uuid.UUID) error {
	var count int64
	q := tx.Model(&models.Invoice{}).Where("tenancy_id = ? AND month = ?", tenancyID, month)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return utils.NewValidationError("month", "an invoice for this tenancy and month already exists")
	}
	return nil
}

func validateCharge(verr *utils.ValidationError, field string, v *decimal.Decimal) {
	if v != nil && v.IsNegative() {
		verr.Add(field, "must not be negative")
	}
}
