package services

import (
	"context"
	"testing"
	"time"

	"elms-backend/models"
	"elms-backend/scope"
	"elms-backend/testutil"
	"elms-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var june15 = testutil.Date(2024, time.June, 15)

func newBillingService(t *testing.T) (*gorm.DB, *BillingService) {
	db := testutil.NewTestDB(t)
	svc := NewBillingService(db, zap.NewNop())
	svc.Clock = testutil.FixedClock(june15)
	return db, svc
}

func money(v string) *decimal.Decimal {
	d := testutil.Money(v)
	return &d
}

func requireFieldError(t *testing.T, err error, field string) {
	t.Helper()
	var verr *utils.ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Fields)
	assert.Equal(t, field, verr.Fields[0].Field)
}

func juneInvoice(estate *testutil.Estate, due time.Time) InvoiceInput {
	return InvoiceInput{
		TenancyID:       estate.Tenancy.ID,
		Month:           testutil.Date(2024, time.June, 1),
		RentAmount:      money("10000"),
		WaterBill:       testutil.Money("500"),
		ElectricityBill: testutil.Money("300"),
		OtherCharges:    decimal.Zero,
		DueDate:         due,
	}
}

func TestRecomputeInvoiceTotals(t *testing.T) {
	yesterday := june15.AddDate(0, 0, -1)

	tests := []struct {
		name        string
		status      models.InvoiceStatus
		paid        string
		due         time.Time
		wantStatus  models.InvoiceStatus
		wantBalance string
	}{
		{"past due pending becomes overdue", models.InvoicePending, "0", yesterday, models.InvoiceOverdue, "10800"},
		{"due today stays pending", models.InvoicePending, "0", june15, models.InvoicePending, "10800"},
		{"fully paid becomes paid", models.InvoicePending, "10800", yesterday, models.InvoicePaid, "0"},
		{"overpaid becomes paid", models.InvoiceOverdue, "11000", yesterday, models.InvoicePaid, "-200"},
		{"partially paid overdue stays overdue", models.InvoiceOverdue, "5000", yesterday, models.InvoiceOverdue, "5800"},
		{"paid stays paid when payments drop", models.InvoicePaid, "5000", yesterday, models.InvoicePaid, "5800"},
		{"cancelled is never recomputed", models.InvoiceCancelled, "10800", yesterday, models.InvoiceCancelled, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &models.Invoice{
				RentAmount:      testutil.Money("10000"),
				WaterBill:       testutil.Money("500"),
				ElectricityBill: testutil.Money("300"),
				AmountPaid:      testutil.Money(tt.paid),
				Status:          tt.status,
				DueDate:         tt.due,
			}
			RecomputeInvoiceTotals(inv, june15)

			testutil.AssertMoney(t, "10800", inv.Subtotal)
			testutil.AssertMoney(t, "10800", inv.TotalAmount)
			testutil.AssertMoney(t, tt.wantBalance, inv.Balance)
			assert.Equal(t, tt.wantStatus, inv.Status)
		})
	}
}

func TestNextInvoiceNumber(t *testing.T) {
	db, _ := newBillingService(t)

	var numbers []string
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, at := range []time.Time{june15, june15, testutil.Date(2024, time.July, 1)} {
			n, err := NextInvoiceNumber(tx, at)
			if err != nil {
				return err
			}
			numbers = append(numbers, n)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"INV-202406-0001", "INV-202406-0002", "INV-202407-0001"}, numbers)
}

func TestBillingService_InvoiceAndPayments(t *testing.T) {
	db, svc := newBillingService(t)
	ctx := context.Background()
	estate := testutil.CreateEstate(t, db, "10000")

	invoice, err := svc.CreateInvoice(ctx, estate.Landlord, juneInvoice(estate, june15.AddDate(0, 0, -1)))
	require.NoError(t, err)

	assert.Equal(t, "INV-202406-0001", invoice.InvoiceNumber)
	testutil.AssertMoney(t, "10800", invoice.TotalAmount)
	testutil.AssertMoney(t, "10800", invoice.Balance)
	assert.Equal(t, models.InvoiceOverdue, invoice.Status)

	var receipts []string
	for _, amount := range []string{"5000", "5800"} {
		payment, err := svc.RecordPayment(ctx, estate.Landlord, PaymentInput{
			TenancyID:     estate.Tenancy.ID,
			InvoiceID:     &invoice.ID,
			Amount:        testutil.Money(amount),
			PaymentMethod: models.PaymentMobileMoney,
		})
		require.NoError(t, err)
		require.NotNil(t, payment.Receipt)
		assert.Equal(t, ReceiptNumber(june15, payment.ID), payment.Receipt.ReceiptNumber)
		receipts = append(receipts, payment.Receipt.ReceiptNumber)
	}
	assert.NotEqual(t, receipts[0], receipts[1])

	var stored models.Invoice
	require.NoError(t, db.First(&stored, "id = ?", invoice.ID).Error)
	testutil.AssertMoney(t, "10800", stored.AmountPaid)
	testutil.AssertMoney(t, "0", stored.Balance)
	assert.Equal(t, models.InvoicePaid, stored.Status)

	var receiptCount int64
	require.NoError(t, db.Model(&models.Receipt{}).Count(&receiptCount).Error)
	assert.Equal(t, int64(2), receiptCount)
}

func TestBillingService_CreateInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("rent defaults to the unit rent", func(t *testing.T) {
		db, svc := newBillingService(t)
		estate := testutil.CreateEstate(t, db, "12500")

		in := juneInvoice(estate, testutil.Date(2024, time.June, 30))
		in.RentAmount = nil
		invoice, err := svc.CreateInvoice(ctx, estate.Landlord, in)
		require.NoError(t, err)

		testutil.AssertMoney(t, "12500", invoice.RentAmount)
		testutil.AssertMoney(t, "13300", invoice.TotalAmount)
		assert.Equal(t, models.InvoicePending, invoice.Status)
	})

	t.Run("one invoice per tenancy and month", func(t *testing.T) {
		db, svc := newBillingService(t)
		estate := testutil.CreateEstate(t, db, "10000")

		_, err := svc.CreateInvoice(ctx, estate.Landlord, juneInvoice(estate, june15))
		require.NoError(t, err)

		in := juneInvoice(estate, june15)
		in.Month = testutil.Date(2024, time.June, 20)
		_, err = svc.CreateInvoice(ctx, estate.Landlord, in)
		requireFieldError(t, err, "month")
	})

	t.Run("tenants cannot issue invoices", func(t *testing.T) {
		db, svc := newBillingService(t)
		estate := testutil.CreateEstate(t, db, "10000")

		_, err := svc.CreateInvoice(ctx, estate.Tenant, juneInvoice(estate, june15))
		requireFieldError(t, err, "tenancyId")
	})

	t.Run("landlords cannot invoice tenancies they do not own", func(t *testing.T) {
		db, svc := newBillingService(t)
		mine := testutil.CreateEstate(t, db, "10000")
		theirs := testutil.CreateEstate(t, db, "10000")

		_, err := svc.CreateInvoice(ctx, mine.Landlord, juneInvoice(theirs, june15))
		requireFieldError(t, err, "tenancyId")
	})

	t.Run("negative charges are rejected", func(t *testing.T) {
		db, svc := newBillingService(t)
		estate := testutil.CreateEstate(t, db, "10000")

		in := juneInvoice(estate, june15)
		in.WaterBill = testutil.Money("-1")
		_, err := svc.CreateInvoice(ctx, estate.Landlord, in)
		requireFieldError(t, err, "waterBill")
	})
}

func TestBillingService_PaymentChangesReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("cancelling a payment lowers the amount paid", func(t *testing.T) {
		db, svc := newBillingService(t)
		estate := testutil.CreateEstate(t, db, "10000")
		invoice, err := svc.CreateInvoice(ctx, estate.Landlord, juneInvoice(estate, june15.AddDate(0, 0, -1)))
		require.NoError(t, err)

		payment, err := svc.RecordPayment(ctx, estate.Landlord, PaymentInput{
			TenancyID:     estate.Tenancy.ID,
			InvoiceID:     &invoice.ID,
			Amount:        testutil.Money("5000"),
			PaymentMethod: models.PaymentCash,
		})
		require.NoError(t, err)
		testutil.AssertMoney(t, "5000", payment.Invoice.AmountPaid)

		cancelled := models.PaymentCancelled
		_, err = svc.UpdatePayment(ctx, estate.Landlord, payment.ID, PaymentChanges{Status: &cancelled})
		require.NoError(t, err)

		var stored models.Invoice
		require.NoError(t, db.First(&stored, "id = ?", invoice.ID).Error)
		testutil.AssertMoney(t, "0", stored.AmountPaid)
		testutil.AssertMoney(t, "10800", stored.Balance)
		assert.Equal(t, models.InvoiceOverdue, stored.Status)
	})

	t.Run("moving a payment reconciles both invoices", func(t *testing.T) {
		db, svc := newBillingService(t)
		estate := testutil.CreateEstate(t, db, "10000")
		june, err := svc.CreateInvoice(ctx, estate.Landlord, juneInvoice(estate, testutil.Date(2024, time.June, 30)))
		require.NoError(t, err)
		julyIn := juneInvoice(estate, testutil.Date(2024, time.July, 31))
		julyIn.Month = testutil.Date(2024, time.July, 1)
		july, err := svc.CreateInvoice(ctx, estate.Landlord, julyIn)
		require.NoError(t, err)
		assert.Equal(t, "INV-202406-0002", july.InvoiceNumber)

		payment, err := svc.RecordPayment(ctx, estate.Landlord, PaymentInput{
			TenancyID:     estate.Tenancy.ID,
			InvoiceID:     &june.ID,
			Amount:        testutil.Money("10800"),
			PaymentMethod: models.PaymentBankTransfer,
		})
		require.NoError(t, err)
		assert.Equal(t, models.InvoicePaid, payment.Invoice.Status)

		_, err = svc.UpdatePayment(ctx, estate.Landlord, payment.ID, PaymentChanges{InvoiceID: &july.ID})
		require.NoError(t, err)

		var storedJune, storedJuly models.Invoice
		require.NoError(t, db.First(&storedJune, "id = ?", june.ID).Error)
		require.NoError(t, db.First(&storedJuly, "id = ?", july.ID).Error)
		testutil.AssertMoney(t, "0", storedJune.AmountPaid)
		testutil.AssertMoney(t, "10800", storedJune.Balance)
		testutil.AssertMoney(t, "10800", storedJuly.AmountPaid)
		assert.Equal(t, models.InvoicePaid, storedJuly.Status)
	})

	t.Run("deleting a payment removes its receipt", func(t *testing.T) {
		db, svc := newBillingService(t)
		estate := testutil.CreateEstate(t, db, "10000")
		invoice, err := svc.CreateInvoice(ctx, estate.Landlord, juneInvoice(estate, testutil.Date(2024, time.June, 30)))
		require.NoError(t, err)

		payment, err := svc.RecordPayment(ctx, estate.Landlord, PaymentInput{
			TenancyID:     estate.Tenancy.ID,
			InvoiceID:     &invoice.ID,
			Amount:        testutil.Money("3000"),
			PaymentMethod: models.PaymentCard,
		})
		require.NoError(t, err)

		require.NoError(t, svc.DeletePayment(ctx, estate.Landlord, payment.ID))

		var receipts int64
		require.NoError(t, db.Model(&models.Receipt{}).Where("payment_id = ?", payment.ID).Count(&receipts).Error)
		assert.Zero(t, receipts)

		var stored models.Invoice
		require.NoError(t, db.First(&stored, "id = ?", invoice.ID).Error)
		testutil.AssertMoney(t, "0", stored.AmountPaid)
		assert.Equal(t, models.InvoicePending, stored.Status)
	})

	t.Run("pending payments do not count", func(t *testing.T) {
		db, svc := newBillingService(t)
		estate := testutil.CreateEstate(t, db, "10000")
		invoice, err := svc.CreateInvoice(ctx, estate.Landlord, juneInvoice(estate, testutil.Date(2024, time.June, 30)))
		require.NoError(t, err)

		payment, err := svc.RecordPayment(ctx, estate.Landlord, PaymentInput{
			TenancyID:     estate.Tenancy.ID,
			InvoiceID:     &invoice.ID,
			Amount:        testutil.Money("10800"),
			PaymentMethod: models.PaymentCheque,
			Status:        models.PaymentPending,
		})
		require.NoError(t, err)
		require.NotNil(t, payment.Receipt)
		testutil.AssertMoney(t, "0", payment.Invoice.AmountPaid)
		assert.Equal(t, models.InvoicePending, payment.Invoice.Status)
	})

	t.Run("payment must target an invoice of the same tenancy", func(t *testing.T) {
		db, svc := newBillingService(t)
		estate := testutil.CreateEstate(t, db, "10000")
		otherUnit := testutil.CreateUnit(t, db, estate.Property, "B2", "9000")
		other := testutil.CreateTenancy(t, db, testutil.CreateUser(t, db, models.RoleTenant), otherUnit)

		invoice, err := svc.CreateInvoice(ctx, estate.Landlord, juneInvoice(estate, june15))
		require.NoError(t, err)

		_, err = svc.RecordPayment(ctx, estate.Landlord, PaymentInput{
			TenancyID:     other.ID,
			InvoiceID:     &invoice.ID,
			Amount:        testutil.Money("100"),
			PaymentMethod: models.PaymentCash,
		})
		requireFieldError(t, err, "invoiceId")
	})
}

func TestBillingService_CancelledInvoiceIgnoresPayments(t *testing.T) {
	db, svc := newBillingService(t)
	ctx := context.Background()
	estate := testutil.CreateEstate(t, db, "10000")

	invoice, err := svc.CreateInvoice(ctx, estate.Landlord, juneInvoice(estate, testutil.Date(2024, time.June, 30)))
	require.NoError(t, err)

	cancelled := models.InvoiceCancelled
	invoice, err = svc.UpdateInvoice(ctx, estate.Landlord, invoice.ID, InvoiceChanges{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceCancelled, invoice.Status)

	payment, err := svc.RecordPayment(ctx, estate.Landlord, PaymentInput{
		TenancyID:     estate.Tenancy.ID,
		InvoiceID:     &invoice.ID,
		Amount:        testutil.Money("10800"),
		PaymentMethod: models.PaymentCash,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceCancelled, payment.Invoice.Status)
	testutil.AssertMoney(t, "0", payment.Invoice.Balance)

	paid := models.InvoicePaid
	_, err = svc.UpdateInvoice(ctx, estate.Landlord, invoice.ID, InvoiceChanges{Status: &paid})
	requireFieldError(t, err, "status")
}

func TestBillingService_UpdateInvoiceRecomputes(t *testing.T) {
	db, svc := newBillingService(t)
	ctx := context.Background()
	estate := testutil.CreateEstate(t, db, "10000")

	invoice, err := svc.CreateInvoice(ctx, estate.Landlord, juneInvoice(estate, testutil.Date(2024, time.June, 30)))
	require.NoError(t, err)

	invoice, err = svc.UpdateInvoice(ctx, estate.Landlord, invoice.ID, InvoiceChanges{
		OtherCharges:            money("1200"),
		OtherChargesDescription: ptr("Garbage collection"),
	})
	require.NoError(t, err)
	testutil.AssertMoney(t, "12000", invoice.TotalAmount)
	testutil.AssertMoney(t, "12000", invoice.Balance)

	_, err = svc.UpdateInvoice(ctx, estate.Tenant, invoice.ID, InvoiceChanges{Notes: ptr("mine now")})
	requireFieldError(t, err, "status")
}

func TestBillingService_SweepOverdue(t *testing.T) {
	db, svc := newBillingService(t)
	ctx := context.Background()
	estate := testutil.CreateEstate(t, db, "10000")

	invoice, err := svc.CreateInvoice(ctx, estate.Landlord, juneInvoice(estate, testutil.Date(2024, time.June, 20)))
	require.NoError(t, err)
	require.Equal(t, models.InvoicePending, invoice.Status)

	flipped, err := svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Empty(t, flipped)

	svc.Clock = testutil.FixedClock(testutil.Date(2024, time.June, 25))
	flipped, err = svc.SweepOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, flipped, 1)
	assert.Equal(t, invoice.ID, flipped[0].ID)

	var stored models.Invoice
	require.NoError(t, db.First(&stored, "id = ?", invoice.ID).Error)
	assert.Equal(t, models.InvoiceOverdue, stored.Status)
}

func TestBillingService_ScopedReads(t *testing.T) {
	db, svc := newBillingService(t)
	ctx := context.Background()
	a := testutil.CreateEstate(t, db, "10000")
	b := testutil.CreateEstate(t, db, "20000")

	invA, err := svc.CreateInvoice(ctx, a.Landlord, juneInvoice(a, june15.AddDate(0, 0, -1)))
	require.NoError(t, err)
	invB, err := svc.CreateInvoice(ctx, b.Landlord, juneInvoice(b, testutil.Date(2024, time.June, 30)))
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, a.Landlord, PaymentInput{
		TenancyID:     a.Tenancy.ID,
		InvoiceID:     &invA.ID,
		Amount:        testutil.Money("800"),
		PaymentMethod: models.PaymentCash,
	})
	require.NoError(t, err)

	t.Run("list intersects scope with status filter", func(t *testing.T) {
		invoices, err := svc.ListInvoices(ctx, scope.For(a.Landlord), InvoiceFilter{Status: models.InvoiceOverdue})
		require.NoError(t, err)
		require.Len(t, invoices, 1)
		assert.Equal(t, invA.ID, invoices[0].ID)

		invoices, err = svc.ListInvoices(ctx, scope.For(a.Landlord), InvoiceFilter{Status: models.InvoicePending})
		require.NoError(t, err)
		assert.Empty(t, invoices)
	})

	t.Run("foreign invoice is not found", func(t *testing.T) {
		_, err := svc.GetInvoice(ctx, scope.For(a.Tenant), invB.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("invoice statistics", func(t *testing.T) {
		stats, err := svc.InvoiceStatistics(ctx, scope.For(a.Landlord))
		require.NoError(t, err)
		testutil.AssertMoney(t, "10800", stats.TotalInvoiced)
		testutil.AssertMoney(t, "800", stats.TotalPaid)
		testutil.AssertMoney(t, "10000", stats.TotalOutstanding)
		assert.Equal(t, int64(1), stats.OverdueCount)
		assert.Zero(t, stats.PendingCount)
	})

	t.Run("payment statistics", func(t *testing.T) {
		stats, err := svc.PaymentStatistics(ctx, scope.For(a.Landlord))
		require.NoError(t, err)
		testutil.AssertMoney(t, "800", stats.TotalReceived)
		testutil.AssertMoney(t, "800", stats.MonthlyCollection)
		assert.Equal(t, int64(1), stats.TotalPayments)
		assert.Equal(t, int64(1), stats.CompletedCount)

		stats, err = svc.PaymentStatistics(ctx, scope.For(b.Landlord))
		require.NoError(t, err)
		assert.Zero(t, stats.TotalPayments)
	})

	t.Run("receipts follow payment visibility", func(t *testing.T) {
		receipts, err := svc.ListReceipts(ctx, scope.For(a.Tenant))
		require.NoError(t, err)
		assert.Len(t, receipts, 1)

		receipts, err = svc.ListReceipts(ctx, scope.For(b.Tenant))
		require.NoError(t, err)
		assert.Empty(t, receipts)
	})

	t.Run("recent payments", func(t *testing.T) {
		payments, err := svc.RecentPayments(ctx, scope.For(a.Landlord))
		require.NoError(t, err)
		assert.Len(t, payments, 1)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.GetPayment(ctx, scope.For(a.Landlord), uuid.New())
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func ptr[T any](v T) *T { return &v }
