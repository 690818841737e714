package services

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

var errStop = errors.New("stop")

// Read-modify-write paths take the row lock before reading what they will write back.
func TestRowLocks(t *testing.T) {
	t.Run("reconcile locks the invoice before summing payments", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()
		invoiceID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE id = \$1 ORDER BY "invoices"\."id" LIMIT \$2 FOR UPDATE`).
			WithArgs(invoiceID.String(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(invoiceID.String()))
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) AS total FROM "payments"`).
			WillReturnError(errStop)

		_, err := NewBillingService(db, zap.NewNop()).ReconcileInvoice(db, invoiceID)
		assert.ErrorIs(t, err, errStop)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unit is locked before counting its active tenancies", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()
		unitID := uuid.New()

		mock.ExpectQuery(`SELECT "id" FROM "units" WHERE id = \$1 ORDER BY "units"\."id" LIMIT \$2 FOR UPDATE`).
			WithArgs(unitID.String(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(unitID.String()))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "tenancies" WHERE unit_id = \$1 AND status = \$2`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		require.NoError(t, ensureUnitFree(db, unitID, uuid.Nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unit count is recomputed in one statement", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()
		propertyID := uuid.New()

		mock.ExpectExec(`UPDATE "properties" SET "total_units"=\(SELECT COUNT\(\*\) FROM "units" WHERE units\.property_id = \$1\).* WHERE id = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, RecountUnits(db, propertyID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
