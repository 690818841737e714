// Package testutil provides an in-memory database and record builders for tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"elms-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database private to the test.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps every statement on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func Money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func CreateUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	name := string(role) + "-" + uuid.NewString()[:8]
	user := &models.User{
		Username:  name,
		Email:     name + "@example.com",
		Password:  "not-a-real-hash",
		FirstName: "Test",
		LastName:  string(role),
		Phone:     "+254700000000",
		Role:      role,
		IsActive:  true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateProperty(t *testing.T, db *gorm.DB, owner *models.User) *models.Property {
	t.Helper()
	property := &models.Property{
		Name:         "Block " + uuid.NewString()[:4],
		PropertyType: models.PropertyApartment,
		Address:      "1 Test Road",
		City:         "Nairobi",
		OwnerID:      owner.ID,
	}
	require.NoError(t, db.Create(property).Error)
	return property
}

func CreateUnit(t *testing.T, db *gorm.DB, property *models.Property, number string, rent string) *models.Unit {
	t.Helper()
	unit := &models.Unit{
		PropertyID: property.ID,
		UnitNumber: number,
		Bedrooms:   2,
		Bathrooms:  1,
		RentAmount: Money(rent),
		Status:     models.UnitVacant,
	}
	require.NoError(t, db.Create(unit).Error)
	require.NoError(t, db.Model(&models.Property{}).Where("id = ?", property.ID).
		Update("total_units", gorm.Expr("total_units + 1")).Error)
	return unit
}

// CreateTenancy binds user to unit as an ACTIVE tenancy and marks the unit occupied.
func CreateTenancy(t *testing.T, db *gorm.DB, user *models.User, unit *models.Unit) *models.Tenancy {
	t.Helper()
	tenancy := &models.Tenancy{
		UserID:              user.ID,
		UnitID:              unit.ID,
		MoveInDate:          Date(2024, time.January, 1),
		LeaseDurationMonths: 12,
		DepositPaid:         unit.RentAmount,
		Status:              models.TenancyActive,
	}
	require.NoError(t, db.Create(tenancy).Error)
	require.NoError(t, db.Model(unit).Update("status", models.UnitOccupied).Error)
	return tenancy
}

func CreateComplaint(t *testing.T, db *gorm.DB, tenancy *models.Tenancy, title string) *models.Complaint {
	t.Helper()
	complaint := &models.Complaint{
		TenancyID:   tenancy.ID,
		UnitID:      tenancy.UnitID,
		Title:       title,
		Description: title + " needs attention",
		Category:    models.CategoryPlumbing,
		Priority:    models.PriorityMedium,
		Status:      models.ComplaintSubmitted,
		SubmittedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(complaint).Error)
	return complaint
}

// Estate is a landlord with one property, one unit and one active tenant.
type Estate struct {
	Landlord *models.User
	Tenant   *models.User
	Property *models.Property
	Unit     *models.Unit
	Tenancy  *models.Tenancy
}

func CreateEstate(t *testing.T, db *gorm.DB, rent string) *Estate {
	t.Helper()
	landlord := CreateUser(t, db, models.RoleLandlord)
	tenant := CreateUser(t, db, models.RoleTenant)
	property := CreateProperty(t, db, landlord)
	unit := CreateUnit(t, db, property, "A1", rent)
	tenancy := CreateTenancy(t, db, tenant, unit)
	return &Estate{
		Landlord: landlord,
		Tenant:   tenant,
		Property: property,
		Unit:     unit,
		Tenancy:  tenancy,
	}
}

// AssertMoney compares amounts numerically, ignoring scale.
func AssertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, Money(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

// FixedClock always returns at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
