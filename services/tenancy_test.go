package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"elms-backend/models"
	"elms-backend/scope"
	"elms-backend/testutil"
	"elms-backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// fakeBlobs presigns every key and records deletions.
type fakeBlobs struct {
	deleted   []string
	deleteErr error
}

func (f *fakeBlobs) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://blobs.test/" + key, nil
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return f.deleteErr
}

func newTenancyService(t *testing.T) (*gorm.DB, *TenancyService, *fakeBlobs) {
	db := testutil.NewTestDB(t)
	blobs := &fakeBlobs{}
	svc := NewTenancyService(db, blobs, zap.NewNop())
	svc.Clock = testutil.FixedClock(june15)
	return db, svc, blobs
}

func unitStatus(t *testing.T, db *gorm.DB, unit *models.Unit) models.UnitStatus {
	t.Helper()
	var stored models.Unit
	require.NoError(t, db.First(&stored, "id = ?", unit.ID).Error)
	return stored.Status
}

func TestTenancyService_Onboard(t *testing.T) {
	ctx := context.Background()

	t.Run("creates tenant and occupies unit", func(t *testing.T) {
		db, svc, _ := newTenancyService(t)
		landlord := testutil.CreateUser(t, db, models.RoleLandlord)
		property := testutil.CreateProperty(t, db, landlord)
		unit := testutil.CreateUnit(t, db, property, "C3", "15000")

		result, err := svc.Onboard(ctx, landlord, OnboardInput{
			UnitID:      unit.ID,
			DepositPaid: testutil.Money("15000"),
			Username:    "wanjiku",
			Email:       "Wanjiku@Example.com",
			FirstName:   "Wanjiku",
			Phone:       "+254711000111",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, result.TemporaryPassword)
		assert.Equal(t, models.TenancyActive, result.Tenancy.Status)
		assert.Equal(t, june15, result.Tenancy.MoveInDate)
		assert.Equal(t, 12, result.Tenancy.LeaseDurationMonths)
		assert.Equal(t, models.UnitOccupied, unitStatus(t, db, unit))

		var user models.User
		require.NoError(t, db.First(&user, "id = ?", result.Tenancy.UserID).Error)
		assert.Equal(t, models.RoleTenant, user.Role)
		assert.Equal(t, "wanjiku@example.com", user.Email)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(result.TemporaryPassword)))
	})

	t.Run("supplied password is not echoed", func(t *testing.T) {
		db, svc, _ := newTenancyService(t)
		landlord := testutil.CreateUser(t, db, models.RoleLandlord)
		unit := testutil.CreateUnit(t, db, testutil.CreateProperty(t, db, landlord), "C4", "15000")

		result, err := svc.Onboard(ctx, landlord, OnboardInput{
			UnitID:   unit.ID,
			Username: "otieno",
			Email:    "otieno@example.com",
			Password: "s3cret-pass",
		})
		require.NoError(t, err)
		assert.Empty(t, result.TemporaryPassword)
	})

	t.Run("occupied unit is rejected", func(t *testing.T) {
		db, svc, _ := newTenancyService(t)
		estate := testutil.CreateEstate(t, db, "10000")

		_, err := svc.Onboard(ctx, estate.Landlord, OnboardInput{
			UnitID:   estate.Unit.ID,
			Username: "second",
			Email:    "second@example.com",
		})
		requireFieldError(t, err, "unitId")

		var users int64
		require.NoError(t, db.Model(&models.User{}).Where("username = ?", "second").Count(&users).Error)
		assert.Zero(t, users)
	})

	t.Run("duplicate identity is rejected", func(t *testing.T) {
		db, svc, _ := newTenancyService(t)
		estate := testutil.CreateEstate(t, db, "10000")
		unit := testutil.CreateUnit(t, db, estate.Property, "A2", "10000")

		_, err := svc.Onboard(ctx, estate.Landlord, OnboardInput{
			UnitID:   unit.ID,
			Username: estate.Tenant.Username,
			Email:    "fresh@example.com",
		})
		requireFieldError(t, err, "username")
		assert.Equal(t, models.UnitVacant, unitStatus(t, db, unit))
	})

	t.Run("foreign unit is not visible", func(t *testing.T) {
		db, svc, _ := newTenancyService(t)
		mine := testutil.CreateUser(t, db, models.RoleLandlord)
		theirs := testutil.CreateUser(t, db, models.RoleLandlord)
		unit := testutil.CreateUnit(t, db, testutil.CreateProperty(t, db, theirs), "Z1", "9000")

		_, err := svc.Onboard(ctx, mine, OnboardInput{UnitID: unit.ID, Username: "x", Email: "x@example.com"})
		requireFieldError(t, err, "unitId")
	})

	t.Run("bad phone is rejected", func(t *testing.T) {
		db, svc, _ := newTenancyService(t)
		landlord := testutil.CreateUser(t, db, models.RoleLandlord)

		_, err := svc.Onboard(ctx, landlord, OnboardInput{Phone: "call me maybe"})
		requireFieldError(t, err, "phone")
	})
}

func TestTenancyService_StatusDrivesUnit(t *testing.T) {
	ctx := context.Background()

	t.Run("vacate frees the unit", func(t *testing.T) {
		db, svc, _ := newTenancyService(t)
		estate := testutil.CreateEstate(t, db, "10000")

		tenancy, err := svc.Vacate(ctx, estate.Landlord, estate.Tenancy.ID, nil)
		require.NoError(t, err)

		assert.Equal(t, models.TenancyVacated, tenancy.Status)
		require.NotNil(t, tenancy.MoveOutDate)
		assert.Equal(t, june15, *tenancy.MoveOutDate)
		assert.Equal(t, models.UnitVacant, unitStatus(t, db, estate.Unit))
	})

	t.Run("suspending leaves the unit alone", func(t *testing.T) {
		db, svc, _ := newTenancyService(t)
		estate := testutil.CreateEstate(t, db, "10000")

		suspended := models.TenancySuspended
		_, err := svc.Update(ctx, estate.Landlord, estate.Tenancy.ID, TenancyChanges{Status: &suspended})
		require.NoError(t, err)
		assert.Equal(t, models.UnitOccupied, unitStatus(t, db, estate.Unit))
	})

	t.Run("reactivating checks the unit is free", func(t *testing.T) {
		db, svc, _ := newTenancyService(t)
		estate := testutil.CreateEstate(t, db, "10000")
		_, err := svc.Vacate(ctx, estate.Landlord, estate.Tenancy.ID, nil)
		require.NoError(t, err)

		newcomer := testutil.CreateTenancy(t, db, testutil.CreateUser(t, db, models.RoleTenant), estate.Unit)

		active := models.TenancyActive
		_, err = svc.Update(ctx, estate.Landlord, estate.Tenancy.ID, TenancyChanges{Status: &active})
		requireFieldError(t, err, "unitId")

		_, err = svc.Vacate(ctx, estate.Landlord, newcomer.ID, nil)
		require.NoError(t, err)
		tenancy, err := svc.Update(ctx, estate.Landlord, estate.Tenancy.ID, TenancyChanges{Status: &active})
		require.NoError(t, err)
		assert.Nil(t, tenancy.MoveOutDate)
		assert.Equal(t, models.UnitOccupied, unitStatus(t, db, estate.Unit))
	})

	t.Run("editing an old vacated tenancy keeps the newcomer's unit occupied", func(t *testing.T) {
		db, svc, _ := newTenancyService(t)
		estate := testutil.CreateEstate(t, db, "10000")
		_, err := svc.Vacate(ctx, estate.Landlord, estate.Tenancy.ID, nil)
		require.NoError(t, err)

		newcomer := testutil.CreateTenancy(t, db, testutil.CreateUser(t, db, models.RoleTenant), estate.Unit)
		require.Equal(t, models.UnitOccupied, unitStatus(t, db, estate.Unit))

		notes := "deposit refunded"
		_, err = svc.Update(ctx, estate.Landlord, estate.Tenancy.ID, TenancyChanges{Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, models.UnitOccupied, unitStatus(t, db, estate.Unit))

		var stored models.Tenancy
		require.NoError(t, db.First(&stored, "id = ?", newcomer.ID).Error)
		assert.Equal(t, models.TenancyActive, stored.Status)
	})

	t.Run("vacating twice does not free a reoccupied unit", func(t *testing.T) {
		db, svc, _ := newTenancyService(t)
		estate := testutil.CreateEstate(t, db, "10000")
		_, err := svc.Vacate(ctx, estate.Landlord, estate.Tenancy.ID, nil)
		require.NoError(t, err)

		testutil.CreateTenancy(t, db, testutil.CreateUser(t, db, models.RoleTenant), estate.Unit)

		moveOut := testutil.Date(2024, time.June, 30)
		tenancy, err := svc.Vacate(ctx, estate.Landlord, estate.Tenancy.ID, &moveOut)
		require.NoError(t, err)
		require.NotNil(t, tenancy.MoveOutDate)
		assert.Equal(t, moveOut, *tenancy.MoveOutDate)
		assert.Equal(t, models.UnitOccupied, unitStatus(t, db, estate.Unit))
	})

	t.Run("deleting an active tenancy frees the unit", func(t *testing.T) {
		db, svc, _ := newTenancyService(t)
		estate := testutil.CreateEstate(t, db, "10000")

		require.NoError(t, svc.Delete(ctx, estate.Landlord, estate.Tenancy.ID))
		assert.Equal(t, models.UnitVacant, unitStatus(t, db, estate.Unit))
	})

	t.Run("tenants cannot change tenancies", func(t *testing.T) {
		db, svc, _ := newTenancyService(t)
		estate := testutil.CreateEstate(t, db, "10000")

		_, err := svc.Vacate(ctx, estate.Tenant, estate.Tenancy.ID, nil)
		var verr *utils.ValidationError
		assert.True(t, errors.As(err, &verr))
		assert.Equal(t, models.UnitOccupied, unitStatus(t, db, estate.Unit))
	})
}

func TestSyncUnitStatus(t *testing.T) {
	db := testutil.NewTestDB(t)
	estate := testutil.CreateEstate(t, db, "10000")

	tests := []struct {
		name     string
		status   models.TenancyStatus
		previous models.TenancyStatus
		want     models.UnitStatus
	}{
		// A tenancy recorded as already vacated does not free a unit someone else may hold.
		{name: "new vacated record", status: models.TenancyVacated, previous: "", want: models.UnitOccupied},
		{name: "re-saved vacated record", status: models.TenancyVacated, previous: models.TenancyVacated, want: models.UnitOccupied},
		{name: "suspended", status: models.TenancySuspended, previous: models.TenancyActive, want: models.UnitOccupied},
		{name: "active to vacated", status: models.TenancyVacated, previous: models.TenancyActive, want: models.UnitVacant},
		{name: "active again", status: models.TenancyActive, previous: models.TenancyVacated, want: models.UnitOccupied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenancy := &models.Tenancy{UnitID: estate.Unit.ID, Status: tt.status}
			require.NoError(t, SyncUnitStatus(db, tenancy, tt.previous))
			assert.Equal(t, tt.want, unitStatus(t, db, estate.Unit))
		})
	}
}

func TestTenancyService_Visibility(t *testing.T) {
	ctx := context.Background()
	db, svc, _ := newTenancyService(t)
	a := testutil.CreateEstate(t, db, "10000")
	b := testutil.CreateEstate(t, db, "10000")

	tenancies, err := svc.List(ctx, scope.For(a.Landlord), "")
	require.NoError(t, err)
	require.Len(t, tenancies, 1)
	assert.Equal(t, a.Tenancy.ID, tenancies[0].ID)
	require.NotNil(t, tenancies[0].Unit)
	require.NotNil(t, tenancies[0].Unit.Property)

	tenancies, err = svc.List(ctx, scope.For(a.Landlord), models.TenancyVacated)
	require.NoError(t, err)
	assert.Empty(t, tenancies)

	_, err = svc.Get(ctx, scope.For(a.Tenant), b.Tenancy.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	active, err := svc.ActiveTenancy(db, a.Tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Tenancy.ID, active.ID)

	_, err = svc.ActiveTenancy(db, a.Landlord.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTenancyService_Documents(t *testing.T) {
	ctx := context.Background()
	db, svc, blobs := newTenancyService(t)
	a := testutil.CreateEstate(t, db, "10000")
	b := testutil.CreateEstate(t, db, "10000")

	doc, err := svc.AddDocument(ctx, a.Landlord, DocumentInput{
		TenancyID:    a.Tenancy.ID,
		DocumentType: models.DocumentContract,
		FileKey:      "leases/a1.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://blobs.test/leases/a1.pdf", doc.URL)

	_, err = svc.AddDocument(ctx, a.Landlord, DocumentInput{TenancyID: b.Tenancy.ID, FileKey: "x.pdf"})
	requireFieldError(t, err, "tenancyId")

	_, err = svc.AddDocument(ctx, a.Landlord, DocumentInput{TenancyID: a.Tenancy.ID})
	requireFieldError(t, err, "fileKey")

	docs, err := svc.ListDocuments(ctx, scope.For(a.Tenant), &a.Tenancy.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NotEmpty(t, docs[0].URL)

	_, err = svc.ListDocuments(ctx, scope.For(b.Tenant), &a.Tenancy.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	tenancy, err := svc.Get(ctx, scope.For(a.Landlord), a.Tenancy.ID)
	require.NoError(t, err)
	require.Len(t, tenancy.Documents, 1)
	assert.Equal(t, doc.URL, tenancy.Documents[0].URL)

	blobs.deleteErr = errors.New("bucket unavailable")
	require.NoError(t, svc.DeleteDocument(ctx, a.Landlord, doc.ID))
	assert.Equal(t, []string{"leases/a1.pdf"}, blobs.deleted)

	_, err = svc.GetDocument(ctx, scope.For(a.Landlord), doc.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
