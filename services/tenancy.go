// services/tenancy.go
package services

import (
	"context"
	"strings"
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

type TenancyService struct {
	db     *gorm.DB
	blobs  BlobStore
	logger *zap.Logger
	Clock  Clock
}

func NewTenancyService(db *gorm.DB, blobs BlobStore, logger *zap.Logger) *TenancyService {
	return &TenancyService{db: db, blobs: blobs, logger: logger.Named("tenancy")}
}

// OnboardInput creates the tenant identity and binds it to a unit.
type OnboardInput struct {
	UnitID                uuid.UUID
	MoveInDate            time.Time
	LeaseDurationMonths   int
	DepositPaid           decimal.Decimal
	EmergencyContactName  string
	EmergencyContactPhone string
	Notes                 string

	Username  string
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Password  string
}

// OnboardResult carries the generated password when none was supplied.
type OnboardResult struct {
	Tenancy           *models.Tenancy `json:"tenant"`
	TemporaryPassword string          `json:"temporaryPassword,omitempty"`
}

type TenancyChanges struct {
	MoveInDate            *time.Time
	MoveOutDate           *time.Time
	LeaseDurationMonths   *int
	DepositPaid           *decimal.Decimal
	Status                *models.TenancyStatus
	Notes                 *string
	EmergencyContactName  *string
	EmergencyContactPhone *string
}

type DocumentInput struct {
	TenancyID    uuid.UUID
	DocumentType models.DocumentType
	FileKey      string
	Description  string
}

// SyncUnitStatus keeps the unit in step with the tenancy: ACTIVE occupies it and a
// move into VACATED frees it. previous is the status before the write, empty for a new
// tenancy. A SUSPENDED tenancy leaves the unit as it was. It must share the tenancy
// write's transaction.
func SyncUnitStatus(tx *gorm.DB, tenancy *models.Tenancy, previous models.TenancyStatus) error {
	var status models.UnitStatus
	switch {
	case tenancy.Status == models.TenancyActive:
		status = models.UnitOccupied
	case tenancy.Status == models.TenancyVacated && previous != "" && previous != models.TenancyVacated:
		status = models.UnitVacant
	default:
		return nil
	}
	return tx.Model(&models.Unit{}).Where("id = ?", tenancy.UnitID).Update("status", status).Error
}

// Onboard creates a TENANT user and an ACTIVE tenancy on a free unit.
func (s *TenancyService) Onboard(ctx context.Context, actor *models.User, in OnboardInput) (*OnboardResult, error) {
	if !canManage(actor) {
		return nil, utils.NewValidationError("unitId", "only landlords and staff can onboard tenants")
	}
	verr := &utils.ValidationError{}
	if in.Phone != "" && !utils.ValidatePhone(in.Phone) {
		verr.Add("phone", "must be a valid phone number")
	}
	if in.EmergencyContactPhone != "" && !utils.ValidatePhone(in.EmergencyContactPhone) {
		verr.Add("emergencyContactPhone", "must be a valid phone number")
	}
	if in.DepositPaid.IsNegative() {
		verr.Add("depositPaid", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	result := &OnboardResult{}
	password := in.Password
	if password == "" {
		generated, err := utils.GenerateTemporaryPassword()
		if err != nil {
			return nil, err
		}
		password = generated
		result.TemporaryPassword = generated
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	moveIn := in.MoveInDate
	if moveIn.IsZero() {
		moveIn = s.Clock.today()
	}
	lease := in.LeaseDurationMonths
	if lease <= 0 {
		lease = 12
	}

	policy := scope.For(actor)
	tenancy := &models.Tenancy{
		UnitID:                in.UnitID,
		MoveInDate:            moveIn,
		LeaseDurationMonths:   lease,
		DepositPaid:           in.DepositPaid,
		Status:                models.TenancyActive,
		Notes:                 in.Notes,
		EmergencyContactName:  in.EmergencyContactName,
		EmergencyContactPhone: in.EmergencyContactPhone,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unit models.Unit
		if err := tx.Scopes(policy.Scope(scope.Units)).First(&unit, "units.id = ?", in.UnitID).Error; err != nil {
			return notFoundAs(err, "unitId", "unit not found")
		}
		if err := ensureUnitFree(tx, unit.ID, uuid.Nil); err != nil {
			return err
		}

		user := &models.User{
			Username:  in.Username,
			Email:     strings.ToLower(in.Email),
			Password:  hash,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Phone:     in.Phone,
			Role:      models.RoleTenant,
			IsActive:  true,
		}
		if err := ensureIdentityFree(tx, user); err != nil {
			return err
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		tenancy.UserID = user.ID
		if err := tx.Omit(clause.Associations).Create(tenancy).Error; err != nil {
			return err
		}
		if err := SyncUnitStatus(tx, tenancy, ""); err != nil {
			return err
		}
		tenancy.User = user
		tenancy.Unit = &unit
		tenancy.Unit.Status = models.UnitOccupied
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tenant onboarded",
		zap.String("tenancy", tenancy.ID.String()),
		zap.String("unit", tenancy.UnitID.String()),
	)
	result.Tenancy = tenancy
	return result, nil
}

func (s *TenancyService) List(ctx context.Context, policy scope.Policy, status models.TenancyStatus) ([]models.Tenancy, error) {
	q := s.db.WithContext(ctx).
		Scopes(policy.Scope(scope.Tenancies)).
		Preload("User").
		Preload("Unit.Property")
	if status != "" {
		q = q.Where("tenancies.status = ?", status)
	}

	var tenancies []models.Tenancy
	if err := q.Order("tenancies.move_in_date DESC").Find(&tenancies).Error; err != nil {
		return nil, err
	}
	return tenancies, nil
}

func (s *TenancyService) Get(ctx context.Context, policy scope.Policy, id uuid.UUID) (*models.Tenancy, error) {
	var tenancy models.Tenancy
	if err := s.db.WithContext(ctx).
		Scopes(policy.Scope(scope.Tenancies)).
		Preload("User").
		Preload("Unit.Property").
		Preload("Documents").
		First(&tenancy, "tenancies.id = ?", id).Error; err != nil {
		return nil, err
	}
	s.presignDocuments(ctx, tenancy.Documents)
	return &tenancy, nil
}

func (s *TenancyService) Update(ctx context.Context, actor *models.User, id uuid.UUID, ch TenancyChanges) (*models.Tenancy, error) {
	if !canManage(actor) {
		return nil, utils.NewValidationError("id", "only landlords and staff can change tenancies")
	}
	if ch.EmergencyContactPhone != nil && *ch.EmergencyContactPhone != "" && !utils.ValidatePhone(*ch.EmergencyContactPhone) {
		return nil, utils.NewValidationError("emergencyContactPhone", "must be a valid phone number")
	}

	policy := scope.For(actor)
	var tenancy models.Tenancy
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(policy.Scope(scope.Tenancies)).
			First(&tenancy, "tenancies.id = ?", id).Error; err != nil {
			return err
		}
		previous := tenancy.Status

		if ch.MoveInDate != nil {
			tenancy.MoveInDate = *ch.MoveInDate
		}
		if ch.MoveOutDate != nil {
			tenancy.MoveOutDate = ch.MoveOutDate
		}
		if ch.LeaseDurationMonths != nil {
			tenancy.LeaseDurationMonths = *ch.LeaseDurationMonths
		}
		if ch.DepositPaid != nil {
			tenancy.DepositPaid = *ch.DepositPaid
		}
		if ch.Notes != nil {
			tenancy.Notes = *ch.Notes
		}
		if ch.EmergencyContactName != nil {
			tenancy.EmergencyContactName = *ch.EmergencyContactName
		}
		if ch.EmergencyContactPhone != nil {
			tenancy.EmergencyContactPhone = *ch.EmergencyContactPhone
		}
		if ch.Status != nil && *ch.Status != tenancy.Status {
			if *ch.Status == models.TenancyActive {
				if err := ensureUnitFree(tx, tenancy.UnitID, tenancy.ID); err != nil {
					return err
				}
				tenancy.MoveOutDate = nil
			}
			if *ch.Status == models.TenancyVacated && tenancy.MoveOutDate == nil {
				today := s.Clock.today()
				tenancy.MoveOutDate = &today
			}
			tenancy.Status = *ch.Status
		}

		if err := tx.Omit(clause.Associations).Save(&tenancy).Error; err != nil {
			return err
		}
		return SyncUnitStatus(tx, &tenancy, previous)
	})
	if err != nil {
		return nil, err
	}
	return &tenancy, nil
}

// Vacate ends the tenancy on moveOut (today when nil) and frees the unit.
func (s *TenancyService) Vacate(ctx context.Context, actor *models.User, id uuid.UUID, moveOut *time.Time) (*models.Tenancy, error) {
	status := models.TenancyVacated
	if moveOut == nil {
		today := s.Clock.today()
		moveOut = &today
	}
	return s.Update(ctx, actor, id, TenancyChanges{Status: &status, MoveOutDate: moveOut})
}

// Delete removes the tenancy. Deleting an ACTIVE tenancy frees its unit.
func (s *TenancyService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if !canManage(actor) {
		return utils.NewValidationError("id", "only landlords and staff can delete tenancies")
	}
	policy := scope.For(actor)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenancy models.Tenancy
		if err := tx.Scopes(policy.Scope(scope.Tenancies)).
			First(&tenancy, "tenancies.id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&tenancy).Error; err != nil {
			return err
		}
		if tenancy.Status != models.TenancyActive {
			return nil
		}
		return tx.Model(&models.Unit{}).
			Where("id = ? AND status = ?", tenancy.UnitID, models.UnitOccupied).
			Update("status", models.UnitVacant).Error
	})
}

// ActiveTenancy returns the caller's ACTIVE tenancy, if any.
func (s *TenancyService) ActiveTenancy(tx *gorm.DB, userID uuid.UUID) (*models.Tenancy, error) {
	var tenancy models.Tenancy
	err := tx.Where("user_id = ? AND status = ?", userID, models.TenancyActive).
		Order("move_in_date DESC").
		First(&tenancy).Error
	if err != nil {
		return nil, err
	}
	return &tenancy, nil
}

// CurrentTenancy is ActiveTenancy outside a transaction.
func (s *TenancyService) CurrentTenancy(ctx context.Context, userID uuid.UUID) (*models.Tenancy, error) {
	return s.ActiveTenancy(s.db.WithContext(ctx), userID)
}

func (s *TenancyService) ListDocuments(ctx context.Context, policy scope.Policy, tenancyID *uuid.UUID) ([]models.TenantDocument, error) {
	q := s.db.WithContext(ctx).Scopes(policy.Scope(scope.TenantDocuments))
	if tenancyID != nil {
		var tenancy models.Tenancy
		if err := s.db.WithContext(ctx).Scopes(policy.Scope(scope.Tenancies)).
			Select("tenancies.id").
			First(&tenancy, "tenancies.id = ?", *tenancyID).Error; err != nil {
			return nil, err
		}
		q = q.Where("tenant_documents.tenancy_id = ?", tenancy.ID)
	}

	var docs []models.TenantDocument
	if err := q.Order("tenant_documents.created_at DESC").Find(&docs).Error; err != nil {
		return nil, err
	}
	s.presignDocuments(ctx, docs)
	return docs, nil
}

func (s *TenancyService) GetDocument(ctx context.Context, policy scope.Policy, id uuid.UUID) (*models.TenantDocument, error) {
	var doc models.TenantDocument
	if err := s.db.WithContext(ctx).
		Scopes(policy.Scope(scope.TenantDocuments)).
		First(&doc, "tenant_documents.id = ?", id).Error; err != nil {
		return nil, err
	}
	docs := []models.TenantDocument{doc}
	s.presignDocuments(ctx, docs)
	return &docs[0], nil
}

// AddDocument records an already uploaded file against a tenancy the caller can see.
func (s *TenancyService) AddDocument(ctx context.Context, actor *models.User, in DocumentInput) (*models.TenantDocument, error) {
	if strings.TrimSpace(in.FileKey) == "" {
		return nil, utils.NewValidationError("fileKey", "this field is required")
	}
	policy := scope.For(actor)
	doc := &models.TenantDocument{
		TenancyID:    in.TenancyID,
		DocumentType: in.DocumentType,
		FileKey:      in.FileKey,
		Description:  in.Description,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenancy models.Tenancy
		if err := tx.Scopes(policy.Scope(scope.Tenancies)).
			Select("tenancies.id").
			First(&tenancy, "tenancies.id = ?", in.TenancyID).Error; err != nil {
			return notFoundAs(err, "tenancyId", "tenancy not found")
		}
		return tx.Create(doc).Error
	})
	if err != nil {
		return nil, err
	}
	docs := []models.TenantDocument{*doc}
	s.presignDocuments(ctx, docs)
	return &docs[0], nil
}

// DeleteDocument drops the record and then the stored object. A failed object
// delete is logged and leaves an orphan in the bucket.
func (s *TenancyService) DeleteDocument(ctx context.Context, actor *models.User, id uuid.UUID) error {
	policy := scope.For(actor)
	var doc models.TenantDocument
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(policy.Scope(scope.TenantDocuments)).
			First(&doc, "tenant_documents.id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&doc).Error
	})
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, doc.FileKey); err != nil {
		s.logger.Warn("document object not deleted", zap.String("key", doc.FileKey), zap.Error(err))
	}
	return nil
}

func (s *TenancyService) presignDocuments(ctx context.Context, docs []models.TenantDocument) {
	presignAll(ctx, s.blobs, s.logger, len(docs),
		func(i int) string { return docs[i].FileKey },
		func(i int, url string) { docs[i].URL = url },
	)
}

// ensureUnitFree locks the unit row, then checks no other tenancy holds it, so two
// writers cannot both see the unit free.
func ensureUnitFree(tx *gorm.DB, unitID, except uuid.UUID) error {
	var unit models.Unit
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&unit, "id = ?", unitID).Error; err != nil {
		return err
	}

	var count int64
	q := tx.Model(&models.Tenancy{}).Where("unit_id = ? AND status = ?", unitID, models.TenancyActive)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return utils.NewValidationError("unitId", "unit already has an active tenant")
	}
	return nil
}

func ensureIdentityFree(tx *gorm.DB, user *models.User) error {
	verr := &utils.ValidationError{}
	var count int64
	if err := tx.Model(&models.User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		verr.Add("username", "a user with this username already exists")
	}
	if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		verr.Add("email", "a user with this email already exists")
	}
	return verr.OrNil()
}
