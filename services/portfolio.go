// services/portfolio.go
package services

import (
	"context"

	"elms-backend/models"
	"elms-backend/scope"
	"elms-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PortfolioService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPortfolioService(db *gorm.DB, logger *zap.Logger) *PortfolioService {
	return &PortfolioService{db: db, logger: logger.Named("portfolio")}
}

// PropertyInput describes a new property. OwnerID is honoured for staff only;
// landlords always own what they create.
type PropertyInput struct {
	Name         string
	PropertyType models.PropertyType
	Address      string
	City         string
	Description  string
	ImageKey     string
	OwnerID      *uuid.UUID
}

type PropertyChanges struct {
	Name         *string
	PropertyType *models.PropertyType
	Address      *string
	City         *string
	Description  *string
	ImageKey     *string
}

type UnitInput struct {
	PropertyID    uuid.UUID
	UnitNumber    string
	Floor         *int
	Bedrooms      int
	Bathrooms     int
	SizeSqft      *decimal.Decimal
	RentAmount    decimal.Decimal
	DepositAmount *decimal.Decimal
	Status        models.UnitStatus
	Description   string
	ImageKey      string
}

type UnitChanges struct {
	PropertyID    *uuid.UUID
	UnitNumber    *string
	Floor         *int
	Bedrooms      *int
	Bathrooms     *int
	SizeSqft      *decimal.Decimal
	RentAmount    *decimal.Decimal
	DepositAmount *decimal.Decimal
	Status        *models.UnitStatus
	Description   *string
	ImageKey      *string
}

type UnitFilter struct {
	Status     models.UnitStatus
	PropertyID *uuid.UUID
}

type PropertyStats struct {
	TotalProperties int64   `json:"total_properties"`
	TotalUnits      int64   `json:"total_units"`
	OccupiedUnits   int64   `json:"occupied_units"`
	VacantUnits     int64   `json:"vacant_units"`
	OccupancyRate   float64 `json:"occupancy_rate"`
}

// RecountUnits stores the number of units the property currently holds.
// The count is taken inside the UPDATE so concurrent unit writes cannot race it.
func RecountUnits(tx *gorm.DB, propertyID uuid.UUID) error {
	return tx.Model(&models.Property{}).
		Where("id = ?", propertyID).
		Update("total_units", tx.Model(&models.Unit{}).Select("COUNT(*)").Where("units.property_id = ?", propertyID)).Error
}

func (s *PortfolioService) ListProperties(ctx context.Context, policy scope.Policy) ([]models.Property, error) {
	var properties []models.Property
	if err := s.db.WithContext(ctx).
		Scopes(policy.Scope(scope.Properties)).
		Order("properties.name").
		Find(&properties).Error; err != nil {
		return nil, err
	}
	return properties, nil
}

func (s *PortfolioService) GetProperty(ctx context.Context, policy scope.Policy, id uuid.UUID) (*models.Property, error) {
	var property models.Property
	if err := s.db.WithContext(ctx).
		Scopes(policy.Scope(scope.Properties)).
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("units.unit_number") }).
		First(&property, "properties.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

func (s *PortfolioService) CreateProperty(ctx context.Context, actor *models.User, in PropertyInput) (*models.Property, error) {
	if !canManage(actor) {
		return nil, utils.NewValidationError("ownerId", "only landlords and staff can add properties")
	}
	property := &models.Property{
		Name:         in.Name,
		PropertyType: in.PropertyType,
		Address:      in.Address,
		City:         in.City,
		Description:  in.Description,
		ImageKey:     in.ImageKey,
		OwnerID:      actor.ID,
	}
	if property.PropertyType == "" {
		property.PropertyType = models.PropertyApartment
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !actor.IsLandlord() {
			if in.OwnerID == nil {
				return utils.NewValidationError("ownerId", "this field is required")
			}
			var owner models.User
			if err := tx.First(&owner, "id = ?", *in.OwnerID).Error; err != nil {
				return notFoundAs(err, "ownerId", "owner not found")
			}
			if !owner.IsLandlord() {
				return utils.NewValidationError("ownerId", "owner must be a landlord")
			}
			property.OwnerID = owner.ID
		}
		return tx.Omit(clause.Associations).Create(property).Error
	})
	if err != nil {
		return nil, err
	}
	return property, nil
}

func (s *PortfolioService) UpdateProperty(ctx context.Context, actor *models.User, id uuid.UUID, ch PropertyChanges) (*models.Property, error) {
	if !canManage(actor) {
		return nil, utils.NewValidationError("id", "only landlords and staff can change properties")
	}
	policy := scope.For(actor)
	var property models.Property
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(policy.Scope(scope.Properties)).
			First(&property, "properties.id = ?", id).Error; err != nil {
			return err
		}
		if ch.Name != nil {
			property.Name = *ch.Name
		}
		if ch.PropertyType != nil {
			property.PropertyType = *ch.PropertyType
		}
		if ch.Address != nil {
			property.Address = *ch.Address
		}
		if ch.City != nil {
			property.City = *ch.City
		}
		if ch.Description != nil {
			property.Description = *ch.Description
		}
		if ch.ImageKey != nil {
			property.ImageKey = *ch.ImageKey
		}
		return tx.Omit(clause.Associations).Save(&property).Error
	})
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// DeleteProperty refuses while any unit has an active tenant.
func (s *PortfolioService) DeleteProperty(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if !canManage(actor) {
		return utils.NewValidationError("id", "only landlords and staff can delete properties")
	}
	policy := scope.For(actor)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var property models.Property
		if err := tx.Scopes(policy.Scope(scope.Properties)).
			First(&property, "properties.id = ?", id).Error; err != nil {
			return err
		}
		var active int64
		if err := tx.Model(&models.Tenancy{}).
			Joins("JOIN units ON units.id = tenancies.unit_id").
			Where("units.property_id = ? AND tenancies.status = ?", property.ID, models.TenancyActive).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return utils.NewValidationError("id", "property still has active tenants")
		}
		if err := tx.Where("property_id = ?", property.ID).Delete(&models.Unit{}).Error; err != nil {
			return err
		}
		return tx.Delete(&property).Error
	})
}

// PropertyStatistics reports unit occupancy across the caller's visible properties.
func (s *PortfolioService) PropertyStatistics(ctx context.Context, policy scope.Policy) (*PropertyStats, error) {
	db := s.db.WithContext(ctx)

	var ids []uuid.UUID
	if err := db.Model(&models.Property{}).
		Scopes(policy.Scope(scope.Properties)).
		Pluck("properties.id", &ids).Error; err != nil {
		return nil, err
	}
	stats := &PropertyStats{TotalProperties: int64(len(ids))}
	if len(ids) == 0 {
		return stats, nil
	}

	var rows []struct {
		Status models.UnitStatus
		Count  int64
	}
	if err := db.Model(&models.Unit{}).
		Select("status, COUNT(*) AS count").
		Where("property_id IN ?", ids).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.TotalUnits += row.Count
		switch row.Status {
		case models.UnitOccupied:
			stats.OccupiedUnits = row.Count
		case models.UnitVacant:
			stats.VacantUnits = row.Count
		}
	}
	if stats.TotalUnits > 0 {
		stats.OccupancyRate = float64(stats.OccupiedUnits) / float64(stats.TotalUnits) * 100
	}
	return stats, nil
}

func (s *PortfolioService) ListUnits(ctx context.Context, policy scope.Policy, filter UnitFilter) ([]models.Unit, error) {
	q := s.db.WithContext(ctx).Scopes(policy.Scope(scope.Units)).Preload("Property")
	if filter.Status != "" {
		q = q.Where("units.status = ?", filter.Status)
	}
	if filter.PropertyID != nil {
		q = q.Where("units.property_id = ?", *filter.PropertyID)
	}

	var units []models.Unit
	if err := q.Order("units.unit_number").Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// PropertyUnits lists the units of one visible property, optionally only the vacant ones.
func (s *PortfolioService) PropertyUnits(ctx context.Context, policy scope.Policy, propertyID uuid.UUID, vacantOnly bool) ([]models.Unit, error) {
	var property models.Property
	if err := s.db.WithContext(ctx).
		Scopes(policy.Scope(scope.Properties)).
		Select("properties.id").
		First(&property, "properties.id = ?", propertyID).Error; err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Where("property_id = ?", property.ID)
	if vacantOnly {
		q = q.Where("status = ?", models.UnitVacant)
	}
	var units []models.Unit
	if err := q.Order("unit_number").Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

func (s *PortfolioService) GetUnit(ctx context.Context, policy scope.Policy, id uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	if err := s.db.WithContext(ctx).
		Scopes(policy.Scope(scope.Units)).
		Preload("Property").
		First(&unit, "units.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (s *PortfolioService) CreateUnit(ctx context.Context, actor *models.User, in UnitInput) (*models.Unit, error) {
	if !canManage(actor) {
		return nil, utils.NewValidationError("propertyId", "only landlords and staff can add units")
	}
	verr := &utils.ValidationError{}
	if in.RentAmount.IsNegative() {
		verr.Add("rentAmount", "must not be negative")
	}
	if in.Status == models.UnitOccupied {
		verr.Add("status", "a unit becomes OCCUPIED only through an active tenancy")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	policy := scope.For(actor)
	unit := &models.Unit{
		PropertyID:    in.PropertyID,
		UnitNumber:    in.UnitNumber,
		Floor:         in.Floor,
		Bedrooms:      in.Bedrooms,
		Bathrooms:     in.Bathrooms,
		SizeSqft:      in.SizeSqft,
		RentAmount:    in.RentAmount,
		DepositAmount: in.DepositAmount,
		Status:        in.Status,
		Description:   in.Description,
		ImageKey:      in.ImageKey,
	}
	if unit.Status == "" {
		unit.Status = models.UnitVacant
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.visibleProperty(tx, policy, in.PropertyID); err != nil {
			return err
		}
		if err := ensureUnitNumberFree(tx, unit.PropertyID, unit.UnitNumber, uuid.Nil); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(unit).Error; err != nil {
			return err
		}
		return RecountUnits(tx, unit.PropertyID)
	})
	if err != nil {
		return nil, err
	}
	return unit, nil
}

// UpdateUnit applies changes. Moving a unit recounts both properties; a manual status
// change is limited to VACANT or MAINTENANCE on a unit without an active tenant.
func (s *PortfolioService) UpdateUnit(ctx context.Context, actor *models.User, id uuid.UUID, ch UnitChanges) (*models.Unit, error) {
	if !canManage(actor) {
		return nil, utils.NewValidationError("id", "only landlords and staff can change units")
	}
	if ch.RentAmount != nil && ch.RentAmount.IsNegative() {
		return nil, utils.NewValidationError("rentAmount", "must not be negative")
	}

	policy := scope.For(actor)
	var unit models.Unit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(policy.Scope(scope.Units)).
			First(&unit, "units.id = ?", id).Error; err != nil {
			return err
		}
		previousProperty := unit.PropertyID

		if ch.PropertyID != nil && *ch.PropertyID != unit.PropertyID {
			if err := s.visibleProperty(tx, policy, *ch.PropertyID); err != nil {
				return err
			}
			unit.PropertyID = *ch.PropertyID
		}
		if ch.UnitNumber != nil {
			unit.UnitNumber = *ch.UnitNumber
		}
		if ch.PropertyID != nil || ch.UnitNumber != nil {
			if err := ensureUnitNumberFree(tx, unit.PropertyID, unit.UnitNumber, unit.ID); err != nil {
				return err
			}
		}
		if ch.Floor != nil {
			unit.Floor = ch.Floor
		}
		if ch.Bedrooms != nil {
			unit.Bedrooms = *ch.Bedrooms
		}
		if ch.Bathrooms != nil {
			unit.Bathrooms = *ch.Bathrooms
		}
		if ch.SizeSqft != nil {
			unit.SizeSqft = ch.SizeSqft
		}
		if ch.RentAmount != nil {
			unit.RentAmount = *ch.RentAmount
		}
		if ch.DepositAmount != nil {
			unit.DepositAmount = ch.DepositAmount
		}
		if ch.Description != nil {
			unit.Description = *ch.Description
		}
		if ch.ImageKey != nil {
			unit.ImageKey = *ch.ImageKey
		}
		if ch.Status != nil && *ch.Status != unit.Status {
			if *ch.Status == models.UnitOccupied {
				return utils.NewValidationError("status", "a unit becomes OCCUPIED only through an active tenancy")
			}
			if err := ensureUnitFree(tx, unit.ID, uuid.Nil); err != nil {
				return utils.NewValidationError("status", "unit has an active tenant")
			}
			unit.Status = *ch.Status
		}

		if err := tx.Omit(clause.Associations).Save(&unit).Error; err != nil {
			return err
		}
		if previousProperty != unit.PropertyID {
			if err := RecountUnits(tx, previousProperty); err != nil {
				return err
			}
		}
		return RecountUnits(tx, unit.PropertyID)
	})
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// DeleteUnit refuses while the unit has an active tenant.
func (s *PortfolioService) DeleteUnit(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if !canManage(actor) {
		return utils.NewValidationError("id", "only landlords and staff can delete units")
	}
	policy := scope.For(actor)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unit models.Unit
		if err := tx.Scopes(policy.Scope(scope.Units)).
			First(&unit, "units.id = ?", id).Error; err != nil {
			return err
		}
		if err := ensureUnitFree(tx, unit.ID, uuid.Nil); err != nil {
			return err
		}
		if err := tx.Delete(&unit).Error; err != nil {
			return err
		}
		return RecountUnits(tx, unit.PropertyID)
	})
}

func (s *PortfolioService) visibleProperty(tx *gorm.DB, policy scope.Policy, id uuid.UUID) error {
	var property models.Property
	err := tx.Scopes(policy.Scope(scope.Properties)).
		Select("properties.id").
		First(&property, "properties.id = ?", id).Error
	return notFoundAs(err, "propertyId", "property not found")
}

func ensureUnitNumberFree(tx *gorm.DB, propertyID uuid.UUID, number string, except uuid.UUID) error {
	var count int64
	q := tx.Model(&models.Unit{}).Where("property_id = ? AND unit_number = ?", propertyID, number)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return utils.NewValidationError("unitNumber", "this property already has a unit with this number")
	}
	return nil
}
