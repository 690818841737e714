// services/maintenance.go
package services

import (
	"context"
	"errors"
	"strings"

	"elms-backend/models"
	"elms-backend/scope"
	"elms-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAssigneeNotFound is returned by Assign when the named user does not exist.
var ErrAssigneeNotFound = errors.New("assignee not found")

type MaintenanceService struct {
	db      *gorm.DB
	tenancy *TenancyService
	blobs   BlobStore
	logger  *zap.Logger
	Clock   Clock
}

func NewMaintenanceService(db *gorm.DB, tenancy *TenancyService, blobs BlobStore, logger *zap.Logger) *MaintenanceService {
	return &MaintenanceService{db: db, tenancy: tenancy, blobs: blobs, logger: logger.Named("maintenance")}
}

type ComplaintInput struct {
	Title       string
	Description string
	Category    models.ComplaintCategory
	Priority    models.ComplaintPriority
}

// ComplaintChanges is a partial update. Status accepts only CANCELLED; the other
// transitions go through Assign, Resolve and Close.
type ComplaintChanges struct {
	Title           *string
	Description     *string
	Category        *models.ComplaintCategory
	Priority        *models.ComplaintPriority
	Status          *models.ComplaintStatus
	EstimatedCost   *decimal.Decimal
	TechnicianName  *string
	TechnicianPhone *string
}

type ComplaintFilter struct {
	Status   models.ComplaintStatus
	Priority models.ComplaintPriority
	Category models.ComplaintCategory
}

type ComplaintStats struct {
	Total      int64 `json:"total"`
	Submitted  int64 `json:"submitted"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
	Closed     int64 `json:"closed"`
	Urgent     int64 `json:"urgent"`
}

type ImageInput struct {
	ComplaintID uuid.UUID
	ImageKey    string
	Description string
}

// Submit files a complaint against the caller's active tenancy and its unit.
func (s *MaintenanceService) Submit(ctx context.Context, actor *models.User, in ComplaintInput) (*models.Complaint, error) {
	complaint := &models.Complaint{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		Status:      models.ComplaintSubmitted,
		SubmittedAt: s.Clock.now(),
	}
	if complaint.Category == "" {
		complaint.Category = models.CategoryOther
	}
	if complaint.Priority == "" {
		complaint.Priority = models.PriorityMedium
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if actor == nil {
			return utils.NewValidationError("tenancy", "you must be an active tenant to submit complaints")
		}
		tenancy, err := s.tenancy.ActiveTenancy(tx, actor.ID)
		if err != nil {
			return notFoundAs(err, "tenancy", "you must be an active tenant to submit complaints")
		}
		complaint.TenancyID = tenancy.ID
		complaint.UnitID = tenancy.UnitID
		return tx.Omit(clause.Associations).Create(complaint).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("complaint submitted",
		zap.String("complaint", complaint.ID.String()),
		zap.String("priority", string(complaint.Priority)),
	)
	return complaint, nil
}

func (s *MaintenanceService) List(ctx context.Context, policy scope.Policy, filter ComplaintFilter) ([]models.Complaint, error) {
	q := s.db.WithContext(ctx).
		Scopes(policy.Scope(scope.Complaints)).
		Preload("Unit.Property").
		Preload("AssignedTo")
	if filter.Status != "" {
		q = q.Where("complaints.status = ?", filter.Status)
	}
	if filter.Priority != "" {
		q = q.Where("complaints.priority = ?", filter.Priority)
	}
	if filter.Category != "" {
		q = q.Where("complaints.category = ?", filter.Category)
	}

	var complaints []models.Complaint
	if err := q.Order("complaints.submitted_at DESC").Find(&complaints).Error; err != nil {
		return nil, err
	}
	return complaints, nil
}

func (s *MaintenanceService) Get(ctx context.Context, policy scope.Policy, id uuid.UUID) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := s.db.WithContext(ctx).
		Scopes(policy.Scope(scope.Complaints)).
		Preload("Unit.Property").
		Preload("AssignedTo").
		Preload("Images").
		First(&complaint, "complaints.id = ?", id).Error; err != nil {
		return nil, err
	}
	s.presignImages(ctx, complaint.Images)
	return &complaint, nil
}

func (s *MaintenanceService) Update(ctx context.Context, actor *models.User, id uuid.UUID, ch ComplaintChanges) (*models.Complaint, error) {
	verr := &utils.ValidationError{}
	if ch.Status != nil && *ch.Status != models.ComplaintCancelled {
		verr.Add("status", "use the assign, resolve and close actions to progress a complaint")
	}
	if isTenantOnly(actor) && (ch.EstimatedCost != nil || ch.TechnicianName != nil || ch.TechnicianPhone != nil) {
		verr.Add("estimatedCost", "only landlords, caretakers and staff can set costs and technicians")
	}
	if ch.EstimatedCost != nil && ch.EstimatedCost.IsNegative() {
		verr.Add("estimatedCost", "must not be negative")
	}
	if ch.TechnicianPhone != nil && *ch.TechnicianPhone != "" && !utils.ValidatePhone(*ch.TechnicianPhone) {
		verr.Add("technicianPhone", "must be a valid phone number")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	policy := scope.For(actor)
	var complaint models.Complaint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(policy.Scope(scope.Complaints)).
			First(&complaint, "complaints.id = ?", id).Error; err != nil {
			return err
		}

		if ch.Status != nil && complaint.Status != models.ComplaintCancelled {
			if complaint.Status != models.ComplaintSubmitted && complaint.Status != models.ComplaintInProgress {
				return utils.NewValidationError("status", "only submitted or in-progress complaints can be cancelled")
			}
			complaint.Status = models.ComplaintCancelled
		}
		if ch.Title != nil {
			complaint.Title = *ch.Title
		}
		if ch.Description != nil {
			complaint.Description = *ch.Description
		}
		if ch.Category != nil {
			complaint.Category = *ch.Category
		}
		if ch.Priority != nil {
			complaint.Priority = *ch.Priority
		}
		if ch.EstimatedCost != nil {
			complaint.EstimatedCost = ch.EstimatedCost
		}
		if ch.TechnicianName != nil {
			complaint.TechnicianName = *ch.TechnicianName
		}
		if ch.TechnicianPhone != nil {
			complaint.TechnicianPhone = *ch.TechnicianPhone
		}
		return tx.Omit(clause.Associations).Save(&complaint).Error
	})
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (s *MaintenanceService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	policy := scope.For(actor)
	var keys []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var complaint models.Complaint
		if err := tx.Scopes(policy.Scope(scope.Complaints)).
			First(&complaint, "complaints.id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ComplaintImage{}).
			Where("complaint_id = ?", complaint.ID).
			Pluck("image_key", &keys).Error; err != nil {
			return err
		}
		if err := tx.Where("complaint_id = ?", complaint.ID).Delete(&models.ComplaintImage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&complaint).Error
	})
	if err != nil {
		return err
	}
	s.deleteObjects(ctx, keys...)
	return nil
}

// Assign hands the complaint to a caretaker or landlord. A SUBMITTED complaint moves
// to IN_PROGRESS and gets its start time; reassigning keeps the original start time.
func (s *MaintenanceService) Assign(ctx context.Context, actor *models.User, id, assigneeID uuid.UUID) (*models.Complaint, error) {
	if !canManage(actor) {
		return nil, utils.NewValidationError("assignedTo", "only landlords and staff can assign complaints")
	}
	policy := scope.For(actor)
	var complaint models.Complaint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(policy.Scope(scope.Complaints)).
			First(&complaint, "complaints.id = ?", id).Error; err != nil {
			return err
		}

		var assignee models.User
		if err := tx.First(&assignee, "id = ?", assigneeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAssigneeNotFound
			}
			return err
		}
		if !assignee.IsCaretaker() && !assignee.IsLandlord() {
			return utils.NewValidationError("assignedTo", "complaints can only be assigned to caretakers or landlords")
		}

		complaint.AssignedToID = &assignee.ID
		if complaint.Status == models.ComplaintSubmitted {
			now := s.Clock.now()
			complaint.Status = models.ComplaintInProgress
			complaint.StartedAt = &now
		}
		if err := tx.Omit(clause.Associations).Save(&complaint).Error; err != nil {
			return err
		}
		complaint.AssignedTo = &assignee
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("complaint assigned",
		zap.String("complaint", complaint.ID.String()),
		zap.String("assignee", assigneeID.String()),
	)
	return &complaint, nil
}

// Resolve marks the complaint RESOLVED from any state. The actual cost is taken as given.
func (s *MaintenanceService) Resolve(ctx context.Context, actor *models.User, id uuid.UUID, notes string, actualCost *decimal.Decimal) (*models.Complaint, error) {
	if isTenantOnly(actor) {
		return nil, utils.NewValidationError("status", "only landlords, caretakers and staff can resolve complaints")
	}
	return s.transition(ctx, actor, id, func(c *models.Complaint) {
		now := s.Clock.now()
		c.Status = models.ComplaintResolved
		c.ResolvedAt = &now
		c.ResolutionNotes = notes
		c.ActualCost = actualCost
	})
}

func (s *MaintenanceService) Close(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Complaint, error) {
	if isTenantOnly(actor) {
		return nil, utils.NewValidationError("status", "only landlords, caretakers and staff can close complaints")
	}
	return s.transition(ctx, actor, id, func(c *models.Complaint) {
		now := s.Clock.now()
		c.Status = models.ComplaintClosed
		c.ClosedAt = &now
	})
}

func (s *MaintenanceService) transition(ctx context.Context, actor *models.User, id uuid.UUID, apply func(*models.Complaint)) (*models.Complaint, error) {
	policy := scope.For(actor)
	var complaint models.Complaint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(policy.Scope(scope.Complaints)).
			First(&complaint, "complaints.id = ?", id).Error; err != nil {
			return err
		}
		previous := complaint.Status
		apply(&complaint)
		if err := tx.Omit(clause.Associations).Save(&complaint).Error; err != nil {
			return err
		}
		s.logger.Info("complaint status changed",
			zap.String("complaint", complaint.ID.String()),
			zap.String("from", string(previous)),
			zap.String("to", string(complaint.Status)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (s *MaintenanceService) Statistics(ctx context.Context, policy scope.Policy) (*ComplaintStats, error) {
	var rows []struct {
		Status   models.ComplaintStatus
		Priority models.ComplaintPriority
		Count    int64
	}
	if err := s.db.WithContext(ctx).
		Model(&models.Complaint{}).
		Scopes(policy.Scope(scope.Complaints)).
		Select("complaints.status AS status, complaints.priority AS priority, COUNT(*) AS count").
		Group("complaints.status, complaints.priority").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &ComplaintStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case models.ComplaintSubmitted:
			stats.Submitted += row.Count
		case models.ComplaintInProgress:
			stats.InProgress += row.Count
		case models.ComplaintResolved:
			stats.Resolved += row.Count
		case models.ComplaintClosed:
			stats.Closed += row.Count
		}
		if row.Priority == models.PriorityUrgent {
			stats.Urgent += row.Count
		}
	}
	return stats, nil
}

func (s *MaintenanceService) ListImages(ctx context.Context, policy scope.Policy, complaintID *uuid.UUID) ([]models.ComplaintImage, error) {
	q := s.db.WithContext(ctx).Scopes(policy.Scope(scope.ComplaintImages))
	if complaintID != nil {
		q = q.Where("complaint_images.complaint_id = ?", *complaintID)
	}
	var images []models.ComplaintImage
	if err := q.Order("complaint_images.created_at").Find(&images).Error; err != nil {
		return nil, err
	}
	s.presignImages(ctx, images)
	return images, nil
}

// AddImage attaches an uploaded image to a complaint the caller can see.
func (s *MaintenanceService) AddImage(ctx context.Context, actor *models.User, in ImageInput) (*models.ComplaintImage, error) {
	if strings.TrimSpace(in.ImageKey) == "" {
		return nil, utils.NewValidationError("imageKey", "this field is required")
	}
	policy := scope.For(actor)
	image := &models.ComplaintImage{
		ComplaintID: in.ComplaintID,
		ImageKey:    in.ImageKey,
		Description: in.Description,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var complaint models.Complaint
		if err := tx.Scopes(policy.Scope(scope.Complaints)).
			Select("complaints.id").
			First(&complaint, "complaints.id = ?", in.ComplaintID).Error; err != nil {
			return notFoundAs(err, "complaintId", "complaint not found")
		}
		return tx.Create(image).Error
	})
	if err != nil {
		return nil, err
	}
	images := []models.ComplaintImage{*image}
	s.presignImages(ctx, images)
	return &images[0], nil
}

func (s *MaintenanceService) DeleteImage(ctx context.Context, actor *models.User, id uuid.UUID) error {
	policy := scope.For(actor)
	var image models.ComplaintImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(policy.Scope(scope.ComplaintImages)).
			First(&image, "complaint_images.id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&image).Error
	})
	if err != nil {
		return err
	}
	s.deleteObjects(ctx, image.ImageKey)
	return nil
}

func (s *MaintenanceService) presignImages(ctx context.Context, images []models.ComplaintImage) {
	presignAll(ctx, s.blobs, s.logger, len(images),
		func(i int) string { return images[i].ImageKey },
		func(i int, url string) { images[i].URL = url },
	)
}

func (s *MaintenanceService) deleteObjects(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("image object not deleted", zap.String("key", key), zap.Error(err))
		}
	}
}

// isTenantOnly reports whether the caller acts purely as a tenant.
func isTenantOnly(user *models.User) bool {
	return user == nil || (user.IsTenant() && !user.IsAdministrator())
}
