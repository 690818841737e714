package services

import (
	"errors"
	"time"

	"elms-backend/models"
	"elms-backend/utils"

	"gorm.io/gorm"
)

// Clock returns the current time. Tests pin it to a fixed instant.
type Clock func() time.Time

func (c Clock) today() time.Time {
	if c == nil {
		return utils.BeginningOfDay(time.Now().UTC())
	}
	return utils.BeginningOfDay(c())
}

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

// canManage reports whether user may write portfolio and billing records.
func canManage(user *models.User) bool {
	return user != nil && (user.IsLandlord() || user.IsAdministrator())
}

// notFoundAs turns a missing reference into a field error on the input that named it.
func notFoundAs(err error, field, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NewValidationError(field, message)
	}
	return err
}
