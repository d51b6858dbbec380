package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
)

// checkAssignee verifies that id, when set, names an active user holding
// one of rs. Failures are reported as a violation on field.
func checkAssignee(tx *gorm.DB, field string, id *uint, rs ...roles.Role) error {
	if id == nil {
		return nil
	}
	var u models.User
	err := tx.Select("id", "role", "is_active").First(&u, *id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return validationError(map[string]string{field: "not_found"}, "%s does not exist", field)
	}
	if err != nil {
		return err
	}
	if !u.IsActive || !u.HasRole(rs...) {
		return validationError(map[string]string{field: "invalid_role"}, "%s must have role %v", field, roles.Strings(rs...))
	}
	return nil
}

// exists reports whether a row of model with id is present.
func exists(tx *gorm.DB, model any, id uint) (bool, error) {
	var n int64
	err := tx.Model(model).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
