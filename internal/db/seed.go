package db

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/config"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
)

// Seed rebuilds the persisted role profiles and, when configured, the
// bootstrap administrator. Should be called after Migrate.
func Seed(db *gorm.DB, app config.AppConfig) error {
	if err := SeedProfiles(db); err != nil {
		return err
	}
	if app.SeedAdminUsername != "" && app.SeedAdminPassword != "" {
		return SeedAdmin(db, app.SeedAdminUsername, app.SeedAdminEmail, app.SeedAdminPassword)
	}
	return nil
}

// SeedPermissions creates every permission code of the role table.
func SeedPermissions(db *gorm.DB) error {
	catalog := roles.Catalog()
	for _, code := range roles.CatalogCodes() {
		resource, action, ok := code.Parse()
		if !ok {
			return fmt.Errorf("malformed permission code %q", code)
		}
		perm := models.Permission{ResourceType: resource, Action: string(action)}
		// Use FirstOrCreate to avoid duplicates
		if err := db.Where("resource_type = ? AND action = ?", resource, string(action)).
			Attrs(models.Permission{Description: catalog[code]}).
			FirstOrCreate(&perm).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedProfiles mirrors the role table: one profile per role whose
// permission set is fully replaced, then every user is pointed at the
// profile of their role.
func SeedProfiles(db *gorm.DB) error {
	// First ensure permissions exist
	if err := SeedPermissions(db); err != nil {
		return err
	}

	for _, role := range roles.All() {
		profile := models.Profile{Name: string(role)}
		if err := db.Where("name = ?", string(role)).
			Attrs(models.Profile{Description: role.Label()}).
			FirstOrCreate(&profile).Error; err != nil {
			return err
		}

		var perms []models.Permission
		for _, code := range roles.Permissions(role) {
			resource, action, _ := code.Parse()
			var perm models.Permission
			if err := db.Where("resource_type = ? AND action = ?", resource, string(action)).First(&perm).Error; err != nil {
				return fmt.Errorf("permission %s: %w", code, err)
			}
			perms = append(perms, perm)
		}
		if err := db.Model(&profile).Association("Permissions").Replace(perms); err != nil {
			return err
		}

		if err := db.Model(&models.User{}).Where("role = ?", string(role)).
			Update("profile_id", profile.ID).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedAdmin creates an active admin account unless the username is taken.
func SeedAdmin(db *gorm.DB, username, email, password string) error {
	var existing models.User
	err := db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var profile models.Profile
	if err := db.Where("name = ?", string(roles.Admin)).First(&profile).Error; err != nil {
		return fmt.Errorf("admin profile: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if email == "" {
		email = username + "@localhost"
	}
	admin := models.User{
		Username:             username,
		Email:                email,
		Password:             string(hash),
		Role:                 roles.Admin,
		IsActive:             true,
		ReceiveNotifications: true,
		Language:             "fr",
		ProfileID:            &profile.ID,
	}
	return db.Create(&admin).Error
}
