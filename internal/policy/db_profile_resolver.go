package policy

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/gate"
	"github.com/diewo77/sgm/internal/models"
)

// DBProfileResolver fetches user profiles from the database.
// It implements the gate.ProfileResolver interface for uint user IDs.
type DBProfileResolver struct {
	DB *gorm.DB
}

// NewDBProfileResolver creates a new database-backed profile resolver.
func NewDBProfileResolver(db *gorm.DB) *DBProfileResolver {
	return &DBProfileResolver{DB: db}
}

// Resolve looks up the user's profile from the database, preloading
// permissions. It returns nil for unknown or inactive users and for users
// whose profile does not mirror their role.
func (r *DBProfileResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Preload("Profile.Permissions").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive || user.Profile == nil || user.Profile.Name != string(user.Role) {
		return nil, nil
	}
	return newDBProfile(user.Profile), nil
}

// newDBProfile converts a models.Profile into a gate profile.
func newDBProfile(p *models.Profile) gate.Profile {
	perms := make([]gate.Permission, len(p.Permissions))
	for i, perm := range p.Permissions {
		perms[i] = perm.Code()
	}
	return gate.NewStaticProfile(p.ID, p.Name, perms...)
}
