package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/auth"
	"github.com/diewo77/sgm/internal/gate"
	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/models"
	"github.com/diewo77/sgm/internal/roles"
)

// ErrInvalidCredentials is returned by Authenticate for unknown users,
// wrong passwords and disabled accounts alike.
var ErrInvalidCredentials = &Error{Kind: gate.ErrUnauthenticated, Message: "invalid credentials"}

// ProfileInvalidator drops cached authorization profiles.
type ProfileInvalidator interface {
	Invalidate(userID uint)
}

// CreateUserInput is the body of user creation and self-registration.
type CreateUserInput struct {
	Username  string     `json:"username" binding:"required,min=3,max=150"`
	Email     string     `json:"email" binding:"required,email,max=255"`
	Password  string     `json:"password" binding:"required,min=8,max=72"`
	FirstName string     `json:"first_name" binding:"max=150"`
	LastName  string     `json:"last_name" binding:"max=150"`
	Phone     string     `json:"phone" binding:"max=20"`
	Role      roles.Role `json:"role"`
	Language  string     `json:"language" binding:"omitempty,max=10"`
}

// UpdateUserInput holds the editable fields of a user. Role and IsActive
// are honoured for admins only.
type UpdateUserInput struct {
	Email                *string     `json:"email" binding:"omitempty,email,max=255"`
	FirstName            *string     `json:"first_name" binding:"omitempty,max=150"`
	LastName             *string     `json:"last_name" binding:"omitempty,max=150"`
	Phone                *string     `json:"phone" binding:"omitempty,max=20"`
	Role                 *roles.Role `json:"role"`
	IsActive             *bool       `json:"is_active"`
	DarkMode             *bool       `json:"dark_mode"`
	ReceiveNotifications *bool       `json:"receive_notifications"`
	Language             *string     `json:"language" binding:"omitempty,max=10"`
}

// UserService manages accounts and keeps each account's profile in sync
// with its role.
type UserService struct {
	db            *gorm.DB
	tokens        *auth.Manager
	invalidator   ProfileInvalidator
	activity      *ActivityService
	notifications *NotificationService
	log           logger.Logger
}

func NewUserService(db *gorm.DB, tokens *auth.Manager, invalidator ProfileInvalidator, activity *ActivityService, notifications *NotificationService, log logger.Logger) *UserService {
	return &UserService{db: db, tokens: tokens, invalidator: invalidator, activity: activity, notifications: notifications, log: log}
}

// SetPermissions assigns role to user inside tx and replaces the user's
// group membership with the role's profile. Callers invalidate the cached
// profile once tx has committed.
func (s *UserService) SetPermissions(ctx context.Context, tx *gorm.DB, user *models.User, role roles.Role) error {
	if !role.Valid() {
		return validationError(map[string]string{"role": "invalid_choice"}, "unknown role %q", role)
	}
	var profile models.Profile
	if err := tx.WithContext(ctx).Where("name = ?", string(role)).First(&profile).Error; err != nil {
		return fmt.Errorf("profile for role %s: %w", role, err)
	}
	if err := tx.WithContext(ctx).Model(user).Updates(map[string]any{"role": role, "profile_id": profile.ID}).Error; err != nil {
		return err
	}
	user.Role, user.ProfileID = role, &profile.ID
	return nil
}

func (s *UserService) invalidate(userID uint) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(userID)
	}
}

// Create registers a user. The requested role is honoured only when actor
// is an admin; everyone else gets the default role.
func (s *UserService) Create(ctx context.Context, in CreateUserInput, actor *models.User) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	role := roles.Default
	if actor != nil && actor.IsAdmin() && in.Role != "" {
		role = in.Role
	}
	if !role.Valid() {
		return nil, validationError(map[string]string{"role": "invalid_choice"}, "unknown role %q", role)
	}
	if err := s.checkUnique(ctx, 0, in.Username, in.Email); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	language := in.Language
	if language == "" {
		language = "fr"
	}
	user := models.User{
		Username:             in.Username,
		Email:                in.Email,
		FirstName:            in.FirstName,
		LastName:             in.LastName,
		Phone:                in.Phone,
		Password:             hash,
		Role:                 role,
		IsActive:             true,
		ReceiveNotifications: true,
		Language:             language,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return duplicateOr(err, "username", "username or email already in use")
		}
		return s.SetPermissions(ctx, tx, &user, role)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(user.ID)
	s.activity.Record(ctx, actorID(actor), models.ActivityCreate, "created user "+user.Username, "")
	return &user, nil
}

func (s *UserService) checkUnique(ctx context.Context, selfID uint, username, email string) error {
	v := map[string]string{}
	var n int64
	if username != "" {
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ? AND id <> ?", username, selfID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			v["username"] = "already_exists"
		}
	}
	if email != "" {
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ? AND id <> ?", email, selfID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			v["email"] = "already_exists"
		}
	}
	if len(v) > 0 {
		return validationError(v, "username or email already in use")
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &u, nil
}

// UserFilter narrows List.
type UserFilter struct {
	Role     roles.Role
	IsActive *bool
}

func (s *UserService) List(ctx context.Context, f UserFilter, page Page) (List[models.User], error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	return paginate[models.User](q, page, "username")
}

// ProfileSummary is a role profile with the number of users holding it.
type ProfileSummary struct {
	models.Profile
	Users int64 `json:"users"`
}

// Profiles lists the seeded role profiles and their permissions.
func (s *UserService) Profiles(ctx context.Context) ([]ProfileSummary, error) {
	var profiles []models.Profile
	if err := s.db.WithContext(ctx).Preload("Permissions").Order("name").Find(&profiles).Error; err != nil {
		return nil, err
	}
	var rows []struct {
		ProfileID uint
		N         int64
	}
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("profile_id, COUNT(*) AS n").
		Where("profile_id IS NOT NULL").
		Group("profile_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.ProfileID] = r.N
	}
	out := make([]ProfileSummary, len(profiles))
	for i, p := range profiles {
		out[i] = ProfileSummary{Profile: p, Users: counts[p.ID]}
	}
	return out, nil
}

// Update applies in to user id. Ownership is checked by the caller;
// role and activation changes additionally require an admin actor.
func (s *UserService) Update(ctx context.Context, id uint, in UpdateUserInput, actor *models.User) (*models.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	isAdmin := actor != nil && actor.IsAdmin()
	if (in.Role != nil && *in.Role != user.Role) || (in.IsActive != nil && *in.IsActive != user.IsActive) {
		if !isAdmin {
			return nil, forbidden("only administrators can change roles or activation")
		}
	}
	if in.Role != nil && !in.Role.Valid() {
		return nil, validationError(map[string]string{"role": "invalid_choice"}, "unknown role %q", *in.Role)
	}

	updates := map[string]any{}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if err := s.checkUnique(ctx, user.ID, "", email); err != nil {
			return nil, err
		}
		updates["email"] = email
	}
	if in.FirstName != nil {
		updates["first_name"] = *in.FirstName
	}
	if in.LastName != nil {
		updates["last_name"] = *in.LastName
	}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}
	if in.DarkMode != nil {
		updates["dark_mode"] = *in.DarkMode
	}
	if in.ReceiveNotifications != nil {
		updates["receive_notifications"] = *in.ReceiveNotifications
	}
	if in.Language != nil {
		updates["language"] = *in.Language
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	roleChanged := in.Role != nil && *in.Role != user.Role

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(user).Updates(updates).Error; err != nil {
				return duplicateOr(err, "email", "email already in use")
			}
		}
		if roleChanged {
			return s.SetPermissions(ctx, tx, user, *in.Role)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if roleChanged || in.IsActive != nil {
		s.invalidate(user.ID)
	}
	s.activity.Record(ctx, actorID(actor), models.ActivityUpdate, "updated user "+user.Username, "")
	return s.Get(ctx, id)
}

// Disable soft-deletes a user.
func (s *UserService) Disable(ctx context.Context, id uint, actor *models.User) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("is_active", false).Error; err != nil {
		return err
	}
	s.invalidate(id)
	s.activity.Record(ctx, actorID(actor), models.ActivityDelete, "disabled user "+user.Username, "")
	return nil
}

// checkPassword enforces the length bounds. The upper bound counts bytes,
// matching what bcrypt accepts.
func checkPassword(password string) error {
	if len(password) < 8 {
		return validationError(map[string]string{"password": "too_short"}, "password must be at least 8 characters")
	}
	if len(password) > auth.MaxPasswordBytes {
		return validationError(map[string]string{"password": "too_long"}, "password must be at most %d bytes", auth.MaxPasswordBytes)
	}
	return nil
}

// SetPassword replaces the password of user id.
func (s *UserService) SetPassword(ctx context.Context, id uint, password string) error {
	if err := checkPassword(password); err != nil {
		return err
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(user).Update("password", hash).Error
}

// Authenticate checks credentials by username or email and records the
// login.
func (s *UserService) Authenticate(ctx context.Context, login, password, ip string) (*models.User, error) {
	login = strings.TrimSpace(login)
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ? OR email = ?", login, strings.ToLower(login)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive || !auth.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	if ip != "" {
		if err := s.db.WithContext(ctx).Model(&user).Update("last_login_ip", ip).Error; err != nil {
			s.log.Warn("Failed to record login ip", "user_id", user.ID, "error", err)
		}
	}
	s.activity.Record(ctx, user.ID, models.ActivityLogin, "login", ip)
	return &user, nil
}

// Logout records the end of a session.
func (s *UserService) Logout(ctx context.Context, userID uint, ip string) {
	s.activity.Record(ctx, userID, models.ActivityLogout, "logout", ip)
}

// Active reports whether userID is an existing active account.
func (s *UserService) Active(ctx context.Context, userID uint) bool {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ? AND is_active = ?", userID, true).Count(&n).Error
	return err == nil && n > 0
}

// RequestPasswordReset emails a reset token to the active account owning
// email. Unknown addresses are silently ignored. The token is returned for
// callers that deliver it themselves; it is empty when nothing was sent.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) string {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(email)), true).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Error("Password reset lookup failed", "error", err)
		}
		return ""
	}
	token, err := s.tokens.IssuePasswordReset(user.ID, user.Password)
	if err != nil {
		s.log.Error("Failed to issue password reset token", "user_id", user.ID, "error", err)
		return ""
	}
	err = s.notifications.SendPrivate(ctx, user.Email, "Password reset",
		"Use this token to choose a new password: "+token,
		"A password reset token was sent to this address.")
	if err != nil {
		s.log.Error("Failed to record password reset email", "user_id", user.ID, "error", err)
		return ""
	}
	return token
}

// ConfirmPasswordReset sets a new password from a reset token. A token
// stops working once the password it was issued for has changed.
func (s *UserService) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	invalid := validationError(map[string]string{"token": "invalid"}, "invalid or expired token")
	claims, err := s.tokens.Parse(token, auth.KindPasswordReset)
	if err != nil {
		return invalid
	}
	uid, _ := claims.UserID()
	user, err := s.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid
		}
		return err
	}
	if !user.IsActive || claims.Fingerprint != auth.Fingerprint(user.Password) {
		return invalid
	}
	return s.SetPassword(ctx, uid, password)
}

func actorID(actor *models.User) uint {
	if actor == nil {
		return 0
	}
	return actor.ID
}
