package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/models"
)

// ActivityService keeps the audit trail.
type ActivityService struct {
	db  *gorm.DB
	log logger.Logger
}

func NewActivityService(db *gorm.DB, log logger.Logger) *ActivityService {
	return &ActivityService{db: db, log: log}
}

// Record appends an entry. Failures are logged, never returned.
func (s *ActivityService) Record(ctx context.Context, userID uint, action models.ActivityAction, description, ip string) {
	entry := models.ActivityLog{Action: action, Description: description, IPAddress: ip}
	if userID != 0 {
		entry.UserID = &userID
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.log.Warn("Failed to record activity", "user_id", userID, "action", action, "error", err)
	}
}

// List returns entries newest first, optionally for one user.
func (s *ActivityService) List(ctx context.Context, userID uint, page Page) (List[models.ActivityLog], error) {
	q := s.db.WithContext(ctx).Model(&models.ActivityLog{})
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	return paginate[models.ActivityLog](q, page, "timestamp DESC, id DESC")
}
