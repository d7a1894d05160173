package store

import (
	"context"

	"user-webhook-sync/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUserStore keeps users in a relational database through GORM.
type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

// Migrate creates or updates the users table.
func (s *GormUserStore) Migrate() error {
	if err := s.db.AutoMigrate(&models.User{}); err != nil {
		return &PersistenceError{Op: "migrate", Err: err}
	}
	return nil
}

func (s *GormUserStore) CreateUser(ctx context.Context, externalUserID, email string) (models.User, bool, error) {
	user := models.User{ExternalUserID: externalUserID, Email: email}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_user_id"}},
			DoNothing: true,
		}).
		Create(&user)
	if res.Error != nil {
		return models.User{}, false, &PersistenceError{Op: "create user", Err: res.Error}
	}
	if res.RowsAffected > 0 {
		return user, true, nil
	}

	var existing models.User
	if err := s.db.WithContext(ctx).Where("external_user_id = ?", externalUserID).First(&existing).Error; err != nil {
		return models.User{}, false, &PersistenceError{Op: "find user", Err: err}
	}
	return existing, false, nil
}

func (s *GormUserStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return &PersistenceError{Op: "ping", Err: err}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &PersistenceError{Op: "ping", Err: err}
	}
	return nil
}

func (s *GormUserStore) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
