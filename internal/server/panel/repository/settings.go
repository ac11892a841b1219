package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Alwanly/guang-panel/internal/models"
)

type SettingsRepository struct {
	DB *gorm.DB
}

// NewSettingsRepository creates a settings store backed by db
func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{DB: db}
}

// Get returns the stored value and whether one exists
func (r *SettingsRepository) Get(ctx context.Context, category, key string) (string, bool, error) {
	var s models.Setting
	err := r.DB.WithContext(ctx).
		Where("category = ? AND setting_key = ?", category, key).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get setting %s.%s: %w", category, key, err)
	}
	return s.Value, true, nil
}

// Set creates or replaces a setting
func (r *SettingsRepository) Set(ctx context.Context, category, key, value string) error {
	s := models.Setting{Category: category, Key: key, Value: value}
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&s).Error
	if err != nil {
		return fmt.Errorf("failed to save setting %s.%s: %w", category, key, err)
	}
	return nil
}

// All returns every stored setting ordered by category and key
func (r *SettingsRepository) All(ctx context.Context) ([]models.Setting, error) {
	var settings []models.Setting
	if err := r.DB.WithContext(ctx).Order("category, setting_key").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return settings, nil
}
