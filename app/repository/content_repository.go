package repository

import (
	"github.com/ivarnor/akidsy/app/models"
	"gorm.io/gorm"
)

// contentRepository implements the ContentRepository interface
type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new content repository instance
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) Create(content *models.Content) error {
	return r.db.Create(content).Error
}

func (r *contentRepository) GetByID(id uint) (*models.Content, error) {
	var content models.Content
	err := r.db.First(&content, id).Error
	if err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) GetByUUID(uuid string) (*models.Content, error) {
	var content models.Content
	err := r.db.Where("uuid = ?", uuid).First(&content).Error
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// GetPublishedByCategory lists published items for one catalog category,
// newest first
func (r *contentRepository) GetPublishedByCategory(category string, offset, limit int) ([]models.Content, error) {
	var contents []models.Content
	err := r.db.Where("category = ? AND is_published = ?", category, true).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&contents).Error
	return contents, err
}

func (r *contentRepository) GetAll(offset, limit int) ([]models.Content, error) {
	var contents []models.Content
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&contents).Error
	return contents, err
}

func (r *contentRepository) Update(content *models.Content) error {
	return r.db.Save(content).Error
}

func (r *contentRepository) Delete(id uint) error {
	return r.db.Delete(&models.Content{}, id).Error
}

func (r *contentRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Content{}).Count(&count).Error
	return count, err
}

func (r *contentRepository) CountByCategory(category string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Content{}).Where("category = ?", category).Count(&count).Error
	return count, err
}

// IncrementViews bumps the view counter atomically
func (r *contentRepository) IncrementViews(id uint) error {
	return r.db.Model(&models.Content{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

func (r *contentRepository) MostViewed(limit int) ([]models.Content, error) {
	var contents []models.Content
	err := r.db.Where("is_published = ?", true).
		Order("views DESC").
		Limit(limit).
		Find(&contents).Error
	return contents, err
}
