package repository

import (
	"github.com/ivarnor/akidsy/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	CountMembers() (int64, error)
}

// ContentRepository defines the interface for catalog database operations
type ContentRepository interface {
	Create(content *models.Content) error
	GetByID(id uint) (*models.Content, error)
	GetByUUID(uuid string) (*models.Content, error)
	GetPublishedByCategory(category string, offset, limit int) ([]models.Content, error)
	GetAll(offset, limit int) ([]models.Content, error)
	Update(content *models.Content) error
	Delete(id uint) error
	Count() (int64, error)
	CountByCategory(category string) (int64, error)
	IncrementViews(id uint) error
	MostViewed(limit int) ([]models.Content, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User    UserRepository
	Content ContentRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Content: NewContentRepository(db),
	}
}
