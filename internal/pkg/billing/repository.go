package billing

import (
	"time"

	"github.com/ivarnor/akidsy/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetMembershipByUserID(userID uint) (*models.Membership, error)
	GetMembershipByEmail(email string) (*models.Membership, error)
	GetMembershipByCustomerRef(stripeCustomerID string) (*models.Membership, error)
	SaveMembership(m *models.Membership) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	RecordWebhookFailure(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetMembershipByUserID(userID uint) (*models.Membership, error) {
	var m models.Membership
	if err := r.db.Where("user_id = ?", userID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) GetMembershipByEmail(email string) (*models.Membership, error) {
	var m models.Membership
	if err := r.db.Where("email = ?", email).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) GetMembershipByCustomerRef(stripeCustomerID string) (*models.Membership, error) {
	var m models.Membership
	if err := r.db.Where("stripe_customer_id = ?", stripeCustomerID).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) SaveMembership(m *models.Membership) error {
	return r.db.Save(m).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

// RecordWebhookFailure stores the error without setting processed_at, so
// the event still counts as unprocessed when the provider redelivers it.
func (r *gormRepository) RecordWebhookFailure(id uint, processingError string) error {
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).
		Update("processing_error", processingError).Error
}
