package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

const (
	SubscriptionStatusNone     = "none"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
)

// ActivityLogLimit caps the number of entries kept on a membership's
// activity log to prevent row bloat.
const ActivityLogLimit = 20

// Membership is the durable entitlement record, one row per user. Webhook
// processing locates it by email because the payment provider does not know
// local user ids; the gate reads it by user id on every protected request.
type Membership struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Email              string    `gorm:"type:varchar(200);not null;index" json:"email"`
	IsMember           bool      `gorm:"default:false;index" json:"is_member"`
	SubscriptionStatus string    `gorm:"type:varchar(32);not null;default:'none'" json:"subscription_status"`
	StripeCustomerID   string    `gorm:"type:varchar(191);default:'';index" json:"stripe_customer_id"`
	ActivityLogJSON    string    `gorm:"type:longtext" json:"-"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ActivityEntry is one row of the capped per-member viewing log.
type ActivityEntry struct {
	ContentID uint      `json:"content_id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

// ActivityLog decodes the stored log. A corrupt or empty column yields an
// empty slice rather than an error; the log is best-effort telemetry.
func (m *Membership) ActivityLog() []ActivityEntry {
	if m.ActivityLogJSON == "" {
		return nil
	}
	var entries []ActivityEntry
	if err := json.Unmarshal([]byte(m.ActivityLogJSON), &entries); err != nil {
		return nil
	}
	return entries
}

// AppendActivity adds an entry and trims the log to ActivityLogLimit,
// dropping the oldest entries first.
func (m *Membership) AppendActivity(entry ActivityEntry) error {
	entries := append(m.ActivityLog(), entry)
	if len(entries) > ActivityLogLimit {
		entries = entries[len(entries)-ActivityLogLimit:]
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	m.ActivityLogJSON = string(raw)
	return nil
}

// GetOrCreateMembership returns the membership row for a user, creating the
// default non-member record on first access (lazy creation at signup).
func GetOrCreateMembership(db *gorm.DB, userID uint, email string) (*Membership, error) {
	var m Membership
	if err := db.Where("user_id = ?", userID).First(&m).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			m = Membership{UserID: userID, Email: email, IsMember: false, SubscriptionStatus: SubscriptionStatusNone}
			if err := db.Create(&m).Error; err != nil {
				return nil, err
			}
			return &m, nil
		}
		return nil, err
	}
	return &m, nil
}
