package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CategoryVideos    = "videos"
	CategoryColoring  = "coloring"
	CategoryEbooks    = "ebooks"
	CategoryPuzzles   = "puzzles"
	CategoryEducation = "education"
)

// ContentCategories lists the valid catalog categories in display order.
var ContentCategories = []string{
	CategoryVideos,
	CategoryColoring,
	CategoryEbooks,
	CategoryPuzzles,
	CategoryEducation,
}

// Content is one catalog item behind the paywall. The media file itself
// lives in object storage under ObjectKey; rows only carry metadata.
type Content struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UUID         string         `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	Title        string         `gorm:"type:varchar(255);not null" json:"title"`
	Slug         string         `gorm:"type:varchar(255);uniqueIndex" json:"slug"`
	Category     string         `gorm:"type:varchar(32);not null;index" json:"category"`
	Description  string         `gorm:"type:text" json:"description"`
	ObjectKey    string         `gorm:"type:varchar(512);not null" json:"-"`
	ThumbnailKey string         `gorm:"type:varchar(512)" json:"-"`
	Duration     string         `gorm:"type:varchar(16)" json:"duration"`
	Views        int64          `gorm:"default:0;index" json:"views"`
	IsPublished  bool           `gorm:"default:false;index" json:"is_published"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID when none was provided.
func (c *Content) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == "" {
		c.UUID = uuid.New().String()
	}
	return nil
}

// IsValidCategory reports whether the given category is part of the catalog.
func IsValidCategory(category string) bool {
	for _, c := range ContentCategories {
		if c == category {
			return true
		}
	}
	return false
}
