package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID               string `gorm:"primaryKey"`
	Email            string `gorm:"uniqueIndex;not null"`
	PasswordHash     string `gorm:"not null"`
	PreferredGenres  string
	PreferredFormats string
	LanguagePref     string
	OnboardingDone   bool      `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

type BookModel struct {
	ID          string `gorm:"primaryKey"`
	BookKey     string `gorm:"index"`
	Title       string `gorm:"not null"`
	Authors     string
	Genres      string
	Tags        string
	Language    string `gorm:"index"`
	Format      string `gorm:"index"`
	Year        int
	RatingAvg   float64
	RatingCount int
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
}

type FeedbackModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"not null;index"`
	BookID    string `gorm:"not null;index"`
	Rating    float64
	Comment   string
	CreatedAt time.Time `gorm:"not null;index"`
}

type HiddenItemModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;index"`
	BookID    string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type UserAggregatesModel struct {
	UserID         string         `gorm:"primaryKey"`
	GenreAffinity  datatypes.JSON `gorm:"type:jsonb"`
	TagAffinity    datatypes.JSON `gorm:"type:jsonb"`
	AuthorAffinity datatypes.JSON `gorm:"type:jsonb"`
	UpdatedAt      time.Time      `gorm:"not null"`
}

type RecConfigModel struct {
	ID               int `gorm:"primaryKey"`
	EmaAlpha         float64
	Weights          datatypes.JSON `gorm:"type:jsonb"`
	ColdstartSort    string
	SuggestionsLimit int
}
