package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"scanbrief/pkg/domain"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Username     string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type ProcessedItemModel struct {
	ID             string         `gorm:"primaryKey"`
	UserID         string         `gorm:"not null;index"`
	SourceFilename string         `gorm:"not null"`
	ExtractedText  string         `gorm:"type:text"`
	Summary        string         `gorm:"type:text"`
	Settings       datatypes.JSON `gorm:"type:jsonb"`
	TokenUsage     int            `gorm:"not null"`
	ProcessingMs   int64          `gorm:"not null"`
	StorageKey     string
	CreatedAt      time.Time `gorm:"not null;index"`
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	role := domain.UserRole(m.Role)
	if role == "" {
		role = domain.RoleUser
	}
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         role,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func itemToModel(item domain.ProcessedItem) ProcessedItemModel {
	settings, _ := json.Marshal(item.Settings)
	return ProcessedItemModel{
		ID:             item.ID,
		UserID:         item.UserID,
		SourceFilename: item.SourceFilename,
		ExtractedText:  item.ExtractedText,
		Summary:        item.Summary,
		Settings:       settings,
		TokenUsage:     item.TokenUsage,
		ProcessingMs:   item.ProcessingDuration.Milliseconds(),
		StorageKey:     item.StorageKey,
		CreatedAt:      item.CreatedAt,
	}
}

func itemFromModel(m ProcessedItemModel) domain.ProcessedItem {
	var settings domain.LanguageSettings
	if len(m.Settings) > 0 {
		_ = json.Unmarshal(m.Settings, &settings)
	}
	return domain.ProcessedItem{
		ID:                 m.ID,
		UserID:             m.UserID,
		SourceFilename:     m.SourceFilename,
		ExtractedText:      m.ExtractedText,
		Summary:            m.Summary,
		Settings:           settings,
		TokenUsage:         m.TokenUsage,
		ProcessingDuration: time.Duration(m.ProcessingMs) * time.Millisecond,
		StorageKey:         m.StorageKey,
		CreatedAt:          m.CreatedAt,
	}
}
