package models

import "gorm.io/gorm"

// Group is a chat group scans have been captured from. Like User it
// is kept in sync with whatever the ingested messages carry.
type Group struct {
	gorm.Model
	TelegramID string `gorm:"uniqueIndex;not null"`
	Title      string
	Type       string
}
