package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type TitleModel struct {
	Name        string `gorm:"primaryKey"`
	Author      string `gorm:"not null"`
	Genre       string
	Year        int
	TotalCopies int `gorm:"not null"`
	Available   int `gorm:"not null"`
	Position    int `gorm:"not null"` // first-seen catalog order
}

type WaitingEntryModel struct {
	ID         string `gorm:"primaryKey"`
	Title      string `gorm:"not null;index"`
	Requester  string `gorm:"not null"`
	Contact    datatypes.JSON
	Position   int       `gorm:"not null"` // FIFO order within a title
	EnqueuedAt time.Time `gorm:"not null"`
}

type UserModel struct {
	Username     string    `gorm:"primaryKey"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}
