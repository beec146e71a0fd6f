package model

import (
	"time"

	"gorm.io/gorm"
)

type History struct {
	gorm.Model
	Outcome    CopyOutcome `gorm:"not null"`
	SrcPath    string      `gorm:"not null"`
	DstPath    string      `gorm:"not null"`
	ErrMsg     string
	MirroredAt time.Time `gorm:"not null"`
}
