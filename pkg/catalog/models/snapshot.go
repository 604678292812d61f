package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func init() {
	registerForAutomigration(&Snapshot{})
}

// Snapshot is one point cloud written during a playback session.
type Snapshot struct {
	gorm.Model
	UUID          string
	Session       string `gorm:"index"`
	Recording     string
	FrameIndex    int
	FileName      string
	Points        int
	TimestampUsec int64
}

func (s *Snapshot) BeforeCreate(tx *gorm.DB) error {
	s.UUID = uuid.NewString()
	return nil
}
