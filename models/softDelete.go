package models

import "time"

// SoftDelete marks a row logically deleted without removing it. The pair is
// set together and never reversed; the purge scheduler removes the row after
// the retention window.
type SoftDelete struct {
	IsDeleted bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt *time.Time `gorm:"index" json:"deleted_at"`
}

func (s *SoftDelete) MarkDeleted(now time.Time) {
	s.IsDeleted = true
	s.DeletedAt = &now
}
