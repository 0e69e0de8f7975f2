package models

import (
	"time"
)

// CollectionDocument is the relational row holding one whole collection as a
// JSON array. Version increases by one on every successful save.
type CollectionDocument struct {
	Name      string    `gorm:"primaryKey;size:64" json:"name"`
	Version   uint64    `gorm:"not null;default:0" json:"version"`
	Data      string    `gorm:"type:text;not null" json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}
