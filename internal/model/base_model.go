package model

import (
	"time"
)

// BaseModel is embedded by every table. Rows are never hard-deleted:
// products are flagged discontinued and orders are kept for audit.
type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
