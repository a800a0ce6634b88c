package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing is a showroom's published call for brands. It has an application window
// (OpenDate..CloseDate) and a partnership window (StartDate..EndDate). Nil bounds are open.
type Listing struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ShowroomID uuid.UUID  `gorm:"column:showroom_id;type:uuid;not null;index" json:"showroom_id"`
	Title      string     `gorm:"column:title;not null" json:"title"`
	OpenDate   *time.Time `gorm:"column:open_date" json:"open_date"`
	CloseDate  *time.Time `gorm:"column:close_date" json:"close_date"`
	StartDate  *time.Time `gorm:"column:start_date" json:"start_date"`
	EndDate    *time.Time `gorm:"column:end_date" json:"end_date"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (Listing) TableName() string {
	return "Listings"
}

// AcceptsApplicationsAt reports whether now falls inside the application window.
func (l Listing) AcceptsApplicationsAt(now time.Time) bool {
	if l.OpenDate != nil && now.Before(*l.OpenDate) {
		return false
	}
	if l.CloseDate != nil && now.After(*l.CloseDate) {
		return false
	}
	return true
}

// BeforeCreate sets id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
