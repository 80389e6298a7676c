package member

import (
	"strings"
	"time"
)

// Member is the slice of the user profile the payout flow reads.
type Member struct {
	ID          string    `gorm:"column:id;primaryKey"`
	DisplayName string    `gorm:"column:display_name"`
	Email       string    `gorm:"column:email"`
	PhoneNumber *string   `gorm:"column:phone_number"`
	Flagged     bool      `gorm:"column:flagged;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (Member) TableName() string { return "users" }

// Phone returns the trimmed phone number, empty when none is on file.
func (m *Member) Phone() string {
	if m == nil || m.PhoneNumber == nil {
		return ""
	}
	return strings.TrimSpace(*m.PhoneNumber)
}
