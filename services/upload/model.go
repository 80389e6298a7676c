package upload

import (
	"time"

	"github.com/shopspring/decimal"
)

// Upload is a member's look upload. Moderation sets Approved; the
// compensation engine owns Credited and ProductCredited, each of which moves
// from NULL to true exactly once.
type Upload struct {
	ID                  string              `gorm:"column:id;primaryKey"`
	MemberID            string              `gorm:"column:member_id;index"`
	ProductID           *string             `gorm:"column:product_id"`
	ProductName         string              `gorm:"column:product_name"`
	BrandName           string              `gorm:"column:brand_name"`
	CategoryName        string              `gorm:"column:category_name"`
	Approved            bool                `gorm:"column:approved;not null;default:false;index"`
	Credited            *bool               `gorm:"column:credited"`
	EarnedAmount        decimal.NullDecimal `gorm:"column:earned_amount;type:decimal(12,2)"`
	ProductCredited     *bool               `gorm:"column:product_credited"`
	ProductEarnedAmount decimal.NullDecimal `gorm:"column:product_earned_amount;type:decimal(12,2)"`
	OfferEarnedAmount   decimal.Decimal     `gorm:"column:offer_earned_amount;type:decimal(12,2);not null;default:0"`
	CreatedAt           time.Time           `gorm:"column:created_at;index"`
	UpdatedAt           time.Time           `gorm:"column:updated_at"`
}

func (Upload) TableName() string { return "uploads" }

func (u *Upload) IsCredited() bool {
	return u.Credited != nil && *u.Credited
}

func (u *Upload) IsProductCredited() bool {
	return u.ProductCredited != nil && *u.ProductCredited
}

func (u *Upload) HasProduct() bool {
	return u.ProductID != nil && *u.ProductID != ""
}
