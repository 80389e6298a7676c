package earning

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeUpload  Type = "upload"
	TypeProduct Type = "product"
	TypeOffer   Type = "offer"
)

func (t Type) Valid() bool {
	switch t {
	case TypeUpload, TypeProduct, TypeOffer:
		return true
	default:
		return false
	}
}

// Entry is one credit owed to a member. Payed only ever moves false to true;
// flagged entries are excluded from disbursement.
type Entry struct {
	ID            string          `gorm:"column:id;primaryKey" json:"id"`
	EntityID      string          `gorm:"column:entity_id;uniqueIndex:idx_member_earnings_entity_type" json:"entity_id"`
	Type          Type            `gorm:"column:type;type:varchar(16);uniqueIndex:idx_member_earnings_entity_type" json:"type"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null" json:"amount"`
	MemberID      string          `gorm:"column:member_id;index:idx_member_earnings_member_created" json:"member_id"`
	Payed         bool            `gorm:"column:payed;not null;default:false" json:"payed"`
	Flagged       bool            `gorm:"column:flagged;not null;default:false" json:"flagged"`
	PaymentDate   *time.Time      `gorm:"column:payment_date" json:"payment_date,omitempty"`
	PaymentNumber *string         `gorm:"column:payment_number" json:"payment_number,omitempty"`
	PayoutBatchID *string         `gorm:"column:payout_batch_id" json:"payout_batch_id,omitempty"`
	CreatedAt     time.Time       `gorm:"column:created_at;index:idx_member_earnings_member_created" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Entry) TableName() string { return "member_earnings" }

// PaymentRef identifies the disbursement that paid a set of entries.
type PaymentRef struct {
	PaidAt        time.Time
	PaymentNumber string
	PayoutBatchID string
}

type TypeTotal struct {
	Type  Type            `gorm:"column:type" json:"type"`
	Payed bool            `gorm:"column:payed" json:"payed"`
	Total decimal.Decimal `gorm:"column:total" json:"total"`
}

type MonthlyTypeTotal struct {
	MemberID string          `gorm:"column:member_id" json:"member_id"`
	Type     Type            `gorm:"column:type" json:"type"`
	Total    decimal.Decimal `gorm:"column:total" json:"total"`
}
