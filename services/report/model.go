package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// MemberTotals are lifetime sums of a member's unflagged earnings.
type MemberTotals struct {
	MemberID    string          `json:"member_id"`
	Uploads     decimal.Decimal `json:"uploads"`
	Products    decimal.Decimal `json:"products"`
	Offers      decimal.Decimal `json:"offers"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Paid        decimal.Decimal `json:"paid"`
}

// LedgerRow is one member's line in the monthly admin ledger.
type LedgerRow struct {
	MemberID             string          `json:"member_id"`
	DisplayName          string          `json:"display_name"`
	TotalEarningsUpload  decimal.Decimal `json:"total_earnings_upload"`
	TotalEarningsProduct decimal.Decimal `json:"total_earnings_product"`
	TotalEarningsOffer   decimal.Decimal `json:"total_earnings_offer"`
	Disbursed            bool            `json:"disbursed"`
}

type MemberCompensation struct {
	CompensationID string          `gorm:"column:compensation_id" json:"compensation_id"`
	PayType        string          `gorm:"column:pay_type" json:"pay_type"`
	PayAmount      decimal.Decimal `gorm:"column:pay_amount" json:"pay_amount"`
	StartDate      time.Time       `gorm:"column:start_date" json:"start_date"`
	ExpirationDate time.Time       `gorm:"column:expiration_date" json:"expiration_date"`
	UploadCount    int64           `gorm:"column:upload_count" json:"upload_count"`
	Earned         decimal.Decimal `gorm:"-" json:"earned"`
}
