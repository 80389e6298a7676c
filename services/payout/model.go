package payout

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ErrorCodeNoPhone       = "NO_PHONE"
	ErrorCodeMemberFlagged = "MEMBER_FLAGGED"

	// ErrorCodeReconcilePending marks a batch the gateway accepted but whose
	// ledger update failed. The batch is not an error: the money moved.
	ErrorCodeReconcilePending = "RECONCILE_PENDING"
)

// PayoutBatch records one disbursement attempt. Rows are written once and
// never updated; a retry is a new row.
type PayoutBatch struct {
	ID                 string          `gorm:"column:id;primaryKey" json:"id"`
	BatchID            string          `gorm:"column:batch_id;index" json:"batch_id"`
	MemberID           string          `gorm:"column:member_id;index:idx_member_payouts_period" json:"member_id"`
	Provider           string          `gorm:"column:provider" json:"provider"`
	ProviderResponseID *string         `gorm:"column:provider_response_id" json:"provider_response_id,omitempty"`
	Error              bool            `gorm:"column:error;not null;default:false" json:"error"`
	ErrorCode          *string         `gorm:"column:error_code" json:"error_code,omitempty"`
	ErrorMessage       *string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	Month              int             `gorm:"column:month;index:idx_member_payouts_period" json:"month"`
	Year               int             `gorm:"column:year;index:idx_member_payouts_period" json:"year"`
	EntryCount         int             `gorm:"column:entry_count" json:"entry_count"`
	TotalAmount        decimal.Decimal `gorm:"column:total_amount;type:decimal(12,2)" json:"total_amount"`
	CreatedAt          time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (PayoutBatch) TableName() string { return "member_payouts" }

func (b *PayoutBatch) Succeeded() bool { return !b.Error }

func (b *PayoutBatch) PendingReconcile() bool {
	return b.ErrorCode != nil && *b.ErrorCode == ErrorCodeReconcilePending
}

type DisburseRequest struct {
	MemberID string `json:"member_id" binding:"required"`
	Month    int    `json:"month" binding:"required"`
	Year     int    `json:"year" binding:"required"`
}
