package compensation

import (
	"time"

	"lookbook-compensation/services/earning"

	"github.com/shopspring/decimal"
)

type PayType string

const (
	PayTypeUpload  PayType = "upload"
	PayTypeProduct PayType = "product"
)

func (p PayType) Valid() bool {
	return p == PayTypeUpload || p == PayTypeProduct
}

func (p PayType) EarningType() earning.Type {
	if p == PayTypeProduct {
		return earning.TypeProduct
	}
	return earning.TypeUpload
}

// Policy pays PayAmount for every approved upload (or tagged product)
// created while it is active. MemberID nil means the policy applies to
// every member.
type Policy struct {
	ID                string          `gorm:"column:id;primaryKey" json:"id"`
	MemberID          *string         `gorm:"column:member_id;index" json:"member_id,omitempty"`
	CreatedBy         string          `gorm:"column:created_by" json:"created_by"`
	PayNum            int             `gorm:"column:pay_num" json:"pay_num"`
	PayType           PayType         `gorm:"column:pay_type;type:varchar(16);index:idx_compensations_lookup" json:"pay_type"`
	PayAmount         decimal.Decimal `gorm:"column:pay_amount;type:decimal(12,2);not null" json:"pay_amount"`
	StartDate         time.Time       `gorm:"column:start_date;index:idx_compensations_lookup" json:"start_date"`
	ExpirationDate    time.Time       `gorm:"column:expiration_date" json:"expiration_date"`
	TotalCompensation decimal.Decimal `gorm:"column:total_compensation;type:decimal(12,2);not null;default:0" json:"total_compensation"`
	CreatedAt         time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Policy) TableName() string { return "compensations" }

// PolicyUpload lists the uploads compensated under a policy, in order.
type PolicyUpload struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	CompensationID string    `gorm:"column:compensation_id;uniqueIndex:idx_compensation_uploads_pair" json:"compensation_id"`
	UploadID       string    `gorm:"column:upload_id;uniqueIndex:idx_compensation_uploads_pair" json:"upload_id"`
	Position       int64     `gorm:"column:position" json:"position"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
}

func (PolicyUpload) TableName() string { return "compensation_uploads" }

type PolicyHistory struct {
	ID             string          `gorm:"column:id;primaryKey" json:"id"`
	CompensationID string          `gorm:"column:compensation_id;index" json:"compensation_id"`
	MemberID       *string         `gorm:"column:member_id" json:"member_id,omitempty"`
	CreatedBy      string          `gorm:"column:created_by" json:"created_by"`
	PayNum         int             `gorm:"column:pay_num" json:"pay_num"`
	PayType        PayType         `gorm:"column:pay_type;type:varchar(16)" json:"pay_type"`
	PayAmount      decimal.Decimal `gorm:"column:pay_amount;type:decimal(12,2)" json:"pay_amount"`
	StartDate      time.Time       `gorm:"column:start_date" json:"start_date"`
	ExpirationDate time.Time       `gorm:"column:expiration_date" json:"expiration_date"`
	CreatedAt      time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (PolicyHistory) TableName() string { return "compensations_history" }

type Outcome string

const (
	OutcomeCredited        Outcome = "credited"
	OutcomeNoActivePolicy  Outcome = "no_active_policy"
	OutcomeAlreadyCredited Outcome = "already_credited"
	OutcomeNotEligible     Outcome = "not_eligible"
)

type SweepSummary struct {
	Scanned  int `json:"scanned"`
	Credited int `json:"credited"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func (s *SweepSummary) add(o SweepSummary) {
	s.Scanned += o.Scanned
	s.Credited += o.Credited
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

type SavePolicyParams struct {
	CreatedBy      string          `json:"created_by" binding:"required"`
	MemberID       *string         `json:"member_id"`
	PayNum         int             `json:"pay_num"`
	PayType        PayType         `json:"pay_type" binding:"required"`
	PayAmount      decimal.Decimal `json:"pay_amount"`
	StartDate      *time.Time      `json:"start_date"`
	ExpirationDate time.Time       `json:"expiration" binding:"required"`
}

type OfferEarningParams struct {
	AnswerID    string          `json:"answer_id" binding:"required"`
	MemberID    string          `json:"member_id"`
	UploadID    string          `json:"upload_id" binding:"required"`
	CustomerID  string          `json:"customer_id"`
	CompanyName string          `json:"company_name"`
	Amount      decimal.Decimal `json:"amount"`
}
