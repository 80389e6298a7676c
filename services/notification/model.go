package notification

import "time"

type Kind string

const (
	KindSuccessfulUpload       Kind = "member_successful_upload"
	KindSuccessfulDisbursement Kind = "member_successful_disbursement"
	KindOfferEarned            Kind = "offer_earned_amount"
)

const (
	PartyAdmin    = "admin"
	PartyMember   = "member"
	PartyCustomer = "customer"
)

type Notification struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	Type         Kind      `gorm:"column:type;type:varchar(64)" json:"type"`
	Title        string    `gorm:"column:title" json:"title"`
	Message      string    `gorm:"column:message;type:text" json:"message"`
	FromUserType string    `gorm:"column:from_user_type" json:"from_user_type"`
	FromUserID   string    `gorm:"column:from_user_id" json:"from_user_id"`
	ToUserType   string    `gorm:"column:to_user_type" json:"to_user_type"`
	ToUserID     string    `gorm:"column:to_user_id;index" json:"to_user_id"`
	ExternalID   string    `gorm:"column:external_id" json:"external_id"`
	Read         bool      `gorm:"column:read;not null;default:false" json:"read"`
	CreatedAt    time.Time `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// Message is what callers hand to Notify. Empty sender fields default to the
// platform admin.
type Message struct {
	Kind         Kind
	Title        string
	Body         string
	FromUserType string
	FromUserID   string
	ToMemberID   string
	ExternalID   string
}
