package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	ErrNameTimeout     = "TIMEOUT"
	ErrNameUnavailable = "GATEWAY_UNAVAILABLE"
	ErrNameInvalid     = "INVALID_RESPONSE"
)

// Item is one line of a payout batch.
type Item struct {
	Amount       decimal.Decimal
	Currency     string
	Note         string
	Receiver     string
	SenderItemID string
}

// Gateway submits a payout batch and returns the provider's batch id.
type Gateway interface {
	Payout(ctx context.Context, batchID string, items []Item) (string, error)
}

// Error is the structured failure reported by a gateway.
type Error struct {
	Name       string `json:"name"`
	Message    string `json:"message"`
	DebugID    string `json:"debug_id,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *Error) Error() string {
	if e.DebugID != "" {
		return fmt.Sprintf("%s: %s (debug_id=%s)", e.Name, e.Message, e.DebugID)
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

// AsError converts any gateway failure into an *Error. Context deadlines map
// to TIMEOUT, unknown failures to GATEWAY_UNAVAILABLE.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Name: ErrNameTimeout, Message: "payment gateway did not respond in time"}
	}

	return &Error{Name: ErrNameUnavailable, Message: err.Error()}
}
