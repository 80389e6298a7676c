package payout

import (
	"fmt"

	"lookbook-compensation/services/earning"
)

// note renders the line item note shown to the member by the wallet.
// subject is the upload or product name; offers have none.
func note(t earning.Type, memberName, amount, subject string) string {
	switch t {
	case earning.TypeOffer:
		return fmt.Sprintf("Congratulations %s! You have been paid %s for answering a Customer's Feedback!", memberName, amount)
	case earning.TypeUpload:
		return fmt.Sprintf("Congratulations %s! You have been paid %s for a picture you uploaded named %q!", memberName, amount, subject)
	case earning.TypeProduct:
		return fmt.Sprintf("Congratulations %s! You have been paid %s for the product %q featured in your upload!", memberName, amount, subject)
	default:
		return fmt.Sprintf("Congratulations %s! You have been paid %s!", memberName, amount)
	}
}
