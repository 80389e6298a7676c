// Package venmo pays members to their Venmo wallet through the PayPal
// Payouts API, addressing each receiver by phone number.
package venmo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lookbook-compensation/pkg/payment"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	ProviderName = "venmo"

	payoutPath = "/v1/payments/payouts"
	tokenPath  = "/v1/oauth2/token"
)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	EmailSubject string
	Timeout      time.Duration
}

type Client struct {
	cfg  Config
	http *resty.Client
}

type senderBatchHeader struct {
	SenderBatchID string `json:"sender_batch_id"`
	EmailSubject  string `json:"email_subject,omitempty"`
	RecipientType string `json:"recipient_type"`
}

type amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type payoutItem struct {
	RecipientType   string `json:"recipient_type"`
	Amount          amount `json:"amount"`
	Note            string `json:"note"`
	Receiver        string `json:"receiver"`
	SenderItemID    string `json:"sender_item_id"`
	RecipientWallet string `json:"recipient_wallet"`
}

type payoutRequest struct {
	SenderBatchHeader senderBatchHeader `json:"sender_batch_header"`
	Items             []payoutItem      `json:"items"`
}

type payoutResponse struct {
	BatchHeader struct {
		PayoutBatchID string `json:"payout_batch_id"`
		BatchStatus   string `json:"batch_status"`
	} `json:"batch_header"`
}

func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")

	tokenClient := &http.Client{Timeout: cfg.Timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, tokenClient)

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + tokenPath,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	r := resty.NewWithClient(cc.Client(ctx)).
		SetBaseURL(base).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		r.SetTimeout(cfg.Timeout)
	}

	return &Client{cfg: cfg, http: r}
}

func (c *Client) Payout(ctx context.Context, batchID string, items []payment.Item) (string, error) {
	req := payoutRequest{
		SenderBatchHeader: senderBatchHeader{
			SenderBatchID: batchID,
			EmailSubject:  c.cfg.EmailSubject,
			RecipientType: "PHONE",
		},
		Items: make([]payoutItem, 0, len(items)),
	}

	for _, it := range items {
		req.Items = append(req.Items, payoutItem{
			RecipientType: "PHONE",
			Amount: amount{
				Value:    it.Amount.StringFixed(2),
				Currency: it.Currency,
			},
			Note:            it.Note,
			Receiver:        it.Receiver,
			SenderItemID:    it.SenderItemID,
			RecipientWallet: "Venmo",
		})
	}

	var (
		out  payoutResponse
		perr payment.Error
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&perr).
		Post(payoutPath)
	if err != nil {
		return "", transportError(ctx, err)
	}

	if resp.IsError() {
		if perr.Name == "" {
			perr.Name = fmt.Sprintf("HTTP_%d", resp.StatusCode())
		}
		if perr.Message == "" {
			perr.Message = http.StatusText(resp.StatusCode())
		}
		perr.StatusCode = resp.StatusCode()

		zap.L().Warn("payout rejected by provider",
			zap.String("batch_id", batchID),
			zap.String("error_name", perr.Name),
			zap.String("debug_id", perr.DebugID),
			zap.Int("status", perr.StatusCode),
		)
		return "", &perr
	}

	if out.BatchHeader.PayoutBatchID == "" {
		return "", &payment.Error{Name: payment.ErrNameInvalid, Message: "provider response has no payout_batch_id"}
	}

	return out.BatchHeader.PayoutBatchID, nil
}

func transportError(ctx context.Context, err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		msg := retrieve.ErrorDescription
		if msg == "" {
			msg = string(retrieve.Body)
		}
		return &payment.Error{Name: "AUTHENTICATION_FAILURE", Message: msg}
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &payment.Error{Name: payment.ErrNameTimeout, Message: "payment gateway did not respond in time"}
	}

	return &payment.Error{Name: payment.ErrNameUnavailable, Message: err.Error()}
}
