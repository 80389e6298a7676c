package provider

import (
	"fmt"

	"lookbook-compensation/pkg/config"
	"lookbook-compensation/pkg/payment"
	"lookbook-compensation/pkg/payment/venmo"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.provider", fx.Provide(New))

// New builds the Gateway named by PAYMENT.PROVIDER.
func New(cfg *config.Config) (payment.Gateway, error) {
	p := cfg.Payment
	switch p.Provider {
	case venmo.ProviderName, "":
		zap.L().Info("[Payment] using venmo payouts", zap.String("base_url", p.BaseURL))
		return venmo.New(venmo.Config{
			BaseURL:      p.BaseURL,
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			EmailSubject: p.EmailSubject,
			Timeout:      p.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported payment provider %q", p.Provider)
	}
}
