package provider

import (
	"testing"

	"lookbook-compensation/pkg/config"
	"lookbook-compensation/pkg/payment/venmo"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	cfg := &config.Config{}
	cfg.Payment.Provider = "venmo"
	cfg.Payment.BaseURL = "http://localhost"

	gw, err := New(cfg)
	require.NoError(t, err)
	require.IsType(t, &venmo.Client{}, gw)

	cfg.Payment.Provider = "stripe"
	_, err = New(cfg)
	require.Error(t, err)
}
