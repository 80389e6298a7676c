package rediskey

import "fmt"

const (
	PayoutLockPrefix = "payout:lock"
	SweepLockPrefix  = "compensation:sweep:lock"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildPayoutLockKey returns "payout:lock:{memberID}:{year}-{month}"
func BuildPayoutLockKey(memberID string, month, year int) string {
	return NamespaceKey(PayoutLockPrefix, fmt.Sprintf("%s:%04d-%02d", memberID, year, month))
}

// BuildSweepLockKey returns "compensation:sweep:lock:{payType}"
func BuildSweepLockKey(payType string) string {
	return NamespaceKey(SweepLockPrefix, payType)
}
