package counter

import (
	"context"
	"strconv"

	"github.com/tapcardhq/tapcard/internal/pkg/cache"
)

const (
	webhooksReceivedKey  = "payments:counters:webhooks_received"
	webhooksRejectedKey  = "payments:counters:webhooks_rejected"
	paymentsConfirmedKey = "payments:counters:confirmed"
)

// AddWebhookReceived increments the received-webhook counter for a provider
func AddWebhookReceived(provider string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhooksReceivedKey, provider, 1).Err()
}

// AddWebhookRejected increments the rejected-signature counter for a provider
func AddWebhookRejected(provider string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhooksRejectedKey, provider, 1).Err()
}

// AddPaymentConfirmed increments the confirmed-payment counter for a provider
func AddPaymentConfirmed(provider string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, paymentsConfirmedKey, provider, 1).Err()
}

// Snapshot returns all payment counters keyed by provider.
func Snapshot() (map[string]map[string]int64, error) {
	ctx := context.Background()
	rdb := cache.GetClient()

	out := make(map[string]map[string]int64, 3)
	for name, key := range map[string]string{
		"webhooks_received": webhooksReceivedKey,
		"webhooks_rejected": webhooksRejectedKey,
		"confirmed":         paymentsConfirmedKey,
	} {
		data, err := rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		byProvider := make(map[string]int64, len(data))
		for provider, v := range data {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				byProvider[provider] = n
			}
		}
		out[name] = byProvider
	}
	return out, nil
}
