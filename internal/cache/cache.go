package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache stores serialized analytics results keyed per merchant.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// InvalidateMerchant drops every entry whose key was built for merchantID.
	InvalidateMerchant(ctx context.Context, merchantID int64) error
}

// Key builds "merchantID|prefix|parts...". The merchant leads so a single
// prefix match finds every entry of one merchant.
func Key(prefix string, merchantID int64, parts ...string) string {
	segments := make([]string, 0, 2+len(parts))
	segments = append(segments, fmt.Sprint(merchantID), prefix)
	segments = append(segments, parts...)
	return strings.Join(segments, "|")
}

func merchantPrefix(merchantID int64) string {
	return fmt.Sprint(merchantID) + "|"
}

func belongsToMerchant(key string, merchantID int64) bool {
	return strings.HasPrefix(key, merchantPrefix(merchantID))
}
