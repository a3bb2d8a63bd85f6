package cache

import (
	"strings"
	"time"
)

const defaultVariantTTL = 15 * time.Minute

// VariantCache remembers the first remote variant of a remote product so
// repeated remote order creation does not refetch the product.
type VariantCache interface {
	GetVariant(remoteProductID string) (string, bool)
	SetVariant(remoteProductID, variantID string)
	Forget(remoteProductID string)
}

type variantCache struct {
	entries Cache[string, string]
	ttl     time.Duration
}

func NewVariantCache() VariantCache {
	return &variantCache{entries: NewTTLCache[string, string](), ttl: defaultVariantTTL}
}

func (c *variantCache) GetVariant(remoteProductID string) (string, bool) {
	key := strings.TrimSpace(remoteProductID)
	if key == "" {
		return "", false
	}
	return c.entries.Get(key)
}

func (c *variantCache) SetVariant(remoteProductID, variantID string) {
	key := strings.TrimSpace(remoteProductID)
	variantID = strings.TrimSpace(variantID)
	if key == "" || variantID == "" {
		return
	}
	c.entries.Set(key, variantID, c.ttl)
}

func (c *variantCache) Forget(remoteProductID string) {
	c.entries.Delete(strings.TrimSpace(remoteProductID))
}
