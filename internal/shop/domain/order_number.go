package domain

import (
	"fmt"
	"math/rand/v2"
)

const OrderNumberPrefix = "BLZ"

// NewOrderNumber returns BLZ followed by eight random digits. Uniqueness is
// enforced by the caller against the order table.
func NewOrderNumber() string {
	return fmt.Sprintf("%s%08d", OrderNumberPrefix, rand.IntN(100_000_000))
}
