package onchain

import "github.com/google/uuid"

// idempotencyKey tags each money-moving request so a gateway that saw
// a retried POST can deduplicate it.
func idempotencyKey() string {
	return uuid.NewString()
}
