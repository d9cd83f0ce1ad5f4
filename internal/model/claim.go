package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// Claim is a natural-language assertion to verify.
type Claim struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Text     string `json:"text"`
}

// EvidenceDoc is one corpus item: the text an entailment classifier uses
// as premise.
type EvidenceDoc struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Text     string `json:"text"`
}

// ClaimID derives a stable identifier from claim text, so re-verifying the
// same claim lands on the same id and prior runs stay comparable.
func ClaimID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "claim-" + hex.EncodeToString(sum[:8])
}
