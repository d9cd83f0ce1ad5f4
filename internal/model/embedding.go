package model

// EntityType identifies which side of a verification an embedding belongs to
type EntityType string

const (
	EntityClaim    EntityType = "claim"
	EntityEvidence EntityType = "evidence"
)

// Valid reports whether the entity type is one of the known values
func (t EntityType) Valid() bool {
	return t == EntityClaim || t == EntityEvidence
}

// Embedding is one stored vector for a claim or evidence item.
// At most one embedding exists per (entity_type, entity_id); re-embedding
// replaces the row entirely.
type Embedding struct {
	EntityType   EntityType `json:"entity_type"`
	EntityID     string     `json:"entity_id"`
	Vector       []float32  `json:"vector"`
	ModelName    string     `json:"model_name"`
	ModelVersion string     `json:"model_version"`
	TenantID     string     `json:"tenant_id"`
}

// EvidenceRef is one retrieval hit: an evidence id with its cosine
// similarity to the claim vector.
type EvidenceRef struct {
	EvidenceID string  `json:"evidence_id"`
	Similarity float64 `json:"similarity"`
}
