package model

// Envelope is the tagged outbox payload. The entity type discriminates the
// record shape so the sync driver dispatches without runtime type inspection.
type Envelope struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Action     Action     `json:"action"`
	Record     Record     `json:"record,omitempty"` // empty for deletes
}
