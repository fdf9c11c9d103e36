package types

// Event is a structured record of a committed state change. Attributes are
// flat string pairs so downstream consumers can index them without a schema.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
