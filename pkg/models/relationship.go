package models

import "time"

// Fixed relationship types. Location relationship types come from the rules document.
const (
	RelationshipDescribes         = "DESCRIBES"
	RelationshipAssociatedWithOrg = "ASSOCIATED_WITH_ORG"
)

// NodeRef addresses a node by its identity. Records use RecordID, entities use Type and Identity.
type NodeRef struct {
	RecordID string     `json:"record_id,omitempty"`
	Type     EntityType `json:"entity_type,omitempty"`
	Identity string     `json:"canonical_text,omitempty"`
}

func RecordRef(recordID string) NodeRef {
	return NodeRef{RecordID: recordID}
}

func EntityRef(t EntityType, identity string) NodeRef {
	return NodeRef{Type: t, Identity: identity}
}

func (r NodeRef) IsRecord() bool {
	return r.RecordID != ""
}

func (r NodeRef) String() string {
	if r.IsRecord() {
		return r.RecordID
	}
	return string(r.Type) + ":" + r.Identity
}

// Relationship is an edge read back from the graph
type Relationship struct {
	Type      string     `json:"type"`
	Direction string     `json:"direction"`
	Other     NodeRef    `json:"other"`
	Source    string     `json:"source"`
	FirstSeen *time.Time `json:"first_seen,omitempty"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
}

// PersonOverview is one row of the people sample query
type PersonOverview struct {
	Person       string `json:"person"`
	DOB          string `json:"dob,omitempty"`
	Organization string `json:"organization,omitempty"`
	DepartedFrom string `json:"departed_from,omitempty"`
	ArrivedAt    string `json:"arrived_at,omitempty"`
}
