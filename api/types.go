// Package api holds the types shared across the figdex boundary:
// structured operation results, search filters, and the token
// classification union attached to indexed variables.
package api

import "time"

// ReadyResult reports whether the index can serve queries, and what the
// controller did to get it there.
type ReadyResult struct {
	// Ready is true when the active store has indexed data.
	Ready bool `json:"ready"`
	// Synced is true when this call triggered a sync that completed.
	Synced bool `json:"synced"`
	// Stale is true when cached data is served past the staleness window
	// (remote source unreachable).
	Stale bool `json:"stale"`
	// Message is a human-readable summary of the outcome.
	Message string `json:"message"`
}

// SyncStats summarizes one full index build.
type SyncStats struct {
	DocumentName       string        `json:"document_name"`
	PagesIndexed       int           `json:"pages_indexed"`
	NodesIndexed       int           `json:"nodes_indexed"`
	ComponentsIndexed  int           `json:"components_indexed"`
	VariablesIndexed   int           `json:"variables_indexed"`
	CollectionsIndexed int           `json:"collections_indexed"`
	Duration           time.Duration `json:"duration"`
}

// Stats aggregates per-table row counts for status reporting.
type Stats struct {
	Pages        int64     `json:"pages"`
	Nodes        int64     `json:"nodes"`
	Components   int64     `json:"components"`
	Variables    int64     `json:"variables"`
	Collections  int64     `json:"collections"`
	Bindings     int64     `json:"bindings"`
	LastFullSync time.Time `json:"last_full_sync"`
	DocumentName string    `json:"document_name"`
	Invalidated  bool      `json:"invalidated"`
	// InvalidationReason is the persisted human-readable reason, tagged with
	// the triggering timestamp. Empty when Invalidated is false.
	InvalidationReason string `json:"invalidation_reason,omitempty"`
}

// SearchFilter narrows a full-text search. Zero values mean "no filter".
type SearchFilter struct {
	Type     string `json:"type,omitempty"`
	PageID   string `json:"page_id,omitempty"`
	Category string `json:"category,omitempty"`
}

// RebuildOptions controls a forced resync.
type RebuildOptions struct {
	// SkipVariables disables the best-effort variable phase.
	SkipVariables bool `json:"skip_variables,omitempty"`
}

// TokenKind classifies where a design token sits in the theme vocabulary.
type TokenKind string

const (
	TokenUnknown  TokenKind = ""
	TokenSemantic TokenKind = "semantic" // named for a role: primary, accent
	TokenSystem   TokenKind = "system"   // raw scale value: gray-200, spacing-4
)

// ValueType is the resolved type of a variable, a closed enumeration
// matching the remote tool's variable model.
type ValueType string

const (
	ValueColor   ValueType = "COLOR"
	ValueFloat   ValueType = "FLOAT"
	ValueString  ValueType = "STRING"
	ValueBoolean ValueType = "BOOLEAN"
)

// Classification is the typed result an external classifier assigns to a
// variable. Consumers switch on Kind instead of probing optional fields.
type Classification struct {
	Kind TokenKind `json:"kind"`
	// SemanticName is the lookup key consumers use (e.g. "primary").
	SemanticName string `json:"semantic_name,omitempty"`
	// Role is a free-form semantic tag within the kind (e.g. "brand").
	Role string `json:"role,omitempty"`
}
