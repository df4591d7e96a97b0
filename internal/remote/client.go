// Package remote defines the collaborator interface to the design-tool
// document source: the client the ingestion pipeline pulls from and the
// change-notification events the sync controller consumes. Transport
// mechanics live behind the Client interface and are not figdex's concern.
package remote

import (
	"context"
	"errors"
	"time"
)

// ErrDisconnected is returned by sources when the remote tool is not
// reachable.
var ErrDisconnected = errors.New("remote: source disconnected")

// Client is the pull interface the ingestion pipeline consumes.
type Client interface {
	// Connected reports whether the remote source is currently reachable.
	Connected() bool
	// DocumentInfo returns the active document's identity and page list.
	DocumentInfo(ctx context.Context) (*Document, error)
	// NodeTree returns the full subtree rooted at the given node id.
	NodeTree(ctx context.Context, nodeID string) (*Node, error)
	// VariableCollections returns all variable collections in the document.
	VariableCollections(ctx context.Context) ([]VariableCollection, error)
	// LocalVariables returns all local variables in the document.
	LocalVariables(ctx context.Context) ([]Variable, error)
}

// Document identifies the remote document and enumerates its pages.
type Document struct {
	ID    string
	Name  string
	Pages []PageRef
}

// PageRef is one top-level page entry from document info.
type PageRef struct {
	ID   string
	Name string
}

// Node is one element of the remote document tree.
type Node struct {
	ID           string
	Name         string
	Type         string
	ComponentKey string // set on COMPONENT/INSTANCE nodes
	X            *float64
	Y            *float64
	Width        *float64
	Height       *float64
	// BoundVariables maps a property name (fill, stroke, cornerRadius, …)
	// to the variables bound at each positional slot.
	BoundVariables map[string][]BoundVariable
	Children       []*Node
}

// BoundVariable records one property-slot→variable binding on a node.
type BoundVariable struct {
	VariableID string
	Field      string // sub-field within the property, e.g. "color"
}

// Mode is one named variant on a collection's mode axis.
type Mode struct {
	ModeID string
	Name   string
}

// VariableCollection groups variables and defines modes.
type VariableCollection struct {
	ID            string
	Name          string
	Modes         []Mode
	DefaultModeID string
}

// Variable is one design token as delivered by the remote tool.
// ValuesByMode holds the raw per-mode value: a scalar, a color object
// ({r,g,b,a} floats in 0..1), or an alias marker.
type Variable struct {
	ID           string
	Name         string
	ResolvedType string // COLOR | FLOAT | STRING | BOOLEAN
	CollectionID string
	ValuesByMode map[string]any
}

// AliasTarget inspects a raw mode value for the structural marker meaning
// "this value references another variable" and returns the target id.
func AliasTarget(value any) (string, bool) {
	m, ok := value.(map[string]any)
	if !ok {
		return "", false
	}
	if t, _ := m["type"].(string); t != "VARIABLE_ALIAS" {
		return "", false
	}
	id, _ := m["id"].(string)
	return id, id != ""
}

// Change-notification event types. Only document structural changes can
// invalidate the index; selection and page-focus churn never does.
const (
	ChangeTypeDocument  = "document_change"
	ChangeTypeSelection = "selection_change"
	ChangeTypePageFocus = "page_focus_change"
)

// ChangeDetails aggregates what one notification covered.
type ChangeDetails struct {
	NodeCreations   int `json:"nodeCreations"`
	NodeDeletions   int `json:"nodeDeletions"`
	PropertyChanges int `json:"propertyChanges"`
}

// DocumentChange is one typed event from the change-notification channel.
type DocumentChange struct {
	ChangeType string        `json:"changeType"`
	Details    ChangeDetails `json:"details"`
	Timestamp  time.Time     `json:"timestamp"`
}
