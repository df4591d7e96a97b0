package store

import (
	"time"

	"github.com/agentic-research/figdex/api"
)

// Node is one indexed element of the remote document tree.
// FigmaID is the stable external identity; Path is denormalized from the
// parent chain and must be recomputed whenever ancestry or name changes.
type Node struct {
	ID       int64
	FigmaID  string
	Name     string
	Type     string
	ParentID string // external id of the parent; empty for the page root
	PageID   string
	Path     string
	Depth    int
	X        *float64
	Y        *float64
	Width    *float64
	Height   *float64
	// Fingerprint is an opaque hash over visually-relevant fields, used
	// only for cheap change detection.
	Fingerprint   string
	ComponentHint string
	StyleHints    string // serialized layout-derived hints from the classifier
	LastSynced    time.Time
}

// Component is a reusable template keyed by its stable remote key.
// UsageCount is incremented by consumers via TouchComponentUsage, never
// during ingestion.
type Component struct {
	ID          int64
	Key         string
	Name        string
	Category    string
	Subcategory string
	NodeID      string // figma id of the source node
	UsageCount  int64
	LastUsed    time.Time
	LastSynced  time.Time
}

// Page is a top-level container. Counts are derived and recomputed on each
// sync; Summary is free text supplied by external tooling.
type Page struct {
	ID             string
	Name           string
	NodeCount      int
	ComponentCount int
	FrameCount     int
	Summary        string
	LastSynced     time.Time
}

// VariableCollection groups variables and defines the mode axis.
type VariableCollection struct {
	ID            string
	Name          string
	ModesJSON     string // ordered [{"modeId":…,"name":…}], serialized
	DefaultModeID string
	LastSynced    time.Time
}

// Variable is one design token. AliasOf is the id of the aliased variable
// when the default-mode value is itself a reference; empty otherwise.
type Variable struct {
	ID           string
	Name         string
	ResolvedType api.ValueType
	CollectionID string
	ValuesJSON   string // raw mode→value map, serialized
	Hex          string
	RGB          string
	HSL          string
	SemanticName string
	TokenKind    api.TokenKind
	AliasOf      string
	LastSynced   time.Time
}

// ModeValue is the normalized one-row-per-(variable, mode) fact.
type ModeValue struct {
	VariableID string
	ModeID     string
	Value      string
}

// Binding records that a node property slot is bound to a variable.
type Binding struct {
	NodeID        string
	Property      string
	PropertyIndex int
	Field         string
	VariableID    string
}

// CacheFile describes one per-document database file on disk.
type CacheFile struct {
	DocumentID string
	Path       string
	Size       int64
	ModTime    time.Time
}
