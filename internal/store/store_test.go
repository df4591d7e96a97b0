package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/figdex/api"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "figdex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func fp(v float64) *float64 { return &v }

func seedPage(t *testing.T, st *Store, id, name string) {
	t.Helper()
	require.NoError(t, st.UpsertPage(Page{ID: id, Name: name}))
}

func TestOpenReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "figdex.db")
	st, err := Open(path)
	require.NoError(t, err)
	seedPage(t, st, "p1", "Page 1")
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	p, err := st.PageByID("p1")
	require.NoError(t, err)
	assert.Equal(t, "Page 1", p.Name)
}

func TestUpsertNodeIdempotent(t *testing.T) {
	st := newTestStore(t)
	seedPage(t, st, "p1", "Page 1")

	base := time.Unix(1_700_000_000, 0)
	st.now = func() time.Time { return base }

	n := Node{
		FigmaID: "1:2", Name: "Login", Type: "FRAME", PageID: "p1",
		Path: "Page 1/Login", Depth: 1,
		X: fp(10), Y: fp(20), Width: fp(320), Height: fp(240),
		Fingerprint: "abc",
	}
	require.NoError(t, st.UpsertNode(n))

	st.now = func() time.Time { return base.Add(time.Hour) }
	require.NoError(t, st.UpsertNode(n))

	count, err := st.NodeCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := st.NodeByFigmaID("1:2")
	require.NoError(t, err)
	assert.Equal(t, "Login", got.Name)
	assert.Equal(t, "Page 1/Login", got.Path)
	assert.Equal(t, 1, got.Depth)
	require.NotNil(t, got.Width)
	assert.Equal(t, 320.0, *got.Width)
	assert.Equal(t, base.Add(time.Hour).Unix(), got.LastSynced.Unix())
}

func TestNodeByFigmaIDNotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.NodeByFigmaID("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertNodesBatchAndListByType(t *testing.T) {
	st := newTestStore(t)
	seedPage(t, st, "p1", "Page 1")

	nodes := []Node{
		{FigmaID: "1:1", Name: "Page 1", Type: "CANVAS", PageID: "p1", Path: "Page 1"},
		{FigmaID: "1:2", Name: "Login", Type: "FRAME", PageID: "p1", Path: "Page 1/Login", ParentID: "1:1", Depth: 1},
		{FigmaID: "1:3", Name: "Signup", Type: "FRAME", PageID: "p1", Path: "Page 1/Signup", ParentID: "1:1", Depth: 1},
	}
	require.NoError(t, st.UpsertNodes(nodes))

	frames, err := st.NodesByType("FRAME", "p1", 0)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "Login", frames[0].Name)
	assert.Equal(t, "1:1", frames[0].ParentID)

	all, err := st.NodesByType("FRAME", "", 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRecountPage(t *testing.T) {
	st := newTestStore(t)
	seedPage(t, st, "p1", "Page 1")

	require.NoError(t, st.UpsertNodes([]Node{
		{FigmaID: "1:1", Name: "Page 1", Type: "CANVAS", PageID: "p1"},
		{FigmaID: "1:2", Name: "Login", Type: "FRAME", PageID: "p1"},
		{FigmaID: "1:3", Name: "Button", Type: "COMPONENT", PageID: "p1"},
		{FigmaID: "1:4", Name: "Buttons", Type: "COMPONENT_SET", PageID: "p1"},
	}))
	require.NoError(t, st.RecountPage("p1"))

	p, err := st.PageByID("p1")
	require.NoError(t, err)
	assert.Equal(t, 4, p.NodeCount)
	assert.Equal(t, 2, p.ComponentCount)
	assert.Equal(t, 1, p.FrameCount)
}

func TestComponentUsageSurvivesResync(t *testing.T) {
	st := newTestStore(t)

	c := Component{Key: "key1", Name: "Buttons/Primary", Category: "buttons", NodeID: "1:3"}
	require.NoError(t, st.UpsertComponent(c))
	require.NoError(t, st.TouchComponentUsage("key1"))
	require.NoError(t, st.TouchComponentUsage("key1"))

	// A resync re-upserts the component; usage stats must survive.
	require.NoError(t, st.UpsertComponent(c))

	got, err := st.ComponentByKey("key1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.UsageCount)

	assert.ErrorIs(t, st.TouchComponentUsage("missing"), ErrNotFound)
}

func TestComponentsByCategory(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.UpsertComponent(Component{Key: "k1", Name: "Buttons/Primary", Category: "buttons", NodeID: "1:1"}))
	require.NoError(t, st.UpsertComponent(Component{Key: "k2", Name: "Buttons/Ghost", Category: "buttons", NodeID: "1:2"}))
	require.NoError(t, st.UpsertComponent(Component{Key: "k3", Name: "Cards/Basic", Category: "cards", NodeID: "1:3"}))

	got, err := st.ComponentsByCategory("buttons", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Buttons/Ghost", got[0].Name)
}

func TestVariableCascadeDelete(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.UpsertVariableCollection(VariableCollection{
		ID: "c1", Name: "Colors", ModesJSON: `[{"modeId":"m1","name":"Light"}]`, DefaultModeID: "m1",
	}))
	require.NoError(t, st.UpsertVariable(Variable{
		ID: "v1", Name: "colors/primary", ResolvedType: api.ValueColor, CollectionID: "c1",
		Hex: "#570df8", SemanticName: "primary", TokenKind: api.TokenSemantic,
	}))
	require.NoError(t, st.ReplaceModeValues("v1", []ModeValue{
		{VariableID: "v1", ModeID: "m1", Value: "#570df8"},
		{VariableID: "v1", ModeID: "m2", Value: "#3a0ca3"},
	}))
	require.NoError(t, st.UpsertBinding(Binding{
		NodeID: "1:2", Property: "fills", Field: "color", VariableID: "v1",
	}))

	require.NoError(t, st.DeleteVariable("v1"))

	mvs, err := st.ModeValues("v1")
	require.NoError(t, err)
	assert.Empty(t, mvs)

	bs, err := st.BindingsForNode("1:2")
	require.NoError(t, err)
	assert.Empty(t, bs)
}

func TestVariableAliasAndSemanticLookup(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.UpsertVariableCollection(VariableCollection{ID: "c1", Name: "Colors"}))
	require.NoError(t, st.UpsertVariables([]Variable{
		{ID: "v1", Name: "colors/primary", ResolvedType: api.ValueColor, CollectionID: "c1", SemanticName: "primary", TokenKind: api.TokenSemantic},
		{ID: "v2", Name: "colors/accent", ResolvedType: api.ValueColor, CollectionID: "c1", SemanticName: "accent", TokenKind: api.TokenSemantic},
	}))
	require.NoError(t, st.UpsertVariable(Variable{
		ID: "v2", Name: "colors/accent", ResolvedType: api.ValueColor, CollectionID: "c1",
		SemanticName: "accent", TokenKind: api.TokenSemantic, AliasOf: "v1",
	}))

	got, err := st.VariableBySemanticName("accent")
	require.NoError(t, err)
	assert.Equal(t, "v1", got.AliasOf)

	_, err = st.VariableBySemanticName("tertiary")
	assert.ErrorIs(t, err, ErrNotFound)

	vars, err := st.VariablesByCollection("c1", 0)
	require.NoError(t, err)
	assert.Len(t, vars, 2)
}

func TestMetaRoundTrip(t *testing.T) {
	st := newTestStore(t)

	v, err := st.MetaGet("missing")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	require.NoError(t, st.MetaSet(MetaDocumentName, "Design System"))
	require.NoError(t, st.MetaSet(MetaDocumentName, "Design System v2"))

	v, err = st.MetaGet(MetaDocumentName)
	require.NoError(t, err)
	assert.Equal(t, "Design System v2", v)
}

func TestStatsAndClearAll(t *testing.T) {
	st := newTestStore(t)
	seedPage(t, st, "p1", "Page 1")
	require.NoError(t, st.UpsertNode(Node{FigmaID: "1:1", Name: "Page 1", Type: "CANVAS", PageID: "p1"}))
	require.NoError(t, st.UpsertComponent(Component{Key: "k1", Name: "Button", NodeID: "1:1"}))
	require.NoError(t, st.MetaSet(MetaDocumentName, "Doc"))
	require.NoError(t, st.MetaSet(MetaLastFullSync, "1700000000"))
	require.NoError(t, st.MetaSet(MetaInvalidated, "1"))
	require.NoError(t, st.MetaSet(MetaInvalidationReason, "document changed"))

	stats, err := st.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pages)
	assert.Equal(t, int64(1), stats.Nodes)
	assert.Equal(t, int64(1), stats.Components)
	assert.Equal(t, "Doc", stats.DocumentName)
	assert.Equal(t, int64(1_700_000_000), stats.LastFullSync.Unix())
	assert.True(t, stats.Invalidated)
	assert.Equal(t, "document changed", stats.InvalidationReason)

	require.NoError(t, st.ClearAll())

	stats, err = st.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Nodes)
	assert.Equal(t, "", stats.DocumentName)
	assert.False(t, stats.Invalidated)

	// Schema version survives the wipe.
	ver, err := st.MetaGet(MetaSchemaVersion)
	require.NoError(t, err)
	assert.NotEmpty(t, ver)
}
