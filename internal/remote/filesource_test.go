package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `{
  "name": "Design System",
  "document": {
    "id": "0:0",
    "type": "DOCUMENT",
    "children": [
      {
        "id": "p1",
        "name": "Components",
        "type": "CANVAS",
        "children": [
          {
            "id": "1:1",
            "name": "Buttons/Primary",
            "type": "COMPONENT",
            "componentKey": "key-primary",
            "absoluteBoundingBox": {"x": 10, "y": 20.5, "width": 120, "height": 40},
            "boundVariables": {
              "fills": [{"color": {"type": "VARIABLE_ALIAS", "id": "v1"}}],
              "cornerRadius": {"type": "VARIABLE_ALIAS", "id": "v4"}
            }
          },
          {
            "id": "1:2",
            "name": "Login",
            "type": "FRAME",
            "children": [
              {"id": "1:3", "name": "Primary Button", "type": "INSTANCE", "componentKey": "key-primary"}
            ]
          }
        ]
      }
    ]
  },
  "variableCollections": {
    "c1": {
      "id": "c1",
      "name": "Colors",
      "defaultModeId": "m1",
      "modes": [{"modeId": "m1", "name": "Light"}, {"modeId": "m2", "name": "Dark"}]
    }
  },
  "variables": {
    "v1": {
      "id": "v1",
      "name": "colors/primary",
      "resolvedType": "COLOR",
      "variableCollectionId": "c1",
      "valuesByMode": {"m1": {"r": 0.341, "g": 0.051, "b": 0.973, "a": 1}}
    },
    "v4": {
      "id": "v4",
      "name": "radius/md",
      "resolvedType": "FLOAT",
      "variableCollectionId": "c1",
      "valuesByMode": {"m1": 8}
    }
  }
}`

func newTestFileSource(t *testing.T) *FileSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleExport), 0o644))
	fs, err := NewFileSource(path)
	require.NoError(t, err)
	return fs
}

func TestFileSourceDocumentInfo(t *testing.T) {
	fs := newTestFileSource(t)
	assert.True(t, fs.Connected())

	doc, err := fs.DocumentInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0:0", doc.ID)
	assert.Equal(t, "Design System", doc.Name)
	require.Len(t, doc.Pages, 1)
	assert.Equal(t, PageRef{ID: "p1", Name: "Components"}, doc.Pages[0])
}

func TestFileSourceNodeTree(t *testing.T) {
	fs := newTestFileSource(t)

	tree, err := fs.NodeTree(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "CANVAS", tree.Type)
	require.Len(t, tree.Children, 2)

	btn := tree.Children[0]
	assert.Equal(t, "Buttons/Primary", btn.Name)
	assert.Equal(t, "key-primary", btn.ComponentKey)
	require.NotNil(t, btn.Y)
	assert.Equal(t, 20.5, *btn.Y)
	require.NotNil(t, btn.Width)
	assert.Equal(t, 120.0, *btn.Width)

	// Both binding shapes decode: field-scoped array and bare alias.
	require.Len(t, btn.BoundVariables["fills"], 1)
	assert.Equal(t, BoundVariable{VariableID: "v1", Field: "color"}, btn.BoundVariables["fills"][0])
	require.Len(t, btn.BoundVariables["cornerRadius"], 1)
	assert.Equal(t, BoundVariable{VariableID: "v4"}, btn.BoundVariables["cornerRadius"][0])

	// Subtree fetch works from any depth.
	inner, err := fs.NodeTree(context.Background(), "1:2")
	require.NoError(t, err)
	require.Len(t, inner.Children, 1)
	assert.Equal(t, "1:3", inner.Children[0].ID)

	_, err = fs.NodeTree(context.Background(), "nope")
	assert.Error(t, err)
}

func TestFileSourceVariables(t *testing.T) {
	fs := newTestFileSource(t)
	ctx := context.Background()

	cols, err := fs.VariableCollections(ctx)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "m1", cols[0].DefaultModeID)
	require.Len(t, cols[0].Modes, 2)
	assert.Equal(t, Mode{ModeID: "m2", Name: "Dark"}, cols[0].Modes[1])

	vars, err := fs.LocalVariables(ctx)
	require.NoError(t, err)
	require.Len(t, vars, 2)
	byID := map[string]Variable{}
	for _, v := range vars {
		byID[v.ID] = v
	}
	assert.Equal(t, "COLOR", byID["v1"].ResolvedType)
	assert.Equal(t, "c1", byID["v1"].CollectionID)
	assert.NotNil(t, byID["v1"].ValuesByMode["m1"])
}

func TestFileSourceBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileSource(filepath.Join(dir, "absent.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = NewFileSource(bad)
	assert.Error(t, err)

	// Parseable but missing the document id.
	noID := filepath.Join(dir, "noid.json")
	require.NoError(t, os.WriteFile(noID, []byte(`{"name":"x","document":{"children":[]}}`), 0o644))
	fs, err := NewFileSource(noID)
	require.NoError(t, err)
	_, err = fs.DocumentInfo(context.Background())
	assert.Error(t, err)
}

func TestAliasTarget(t *testing.T) {
	id, ok := AliasTarget(map[string]any{"type": "VARIABLE_ALIAS", "id": "v1"})
	assert.True(t, ok)
	assert.Equal(t, "v1", id)

	_, ok = AliasTarget(map[string]any{"type": "VARIABLE_ALIAS"})
	assert.False(t, ok)
	_, ok = AliasTarget(map[string]any{"type": "OTHER", "id": "v1"})
	assert.False(t, ok)
	_, ok = AliasTarget(map[string]any{"r": 1.0, "g": 1.0, "b": 1.0})
	assert.False(t, ok)
	_, ok = AliasTarget("v1")
	assert.False(t, ok)
	_, ok = AliasTarget(nil)
	assert.False(t, ok)
}
