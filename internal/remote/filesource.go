package remote

import (
	"context"
	"fmt"
	"os"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// FileSource is a Client backed by a document-export JSON file, for offline
// index builds and replaying captured documents. The export mirrors the
// remote tool's REST shape: a "document" tree whose top-level children are
// CANVAS pages, plus optional "variables" / "variableCollections" maps.
type FileSource struct {
	path string
	root any
}

// Pre-parsed extraction paths.
var (
	pathPages       = jp.MustParseString("$.document.children[*]")
	pathCollections = jp.MustParseString("$.variableCollections.*")
	pathVariables   = jp.MustParseString("$.variables.*")
)

// NewFileSource parses the export at path.
func NewFileSource(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", path, err)
	}
	root, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse export %s: %w", path, err)
	}
	return &FileSource{path: path, root: root}, nil
}

// Connected always reports true; the file is the source.
func (f *FileSource) Connected() bool { return true }

func (f *FileSource) DocumentInfo(_ context.Context) (*Document, error) {
	doc := &Document{
		ID:   str(f.root, "$.document.id"),
		Name: str(f.root, "$.name"),
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("export %s: missing document id", f.path)
	}
	for _, raw := range pathPages.Get(f.root) {
		page, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := page["type"].(string); t != "" && t != "CANVAS" {
			continue
		}
		id, _ := page["id"].(string)
		name, _ := page["name"].(string)
		if id != "" {
			doc.Pages = append(doc.Pages, PageRef{ID: id, Name: name})
		}
	}
	return doc, nil
}

func (f *FileSource) NodeTree(_ context.Context, nodeID string) (*Node, error) {
	raw := findByID(f.root, nodeID)
	if raw == nil {
		return nil, fmt.Errorf("export %s: node %s not found", f.path, nodeID)
	}
	return decodeNode(raw), nil
}

func (f *FileSource) VariableCollections(_ context.Context) ([]VariableCollection, error) {
	var out []VariableCollection
	for _, raw := range pathCollections.Get(f.root) {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		col := VariableCollection{
			ID:            strField(m, "id"),
			Name:          strField(m, "name"),
			DefaultModeID: strField(m, "defaultModeId"),
		}
		if modes, ok := m["modes"].([]any); ok {
			for _, mv := range modes {
				mm, ok := mv.(map[string]any)
				if !ok {
					continue
				}
				col.Modes = append(col.Modes, Mode{
					ModeID: strField(mm, "modeId"),
					Name:   strField(mm, "name"),
				})
			}
		}
		if col.ID != "" {
			out = append(out, col)
		}
	}
	return out, nil
}

func (f *FileSource) LocalVariables(_ context.Context) ([]Variable, error) {
	var out []Variable
	for _, raw := range pathVariables.Get(f.root) {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		v := Variable{
			ID:           strField(m, "id"),
			Name:         strField(m, "name"),
			ResolvedType: strField(m, "resolvedType"),
			CollectionID: strField(m, "variableCollectionId"),
		}
		if vals, ok := m["valuesByMode"].(map[string]any); ok {
			v.ValuesByMode = vals
		}
		if v.ID != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

// findByID walks the parsed document for the node carrying the given id.
func findByID(root any, id string) map[string]any {
	switch v := root.(type) {
	case map[string]any:
		if nid, _ := v["id"].(string); nid == id {
			return v
		}
		for _, child := range v {
			if found := findByID(child, id); found != nil {
				return found
			}
		}
	case []any:
		for _, item := range v {
			if found := findByID(item, id); found != nil {
				return found
			}
		}
	}
	return nil
}

// decodeNode converts one export map (and its children, recursively) into
// the wire Node.
func decodeNode(m map[string]any) *Node {
	n := &Node{
		ID:           strField(m, "id"),
		Name:         strField(m, "name"),
		Type:         strField(m, "type"),
		ComponentKey: strField(m, "componentKey"),
	}
	if box, ok := m["absoluteBoundingBox"].(map[string]any); ok {
		n.X = numField(box, "x")
		n.Y = numField(box, "y")
		n.Width = numField(box, "width")
		n.Height = numField(box, "height")
	}
	if bound, ok := m["boundVariables"].(map[string]any); ok {
		n.BoundVariables = decodeBoundVariables(bound)
	}
	if children, ok := m["children"].([]any); ok {
		for _, c := range children {
			cm, ok := c.(map[string]any)
			if !ok {
				continue
			}
			n.Children = append(n.Children, decodeNode(cm))
		}
	}
	return n
}

// decodeBoundVariables normalizes the export's per-property alias markers:
// a property maps to either one alias object or an array of them.
func decodeBoundVariables(bound map[string]any) map[string][]BoundVariable {
	out := make(map[string][]BoundVariable, len(bound))
	for prop, raw := range bound {
		var slots []any
		if arr, ok := raw.([]any); ok {
			slots = arr
		} else {
			slots = []any{raw}
		}
		for _, slot := range slots {
			sm, ok := slot.(map[string]any)
			if !ok {
				continue
			}
			if id, ok := AliasTarget(sm); ok {
				out[prop] = append(out[prop], BoundVariable{VariableID: id})
				continue
			}
			// Field-scoped form: {"color": {alias}}.
			for field, inner := range sm {
				if id, ok := AliasTarget(inner); ok {
					out[prop] = append(out[prop], BoundVariable{VariableID: id, Field: field})
				}
			}
		}
	}
	return out
}

func str(root any, path string) string {
	x, err := jp.ParseString(path)
	if err != nil {
		return ""
	}
	if got := x.Get(root); len(got) > 0 {
		if s, ok := got[0].(string); ok {
			return s
		}
	}
	return ""
}

func strField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func numField(m map[string]any, key string) *float64 {
	switch v := m[key].(type) {
	case float64:
		return &v
	case int64:
		f := float64(v)
		return &f
	}
	return nil
}

// Verify interface compliance at compile time.
var _ Client = (*FileSource)(nil)
