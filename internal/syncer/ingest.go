package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/agentic-research/figdex/api"
	"github.com/agentic-research/figdex/internal/remote"
	"github.com/agentic-research/figdex/internal/store"
)

// Classifier assigns token classification to a variable. Supplied by an
// external consumer; the default only derives a semantic lookup key from
// the token's base name.
type Classifier func(v remote.Variable) api.Classification

// NodeHinter supplies externally-derived classification tags for a node:
// a component mapping hint and serialized style hints. Optional.
type NodeHinter func(n *remote.Node) (componentHint, styleHints string)

// Ingestor walks the remote document and bulk-loads normalized rows
// through the store. The walk is strictly sequential and depth-first;
// suspension points are the per-page subtree fetches and per-collection
// variable fetches.
type Ingestor struct {
	Store    *store.Store
	Client   remote.Client
	Classify Classifier // nil → DefaultClassifier
	Hints    NodeHinter // nil → no hints

	// Now stamps the sync timestamp; nil falls back to time.Now.
	Now func() time.Time
}

// pendingBinding defers binding writes until the variable rows they
// reference exist (foreign keys are enforced).
type pendingBinding struct {
	binding store.Binding
}

// BuildIndex performs one full ingestion in three explicit phases:
// skeletal page rows first, then a depth-first node walk committed one
// transaction per page, then recomputed page aggregates. The variable
// phase runs last and is best-effort; its failure never fails the build.
func (ing *Ingestor) BuildIndex(ctx context.Context, opts api.RebuildOptions) (api.SyncStats, error) {
	now := ing.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	var stats api.SyncStats

	doc, err := ing.Client.DocumentInfo(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch document info: %w", err)
	}
	stats.DocumentName = doc.Name
	if err := ing.Store.MetaSet(store.MetaDocumentName, doc.Name); err != nil {
		return stats, err
	}

	// Phase 1: every page row exists before any node references it.
	for _, page := range doc.Pages {
		if err := ing.Store.UpsertPage(store.Page{ID: page.ID, Name: page.Name}); err != nil {
			return stats, err
		}
	}

	// Phase 2: per-page walk. One transaction per page keeps earlier pages
	// durably indexed if a later fetch fails mid-document.
	var bindings []pendingBinding
	for _, page := range doc.Pages {
		tree, err := ing.Client.NodeTree(ctx, page.ID)
		if err != nil {
			return stats, fmt.Errorf("fetch page %s: %w", page.ID, err)
		}

		var nodes []store.Node
		var components []store.Component
		ing.walk(tree, "", "", 0, page.ID, &nodes, &components, &bindings)

		if err := ing.Store.UpsertNodes(nodes); err != nil {
			return stats, err
		}
		for _, c := range components {
			if err := ing.Store.UpsertComponent(c); err != nil {
				return stats, err
			}
		}
		stats.NodesIndexed += len(nodes)
		stats.ComponentsIndexed += len(components)
		stats.PagesIndexed++
	}

	// Phase 3: aggregates from now-current store contents.
	for _, page := range doc.Pages {
		if err := ing.Store.RecountPage(page.ID); err != nil {
			return stats, err
		}
	}

	if !opts.SkipVariables {
		vStats, err := ing.ingestVariables(ctx, bindings)
		if err != nil {
			// Node indexing is the higher-priority capability; token
			// ingestion failing must not fail the sync.
			log.Printf("syncer: variable ingestion skipped: %v", err)
		} else {
			stats.VariablesIndexed = vStats.variables
			stats.CollectionsIndexed = vStats.collections
		}
	}

	if err := ing.Store.MetaSet(store.MetaLastFullSync, strconv.FormatInt(now().Unix(), 10)); err != nil {
		return stats, err
	}

	stats.Duration = now().Sub(start)
	return stats, nil
}

// walk visits the subtree depth-first in source document order, computing
// materialized paths, depth, and fingerprints. The page root itself is
// stored with depth 0 and no parent; its children start at depth 1.
func (ing *Ingestor) walk(n *remote.Node, parentID, parentPath string, depth int, pageID string,
	nodes *[]store.Node, components *[]store.Component, bindings *[]pendingBinding) {
	if n == nil {
		return
	}

	path := n.Name
	if parentPath != "" {
		path = parentPath + "/" + n.Name
	}

	rec := store.Node{
		FigmaID:     n.ID,
		Name:        n.Name,
		Type:        n.Type,
		ParentID:    parentID,
		PageID:      pageID,
		Path:        path,
		Depth:       depth,
		X:           n.X,
		Y:           n.Y,
		Width:       n.Width,
		Height:      n.Height,
		Fingerprint: fingerprint(n),
	}
	if ing.Hints != nil {
		rec.ComponentHint, rec.StyleHints = ing.Hints(n)
	}
	*nodes = append(*nodes, rec)

	if n.ComponentKey != "" {
		*components = append(*components, store.Component{
			Key:      n.ComponentKey,
			Name:     n.Name,
			Category: categorize(n.Name),
			NodeID:   n.ID,
		})
	}

	for prop, slots := range n.BoundVariables {
		for i, bv := range slots {
			*bindings = append(*bindings, pendingBinding{binding: store.Binding{
				NodeID:        n.ID,
				Property:      prop,
				PropertyIndex: i,
				Field:         bv.Field,
				VariableID:    bv.VariableID,
			}})
		}
	}

	for _, child := range n.Children {
		ing.walk(child, n.ID, path, depth+1, pageID, nodes, components, bindings)
	}
}

// categorize derives a coarse component category from the name's leading
// path segment ("Buttons/Primary" → "buttons"). Anything richer is the
// external mapper's job.
func categorize(name string) string {
	head, _, found := strings.Cut(name, "/")
	if !found {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(head))
}

type variableStats struct {
	collections int
	variables   int
}

// ingestVariables loads collection metadata first, then variables, then the
// denormalized per-mode fact rows, then deferred node bindings. Aliases are
// recorded, never resolved eagerly.
func (ing *Ingestor) ingestVariables(ctx context.Context, bindings []pendingBinding) (variableStats, error) {
	var vs variableStats

	cols, err := ing.Client.VariableCollections(ctx)
	if err != nil {
		return vs, fmt.Errorf("fetch variable collections: %w", err)
	}
	defaultModes := make(map[string]string, len(cols))
	for _, col := range cols {
		modes, err := json.Marshal(col.Modes)
		if err != nil {
			return vs, fmt.Errorf("serialize modes for %s: %w", col.ID, err)
		}
		if err := ing.Store.UpsertVariableCollection(store.VariableCollection{
			ID:            col.ID,
			Name:          col.Name,
			ModesJSON:     string(modes),
			DefaultModeID: col.DefaultModeID,
		}); err != nil {
			return vs, err
		}
		defaultModes[col.ID] = col.DefaultModeID
		vs.collections++
	}

	vars, err := ing.Client.LocalVariables(ctx)
	if err != nil {
		return vs, fmt.Errorf("fetch local variables: %w", err)
	}

	classify := ing.Classify
	if classify == nil {
		classify = DefaultClassifier
	}

	// First pass writes every row with alias_of cleared so forward alias
	// references never trip the foreign key; the second pass fills them in.
	records := make([]store.Variable, 0, len(vars))
	var aliased []store.Variable
	for _, v := range vars {
		rec := ing.normalizeVariable(v, defaultModes[v.CollectionID], classify)
		if rec.AliasOf != "" {
			withAlias := rec
			rec.AliasOf = ""
			aliased = append(aliased, withAlias)
		}
		records = append(records, rec)
	}
	if err := ing.Store.UpsertVariables(records); err != nil {
		return vs, err
	}
	for _, rec := range aliased {
		if err := ing.Store.UpsertVariable(rec); err != nil {
			// The alias may point at a remote-library variable with no
			// local row; keep the unaliased record and move on.
			log.Printf("syncer: skip alias on %s: %v", rec.ID, err)
		}
	}
	vs.variables = len(records)

	for _, v := range vars {
		if err := ing.Store.ReplaceModeValues(v.ID, modeValueRows(v)); err != nil {
			return vs, err
		}
	}

	for _, pb := range bindings {
		if err := ing.Store.UpsertBinding(pb.binding); err != nil {
			// Bindings may reference remote-library variables that are not
			// local rows; skip those rather than failing token ingestion.
			log.Printf("syncer: skip binding %s/%s: %v", pb.binding.NodeID, pb.binding.Property, err)
		}
	}

	return vs, nil
}

// normalizeVariable flattens one remote variable into its store row,
// resolving default-mode color representations and alias detection.
func (ing *Ingestor) normalizeVariable(v remote.Variable, defaultMode string, classify Classifier) store.Variable {
	raw, _ := json.Marshal(v.ValuesByMode)
	rec := store.Variable{
		ID:           v.ID,
		Name:         v.Name,
		ResolvedType: api.ValueType(v.ResolvedType),
		CollectionID: v.CollectionID,
		ValuesJSON:   string(raw),
	}

	cls := classify(v)
	rec.SemanticName = cls.SemanticName
	rec.TokenKind = cls.Kind

	value, ok := v.ValuesByMode[defaultMode]
	if !ok {
		return rec
	}
	if target, isAlias := remote.AliasTarget(value); isAlias {
		rec.AliasOf = target
		return rec
	}
	if rec.ResolvedType == api.ValueColor {
		if c, ok := colorValue(value); ok {
			rec.Hex = c.hex()
			rec.RGB = c.rgbString()
			rec.HSL = c.hslString()
		}
	}
	return rec
}

// modeValueRows renders each mode's raw value to its scalar fact row.
func modeValueRows(v remote.Variable) []store.ModeValue {
	out := make([]store.ModeValue, 0, len(v.ValuesByMode))
	for modeID, raw := range v.ValuesByMode {
		out = append(out, store.ModeValue{
			VariableID: v.ID,
			ModeID:     modeID,
			Value:      renderScalar(raw),
		})
	}
	return out
}

func renderScalar(raw any) string {
	if target, ok := remote.AliasTarget(raw); ok {
		return "alias:" + target
	}
	if c, ok := colorValue(raw); ok {
		return c.hex()
	}
	switch v := raw.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		b, _ := json.Marshal(raw)
		return string(b)
	}
}

var systemScaleName = regexp.MustCompile(`\d`)

// DefaultClassifier derives the semantic lookup key from the token's base
// name (last slash segment, lowercased). Names carrying digits are treated
// as raw scale values rather than semantic roles.
func DefaultClassifier(v remote.Variable) api.Classification {
	base := v.Name
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.ToLower(strings.TrimSpace(base))

	kind := api.TokenSemantic
	if systemScaleName.MatchString(base) {
		kind = api.TokenSystem
	}
	return api.Classification{Kind: kind, SemanticName: base}
}
