package store

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/agentic-research/figdex/api"
)

// buildMatchExpr turns a free-text query into an FTS5 MATCH expression:
// whitespace tokens become quoted prefix terms joined with OR, so a
// two-word query matches either word. Letters and digits in any script
// pass through (the unicode61 tokenizer indexes them); everything that
// would break FTS5 tokenization is stripped, not escaped, so malformed
// input degrades to fewer or zero matches rather than erroring. Returns
// "" when nothing searchable remains.
func buildMatchExpr(query string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case unicode.IsSpace(r):
			return ' '
		case r == '-' || r == '_' || r == '/':
			// Word-joining punctuation splits into separate tokens.
			return ' '
		default:
			return -1
		}
	}, query)

	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return ""
	}
	terms := make([]string, len(fields))
	for i, f := range fields {
		terms[i] = `"` + f + `"*`
	}
	return strings.Join(terms, " OR ")
}

// Qualified projections for FTS joins: the index tables share column
// names with their primary tables, so unqualified references are ambiguous.
const (
	nodeColumnsQ = `nodes.id, nodes.figma_id, nodes.name, nodes.type,
	COALESCE(nodes.parent_id, ''), nodes.page_id, nodes.path, nodes.depth,
	nodes.x, nodes.y, nodes.width, nodes.height, nodes.fingerprint,
	nodes.component_hint, nodes.style_hints, nodes.last_synced`

	componentColumnsQ = `components.id, components.key, components.name,
	components.category, components.subcategory, components.node_id,
	components.usage_count, components.last_used, components.last_synced`
)

// SearchNodes runs a ranked full-text search over the node index, joined
// back to the primary table for full field projection. Filters compose as
// parameterized predicates; rank ascends with decreasing relevance, so the
// best match comes first.
func (s *Store) SearchNodes(query string, filter api.SearchFilter, limit int) ([]Node, error) {
	match := buildMatchExpr(query)
	if match == "" {
		return nil, nil
	}

	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + nodeColumnsQ + `
		FROM nodes_fts JOIN nodes ON nodes.id = nodes_fts.rowid
		WHERE nodes_fts MATCH ?`)
	args := []any{match}

	if filter.Type != "" {
		sb.WriteString(` AND nodes.type = ?`)
		args = append(args, filter.Type)
	}
	if filter.PageID != "" {
		sb.WriteString(` AND nodes.page_id = ?`)
		args = append(args, filter.PageID)
	}
	sb.WriteString(` ORDER BY rank LIMIT ?`)
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	args = append(args, clampLimit(limit))

	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search nodes %q: %w", query, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Node
	for rows.Next() {
		n, err := scanNode(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// SearchComponents is the component-table counterpart of SearchNodes.
func (s *Store) SearchComponents(query string, filter api.SearchFilter, limit int) ([]Component, error) {
	match := buildMatchExpr(query)
	if match == "" {
		return nil, nil
	}

	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + componentColumnsQ + `
		FROM components_fts JOIN components ON components.id = components_fts.rowid
		WHERE components_fts MATCH ?`)
	args := []any{match}

	if filter.Category != "" {
		sb.WriteString(` AND components.category = ?`)
		args = append(args, filter.Category)
	}
	sb.WriteString(` ORDER BY rank LIMIT ?`)
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	args = append(args, clampLimit(limit))

	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search components %q: %w", query, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Component
	for rows.Next() {
		c, err := scanComponent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
