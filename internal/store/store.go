// Package store is the single owner of a per-document SQLite index: schema
// migrations, typed upsert/get/list operations, and the FTS5 search path.
// Storage errors propagate to the caller unwrapped in meaning; the layer
// performs no silent recovery.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/agentic-research/figdex/api"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by point lookups when no row matches.
var ErrNotFound = errors.New("store: not found")

// Default result caps for list operations.
const (
	DefaultListLimit   = 20
	MaxListLimit       = 10000
	DefaultSearchLimit = 20
)

// Store wraps one open per-document database. It is the only component
// holding this connection; see Manager for the partition lifecycle.
type Store struct {
	db   *sql.DB
	path string

	// now stamps last_synced on upserts; replaced in tests.
	now func() time.Time
}

// Open opens (or creates) the database at path, enables WAL durability and
// foreign-key enforcement, and applies pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection: the store is exclusively owned within the process and
	// modernc's driver serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path backing this store.
func (s *Store) Path() string { return s.path }

// Close flushes and closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Pages
// ---------------------------------------------------------------------------

const upsertPageSQL = `
	INSERT INTO pages (id, name, node_count, component_count, frame_count, summary, last_synced)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		summary = excluded.summary,
		last_synced = excluded.last_synced`

// UpsertPage inserts or updates a page row. Derived counts are not touched
// here; RecountPage owns them.
func (s *Store) UpsertPage(p Page) error {
	_, err := s.db.Exec(upsertPageSQL,
		p.ID, p.Name, p.NodeCount, p.ComponentCount, p.FrameCount, p.Summary, s.now().Unix())
	if err != nil {
		return fmt.Errorf("upsert page %s: %w", p.ID, err)
	}
	return nil
}

// RecountPage recomputes the derived node/component/frame counts for a page
// from current store contents and writes them back.
func (s *Store) RecountPage(pageID string) error {
	_, err := s.db.Exec(`
		UPDATE pages SET
			node_count = (SELECT COUNT(*) FROM nodes WHERE page_id = ?),
			component_count = (SELECT COUNT(*) FROM nodes WHERE page_id = ? AND type IN ('COMPONENT', 'COMPONENT_SET')),
			frame_count = (SELECT COUNT(*) FROM nodes WHERE page_id = ? AND type = 'FRAME'),
			last_synced = ?
		WHERE id = ?`,
		pageID, pageID, pageID, s.now().Unix(), pageID)
	if err != nil {
		return fmt.Errorf("recount page %s: %w", pageID, err)
	}
	return nil
}

// PageByID returns one page row.
func (s *Store) PageByID(id string) (*Page, error) {
	row := s.db.QueryRow(`
		SELECT id, name, node_count, component_count, frame_count, summary, last_synced
		FROM pages WHERE id = ?`, id)
	var p Page
	var synced int64
	err := row.Scan(&p.ID, &p.Name, &p.NodeCount, &p.ComponentCount, &p.FrameCount, &p.Summary, &synced)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get page %s: %w", id, err)
	}
	p.LastSynced = time.Unix(synced, 0)
	return &p, nil
}

// ListPages returns all pages in id order.
func (s *Store) ListPages() ([]Page, error) {
	rows, err := s.db.Query(`
		SELECT id, name, node_count, component_count, frame_count, summary, last_synced
		FROM pages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Page
	for rows.Next() {
		var p Page
		var synced int64
		if err := rows.Scan(&p.ID, &p.Name, &p.NodeCount, &p.ComponentCount, &p.FrameCount, &p.Summary, &synced); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		p.LastSynced = time.Unix(synced, 0)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------------

const upsertNodeSQL = `
	INSERT INTO nodes (figma_id, name, type, parent_id, page_id, path, depth,
		x, y, width, height, fingerprint, component_hint, style_hints, last_synced)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(figma_id) DO UPDATE SET
		name = excluded.name,
		type = excluded.type,
		parent_id = excluded.parent_id,
		page_id = excluded.page_id,
		path = excluded.path,
		depth = excluded.depth,
		x = excluded.x, y = excluded.y,
		width = excluded.width, height = excluded.height,
		fingerprint = excluded.fingerprint,
		component_hint = excluded.component_hint,
		style_hints = excluded.style_hints,
		last_synced = excluded.last_synced`

// UpsertNode inserts or updates one node keyed by its external id.
// Re-running over unchanged data is a no-op in effect.
func (s *Store) UpsertNode(n Node) error {
	_, err := s.db.Exec(upsertNodeSQL, nodeArgs(n, s.now())...)
	if err != nil {
		return fmt.Errorf("upsert node %s: %w", n.FigmaID, err)
	}
	return nil
}

// UpsertNodes applies a batch of node upserts inside one transaction:
// either every record in the batch lands or none do.
func (s *Store) UpsertNodes(nodes []Node) error {
	if len(nodes) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin node batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // safe to ignore

	stmt, err := tx.Prepare(upsertNodeSQL)
	if err != nil {
		return fmt.Errorf("prepare node upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }() // safe to ignore

	now := s.now()
	for _, n := range nodes {
		if _, err := stmt.Exec(nodeArgs(n, now)...); err != nil {
			return fmt.Errorf("upsert node %s: %w", n.FigmaID, err)
		}
	}
	return tx.Commit()
}

func nodeArgs(n Node, now time.Time) []any {
	var parent any
	if n.ParentID != "" {
		parent = n.ParentID
	}
	return []any{
		n.FigmaID, n.Name, n.Type, parent, n.PageID, n.Path, n.Depth,
		nullF(n.X), nullF(n.Y), nullF(n.Width), nullF(n.Height),
		n.Fingerprint, n.ComponentHint, n.StyleHints, now.Unix(),
	}
}

func nullF(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

const nodeColumns = `id, figma_id, name, type, COALESCE(parent_id, ''), page_id,
	path, depth, x, y, width, height, fingerprint, component_hint, style_hints, last_synced`

func scanNode(scan func(...any) error) (Node, error) {
	var n Node
	var x, y, w, h sql.NullFloat64
	var synced int64
	err := scan(&n.ID, &n.FigmaID, &n.Name, &n.Type, &n.ParentID, &n.PageID,
		&n.Path, &n.Depth, &x, &y, &w, &h, &n.Fingerprint, &n.ComponentHint, &n.StyleHints, &synced)
	if err != nil {
		return Node{}, err
	}
	n.X, n.Y, n.Width, n.Height = fromNull(x), fromNull(y), fromNull(w), fromNull(h)
	n.LastSynced = time.Unix(synced, 0)
	return n, nil
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// NodeByFigmaID is a point lookup by the external id.
func (s *Store) NodeByFigmaID(figmaID string) (*Node, error) {
	row := s.db.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE figma_id = ?`, figmaID)
	n, err := scanNode(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", figmaID, err)
	}
	return &n, nil
}

// NodesByType lists nodes filtered by element type and optionally page,
// capped at limit rows.
func (s *Store) NodesByType(nodeType, pageID string, limit int) ([]Node, error) {
	limit = clampLimit(limit)
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE type = ?`
	args := []any{nodeType}
	if pageID != "" {
		query += ` AND page_id = ?`
		args = append(args, pageID)
	}
	query += ` ORDER BY page_id, path LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list nodes by type %s: %w", nodeType, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Node
	for rows.Next() {
		n, err := scanNode(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// ---------------------------------------------------------------------------
// Components
// ---------------------------------------------------------------------------

const upsertComponentSQL = `
	INSERT INTO components (key, name, category, subcategory, node_id, last_synced)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		name = excluded.name,
		category = excluded.category,
		subcategory = excluded.subcategory,
		node_id = excluded.node_id,
		last_synced = excluded.last_synced`

// UpsertComponent inserts or updates a component. Usage statistics are
// deliberately left alone; ingestion never resets them.
func (s *Store) UpsertComponent(c Component) error {
	_, err := s.db.Exec(upsertComponentSQL,
		c.Key, c.Name, c.Category, c.Subcategory, c.NodeID, s.now().Unix())
	if err != nil {
		return fmt.Errorf("upsert component %s: %w", c.Key, err)
	}
	return nil
}

const componentColumns = `id, key, name, category, subcategory, node_id, usage_count, last_used, last_synced`

func scanComponent(scan func(...any) error) (Component, error) {
	var c Component
	var used, synced int64
	err := scan(&c.ID, &c.Key, &c.Name, &c.Category, &c.Subcategory, &c.NodeID, &c.UsageCount, &used, &synced)
	if err != nil {
		return Component{}, err
	}
	c.LastUsed = time.Unix(used, 0)
	c.LastSynced = time.Unix(synced, 0)
	return c, nil
}

// ComponentByKey is a point lookup by the stable component key.
func (s *Store) ComponentByKey(key string) (*Component, error) {
	row := s.db.QueryRow(`SELECT `+componentColumns+` FROM components WHERE key = ?`, key)
	c, err := scanComponent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get component %s: %w", key, err)
	}
	return &c, nil
}

// ComponentsByCategory lists components in a category, capped at limit.
func (s *Store) ComponentsByCategory(category string, limit int) ([]Component, error) {
	rows, err := s.db.Query(`SELECT `+componentColumns+` FROM components
		WHERE category = ? ORDER BY name LIMIT ?`, category, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list components by category %s: %w", category, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Component
	for rows.Next() {
		c, err := scanComponent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TouchComponentUsage increments a component's usage counter and stamps
// last_used. Called by external consumers, never by ingestion.
func (s *Store) TouchComponentUsage(key string) error {
	res, err := s.db.Exec(`UPDATE components SET usage_count = usage_count + 1, last_used = ? WHERE key = ?`,
		s.now().Unix(), key)
	if err != nil {
		return fmt.Errorf("touch component %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Variables
// ---------------------------------------------------------------------------

// UpsertVariableCollection inserts or updates a collection row.
func (s *Store) UpsertVariableCollection(c VariableCollection) error {
	_, err := s.db.Exec(`
		INSERT INTO variable_collections (id, name, modes, default_mode_id, last_synced)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			modes = excluded.modes,
			default_mode_id = excluded.default_mode_id,
			last_synced = excluded.last_synced`,
		c.ID, c.Name, c.ModesJSON, c.DefaultModeID, s.now().Unix())
	if err != nil {
		return fmt.Errorf("upsert collection %s: %w", c.ID, err)
	}
	return nil
}

// CollectionByID returns one variable collection.
func (s *Store) CollectionByID(id string) (*VariableCollection, error) {
	row := s.db.QueryRow(`SELECT id, name, modes, default_mode_id, last_synced
		FROM variable_collections WHERE id = ?`, id)
	var c VariableCollection
	var synced int64
	err := row.Scan(&c.ID, &c.Name, &c.ModesJSON, &c.DefaultModeID, &synced)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", id, err)
	}
	c.LastSynced = time.Unix(synced, 0)
	return &c, nil
}

const upsertVariableSQL = `
	INSERT INTO variables (id, name, resolved_type, collection_id, values_by_mode,
		hex, rgb, hsl, semantic_name, token_kind, alias_of, last_synced)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		resolved_type = excluded.resolved_type,
		collection_id = excluded.collection_id,
		values_by_mode = excluded.values_by_mode,
		hex = excluded.hex, rgb = excluded.rgb, hsl = excluded.hsl,
		semantic_name = excluded.semantic_name,
		token_kind = excluded.token_kind,
		alias_of = excluded.alias_of,
		last_synced = excluded.last_synced`

// UpsertVariable inserts or updates one design token.
func (s *Store) UpsertVariable(v Variable) error {
	_, err := s.db.Exec(upsertVariableSQL, variableArgs(v, s.now())...)
	if err != nil {
		return fmt.Errorf("upsert variable %s: %w", v.ID, err)
	}
	return nil
}

// UpsertVariables applies a batch of variable upserts in one transaction.
func (s *Store) UpsertVariables(vars []Variable) error {
	if len(vars) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin variable batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // safe to ignore

	stmt, err := tx.Prepare(upsertVariableSQL)
	if err != nil {
		return fmt.Errorf("prepare variable upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }() // safe to ignore

	now := s.now()
	for _, v := range vars {
		if _, err := stmt.Exec(variableArgs(v, now)...); err != nil {
			return fmt.Errorf("upsert variable %s: %w", v.ID, err)
		}
	}
	return tx.Commit()
}

func variableArgs(v Variable, now time.Time) []any {
	var alias any
	if v.AliasOf != "" {
		alias = v.AliasOf
	}
	return []any{
		v.ID, v.Name, string(v.ResolvedType), v.CollectionID, v.ValuesJSON,
		v.Hex, v.RGB, v.HSL, v.SemanticName, string(v.TokenKind), alias, now.Unix(),
	}
}

const variableColumns = `id, name, resolved_type, collection_id, values_by_mode,
	hex, rgb, hsl, semantic_name, token_kind, COALESCE(alias_of, ''), last_synced`

func scanVariable(scan func(...any) error) (Variable, error) {
	var v Variable
	var typ, kind string
	var synced int64
	err := scan(&v.ID, &v.Name, &typ, &v.CollectionID, &v.ValuesJSON,
		&v.Hex, &v.RGB, &v.HSL, &v.SemanticName, &kind, &v.AliasOf, &synced)
	if err != nil {
		return Variable{}, err
	}
	v.ResolvedType = api.ValueType(typ)
	v.TokenKind = api.TokenKind(kind)
	v.LastSynced = time.Unix(synced, 0)
	return v, nil
}

// VariableByID is a point lookup by the remote variable id.
func (s *Store) VariableByID(id string) (*Variable, error) {
	row := s.db.QueryRow(`SELECT `+variableColumns+` FROM variables WHERE id = ?`, id)
	v, err := scanVariable(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get variable %s: %w", id, err)
	}
	return &v, nil
}

// VariableBySemanticName looks up a token by its classifier-assigned
// semantic key (e.g. "primary").
func (s *Store) VariableBySemanticName(name string) (*Variable, error) {
	row := s.db.QueryRow(`SELECT `+variableColumns+` FROM variables WHERE semantic_name = ? LIMIT 1`, name)
	v, err := scanVariable(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get variable by semantic name %s: %w", name, err)
	}
	return &v, nil
}

// VariablesByCollection lists a collection's variables, capped at limit.
func (s *Store) VariablesByCollection(collectionID string, limit int) ([]Variable, error) {
	rows, err := s.db.Query(`SELECT `+variableColumns+` FROM variables
		WHERE collection_id = ? ORDER BY name LIMIT ?`, collectionID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list variables for %s: %w", collectionID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Variable
	for rows.Next() {
		v, err := scanVariable(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan variable: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteVariable removes a variable; mode values and bindings cascade.
func (s *Store) DeleteVariable(id string) error {
	if _, err := s.db.Exec(`DELETE FROM variables WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete variable %s: %w", id, err)
	}
	return nil
}

// ReplaceModeValues rewrites the per-mode fact rows for one variable in a
// single transaction.
func (s *Store) ReplaceModeValues(variableID string, values []ModeValue) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin mode values: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // safe to ignore

	if _, err := tx.Exec(`DELETE FROM variable_mode_values WHERE variable_id = ?`, variableID); err != nil {
		return fmt.Errorf("clear mode values %s: %w", variableID, err)
	}
	for _, mv := range values {
		if _, err := tx.Exec(`INSERT INTO variable_mode_values (variable_id, mode_id, value) VALUES (?, ?, ?)
			ON CONFLICT(variable_id, mode_id) DO UPDATE SET value = excluded.value`,
			variableID, mv.ModeID, mv.Value); err != nil {
			return fmt.Errorf("insert mode value %s/%s: %w", variableID, mv.ModeID, err)
		}
	}
	return tx.Commit()
}

// ModeValues lists the fact rows for one variable.
func (s *Store) ModeValues(variableID string) ([]ModeValue, error) {
	rows, err := s.db.Query(`SELECT variable_id, mode_id, value FROM variable_mode_values
		WHERE variable_id = ? ORDER BY mode_id`, variableID)
	if err != nil {
		return nil, fmt.Errorf("list mode values %s: %w", variableID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []ModeValue
	for rows.Next() {
		var mv ModeValue
		if err := rows.Scan(&mv.VariableID, &mv.ModeID, &mv.Value); err != nil {
			return nil, fmt.Errorf("scan mode value: %w", err)
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

// UpsertBinding records that a node property slot is bound to a variable.
func (s *Store) UpsertBinding(b Binding) error {
	_, err := s.db.Exec(`
		INSERT INTO variable_bindings (node_id, property, property_index, field, variable_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(node_id, property, property_index, field) DO UPDATE SET
			variable_id = excluded.variable_id`,
		b.NodeID, b.Property, b.PropertyIndex, b.Field, b.VariableID)
	if err != nil {
		return fmt.Errorf("upsert binding %s/%s: %w", b.NodeID, b.Property, err)
	}
	return nil
}

// BindingsForNode lists variable bindings on one node.
func (s *Store) BindingsForNode(nodeID string) ([]Binding, error) {
	rows, err := s.db.Query(`SELECT node_id, property, property_index, field, variable_id
		FROM variable_bindings WHERE node_id = ? ORDER BY property, property_index`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list bindings %s: %w", nodeID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Binding
	for rows.Next() {
		var b Binding
		if err := rows.Scan(&b.NodeID, &b.Property, &b.PropertyIndex, &b.Field, &b.VariableID); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Meta & aggregates
// ---------------------------------------------------------------------------

// MetaSet writes a sync_meta key.
func (s *Store) MetaSet(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().Unix())
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// MetaGet reads a sync_meta key; a missing key returns "".
func (s *Store) MetaGet(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM sync_meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, nil
}

// NodeCount returns the row count of the nodes table. The controller uses
// this to distinguish Unsynced from the data-bearing states.
func (s *Store) NodeCount() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	return n, nil
}

// Stats aggregates per-table counts plus persisted sync metadata.
func (s *Store) Stats() (api.Stats, error) {
	var st api.Stats
	counts := []struct {
		query string
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM pages`, &st.Pages},
		{`SELECT COUNT(*) FROM nodes`, &st.Nodes},
		{`SELECT COUNT(*) FROM components`, &st.Components},
		{`SELECT COUNT(*) FROM variables`, &st.Variables},
		{`SELECT COUNT(*) FROM variable_collections`, &st.Collections},
		{`SELECT COUNT(*) FROM variable_bindings`, &st.Bindings},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dst); err != nil {
			return api.Stats{}, fmt.Errorf("stats: %w", err)
		}
	}

	if raw, err := s.MetaGet(MetaLastFullSync); err != nil {
		return api.Stats{}, err
	} else if raw != "" {
		if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
			st.LastFullSync = time.Unix(sec, 0)
		}
	}
	var err error
	if st.DocumentName, err = s.MetaGet(MetaDocumentName); err != nil {
		return api.Stats{}, err
	}
	inv, err := s.MetaGet(MetaInvalidated)
	if err != nil {
		return api.Stats{}, err
	}
	st.Invalidated = inv == "1"
	if st.Invalidated {
		if st.InvalidationReason, err = s.MetaGet(MetaInvalidationReason); err != nil {
			return api.Stats{}, err
		}
	}
	return st, nil
}

// ClearAll wipes every indexed row. Sync metadata other than the schema
// version is cleared too; the store is back to Unsynced.
func (s *Store) ClearAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // safe to ignore

	for _, table := range []string{
		"variable_bindings", "variable_mode_values", "variables",
		"variable_collections", "components", "nodes", "pages",
	} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM sync_meta WHERE key != ?`, MetaSchemaVersion); err != nil {
		return fmt.Errorf("clear sync_meta: %w", err)
	}
	return tx.Commit()
}
