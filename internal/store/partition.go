package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Manager maps a remote document id to an isolated on-disk store and keeps
// at most one connection open system-wide. Switching documents closes the
// previous handle before opening the next, so two documents never share or
// contend for a database file within one process.
type Manager struct {
	mu     sync.Mutex
	dir    string
	prefix string

	active     *Store
	activeDoc  string // sanitized id of the active document, "" before first switch
	activePath string
}

// unsafeIDChars matches everything outside the filesystem-safe set.
var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// NewManager creates a partition manager rooted at dir. Database files are
// named <prefix>-<sanitized-id>.db; a bare <prefix>.db is the legacy
// single-document path.
func NewManager(dir, prefix string) *Manager {
	return &Manager{dir: dir, prefix: prefix}
}

// SanitizeDocumentID strips characters outside [a-zA-Z0-9_-].
func SanitizeDocumentID(id string) string {
	return unsafeIDChars.ReplaceAllString(id, "")
}

// pathFor computes the deterministic database path for a document id.
// An empty id falls back to the legacy unpartitioned path.
func (m *Manager) pathFor(docID string) string {
	safe := SanitizeDocumentID(docID)
	if safe == "" {
		return filepath.Join(m.dir, m.prefix+".db")
	}
	return filepath.Join(m.dir, m.prefix+"-"+safe+".db")
}

// SetActiveDocument makes docID's store the active one, opening it (and
// running migrations) if needed. Re-activating the current document is a
// no-op returning the already-open store.
func (m *Manager) SetActiveDocument(docID string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.pathFor(docID)
	if m.active != nil && path == m.activePath {
		return m.active, nil
	}

	// Close the old handle first; connections are never held open
	// concurrently for two documents.
	if m.active != nil {
		if err := m.active.Close(); err != nil {
			return nil, fmt.Errorf("close store %s: %w", m.activePath, err)
		}
		m.active = nil
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	st, err := Open(path)
	if err != nil {
		return nil, err
	}
	m.active = st
	m.activeDoc = SanitizeDocumentID(docID)
	m.activePath = path
	return st, nil
}

// Active returns the current store, opening the legacy default partition if
// no document was ever activated.
func (m *Manager) Active() (*Store, error) {
	m.mu.Lock()
	if m.active != nil {
		st := m.active
		m.mu.Unlock()
		return st, nil
	}
	m.mu.Unlock()
	return m.SetActiveDocument("")
}

// ActiveDocumentID returns the sanitized id of the active document.
func (m *Manager) ActiveDocumentID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeDoc
}

// Close closes the active store, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	err := m.active.Close()
	m.active = nil
	m.activePath = ""
	m.activeDoc = ""
	return err
}

// List scans the cache directory for partition files and reports the
// embedded document id plus size and modification time per file.
func (m *Manager) List() ([]CacheFile, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	var out []CacheFile
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, m.prefix) || !strings.HasSuffix(name, ".db") {
			continue
		}
		docID := strings.TrimSuffix(strings.TrimPrefix(name, m.prefix), ".db")
		docID = strings.TrimPrefix(docID, "-")
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, CacheFile{
			DocumentID: docID,
			Path:       filepath.Join(m.dir, name),
			Size:       info.Size(),
			ModTime:    info.ModTime(),
		})
	}
	return out, nil
}
