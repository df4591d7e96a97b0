package remote

import (
	"context"
	"fmt"
	"sync"
)

// MemSource is an in-memory Client used by tests and fixtures. Trees and
// variables are set directly; connectivity is toggleable to exercise the
// disconnected controller states.
type MemSource struct {
	mu          sync.Mutex
	doc         *Document
	trees       map[string]*Node
	collections []VariableCollection
	variables   []Variable
	connected   bool

	// FailNodeTree, when set, makes NodeTree fail for that node id.
	// Used to exercise partial-sync behavior.
	FailNodeTree string
	// FailVariables makes the variable endpoints fail.
	FailVariables bool
	// OnNodeTree, when set, runs before each subtree fetch. Tests use it
	// to inject events while a sync is in flight.
	OnNodeTree func(nodeID string)

	// Fetch counters, for asserting round-trip behavior.
	DocumentInfoCalls int
	NodeTreeCalls     int
}

// NewMemSource returns a connected source with no document.
func NewMemSource() *MemSource {
	return &MemSource{trees: make(map[string]*Node), connected: true}
}

// SetDocument installs the document info returned by DocumentInfo.
func (m *MemSource) SetDocument(doc *Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = doc
}

// SetTree installs the subtree returned by NodeTree for rootID.
func (m *MemSource) SetTree(rootID string, tree *Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trees[rootID] = tree
}

// SetVariables installs the variable graph.
func (m *MemSource) SetVariables(cols []VariableCollection, vars []Variable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = cols
	m.variables = vars
}

// SetConnected toggles reachability.
func (m *MemSource) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

func (m *MemSource) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MemSource) DocumentInfo(_ context.Context) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DocumentInfoCalls++
	if !m.connected {
		return nil, ErrDisconnected
	}
	if m.doc == nil {
		return nil, fmt.Errorf("memsource: no document set")
	}
	return m.doc, nil
}

func (m *MemSource) NodeTree(_ context.Context, nodeID string) (*Node, error) {
	if m.OnNodeTree != nil {
		m.OnNodeTree(nodeID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NodeTreeCalls++
	if !m.connected {
		return nil, ErrDisconnected
	}
	if m.FailNodeTree != "" && m.FailNodeTree == nodeID {
		return nil, fmt.Errorf("memsource: forced failure for %s", nodeID)
	}
	tree, ok := m.trees[nodeID]
	if !ok {
		return nil, fmt.Errorf("memsource: no tree for %s", nodeID)
	}
	return tree, nil
}

func (m *MemSource) VariableCollections(_ context.Context) ([]VariableCollection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, ErrDisconnected
	}
	if m.FailVariables {
		return nil, fmt.Errorf("memsource: forced variable failure")
	}
	return m.collections, nil
}

func (m *MemSource) LocalVariables(_ context.Context) ([]Variable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, ErrDisconnected
	}
	if m.FailVariables {
		return nil, fmt.Errorf("memsource: forced variable failure")
	}
	return m.variables, nil
}

// Verify interface compliance at compile time.
var _ Client = (*MemSource)(nil)
