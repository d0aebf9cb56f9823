package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ashmere/reverie/internal/kv"
	"go.uber.org/zap"
)

// SnapshotKey is the fixed key the association graph persists under.
const SnapshotKey = "reverie:srg"

// persistTimeout bounds the background snapshot write.
const persistTimeout = 5 * time.Second

// NodeKey identifies an association graph node. Category and concept
// stay separate fields so a concept phrase containing any delimiter
// character can never collide with another key.
type NodeKey struct {
	Category Category `json:"category"`
	Concept  string   `json:"concept"`
}

// node holds outgoing edge weights plus their insertion order. The
// order fixes the first-encountered tie-break for equal weights and is
// preserved across snapshot round-trips.
type node struct {
	weights map[NodeKey]int
	order   []NodeKey
}

// Graph is the concept association graph: a directed weighted graph
// over (category, concept) nodes, trained on ordered atom pairs. One
// instance is shared process-wide; writes are serialized internally and
// snapshots are persisted through a coalescing debouncer.
type Graph struct {
	mu    sync.RWMutex
	nodes map[NodeKey]*node

	store   kv.Store
	persist *Debouncer
	logger  *zap.Logger
}

// NewGraph creates an empty graph writing snapshots through store under
// SnapshotKey, coalesced over the given debounce window.
func NewGraph(store kv.Store, window time.Duration, logger *zap.Logger) *Graph {
	g := &Graph{
		nodes:  make(map[NodeKey]*node),
		store:  store,
		logger: logger,
	}
	g.persist = NewDebouncer(window, g.flush)
	return g
}

// Load restores the last persisted snapshot. A missing or unreadable
// snapshot leaves the graph empty: cold start means no learned
// associations yet, never a startup failure.
func (g *Graph) Load(ctx context.Context) {
	data, err := g.store.Get(ctx, SnapshotKey)
	if err != nil {
		g.logger.Warn("graph snapshot read failed, starting empty", zap.Error(err))
		return
	}
	if data == nil {
		g.logger.Info("no graph snapshot found, starting empty")
		return
	}
	if err := g.Restore(data); err != nil {
		g.logger.Warn("graph snapshot unreadable, starting empty", zap.Error(err))
		return
	}
	nodes, edges := g.Stats()
	g.logger.Info("graph snapshot loaded", zap.Int("nodes", nodes), zap.Int("edges", edges))
}

// TrainOnTransition increments the edge from every (category, concept)
// of source to every (category, concept) of target, then schedules a
// coalesced snapshot write. An atom without concepts trains nothing.
func (g *Graph) TrainOnTransition(source, target *Atom) {
	if source == nil || target == nil {
		return
	}
	if len(source.Concepts) == 0 || len(target.Concepts) == 0 {
		return
	}

	g.mu.Lock()
	for _, sc := range source.Concepts {
		src := NodeKey{Category: source.Category, Concept: sc}
		n := g.nodes[src]
		if n == nil {
			n = &node{weights: make(map[NodeKey]int)}
			g.nodes[src] = n
		}
		for _, tc := range target.Concepts {
			dst := NodeKey{Category: target.Category, Concept: tc}
			if _, seen := n.weights[dst]; !seen {
				n.order = append(n.order, dst)
			}
			n.weights[dst]++
		}
	}
	g.mu.Unlock()

	g.persist.Schedule()
}

// FollowUpConcepts predicts up to k concepts likely to follow the given
// atoms, by aggregating outgoing edge weights over the union of the
// atoms' (category, concept) keys. Target categories are ignored in the
// output. Concepts the atoms already contain are excluded, so
// predictions are genuinely novel. Equal weights keep first-encountered
// order.
func (g *Graph) FollowUpConcepts(atoms []*Atom, k int) []string {
	if k <= 0 || len(atoms) == 0 {
		return nil
	}

	present := make(map[string]struct{})
	seen := make(map[NodeKey]struct{})
	var sources []NodeKey
	for _, a := range atoms {
		for _, c := range a.Concepts {
			present[c] = struct{}{}
			key := NodeKey{Category: a.Category, Concept: c}
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				sources = append(sources, key)
			}
		}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	totals := make(map[string]int)
	var order []string
	for _, src := range sources {
		n := g.nodes[src]
		if n == nil {
			continue
		}
		for _, dst := range n.order {
			if _, own := present[dst.Concept]; own {
				continue
			}
			if _, counted := totals[dst.Concept]; !counted {
				order = append(order, dst.Concept)
			}
			totals[dst.Concept] += n.weights[dst]
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return totals[order[i]] > totals[order[j]]
	})
	if len(order) > k {
		order = order[:k]
	}
	return order
}

// Weight returns the current edge weight between two node keys.
func (g *Graph) Weight(src, dst NodeKey) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := g.nodes[src]
	if n == nil {
		return 0
	}
	return n.weights[dst]
}

// Stats reports node and edge counts.
func (g *Graph) Stats() (nodes, edges int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, n := range g.nodes {
		edges += len(n.order)
	}
	return len(g.nodes), edges
}

// snapshot wire format: one entry per node, edges in insertion order.
// Composite keys stay structured all the way down; nothing is ever
// delimiter-joined.
type snapshotEdge struct {
	Category Category `json:"category"`
	Concept  string   `json:"concept"`
	Weight   int      `json:"weight"`
}

type snapshotNode struct {
	Category Category       `json:"category"`
	Concept  string         `json:"concept"`
	Edges    []snapshotEdge `json:"edges"`
}

// Snapshot serializes the graph. Nodes are sorted by key so the output
// is deterministic; edge order within a node is insertion order.
func (g *Graph) Snapshot() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]NodeKey, 0, len(g.nodes))
	for k := range g.nodes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Category != keys[j].Category {
			return keys[i].Category < keys[j].Category
		}
		return keys[i].Concept < keys[j].Concept
	})

	out := make([]snapshotNode, 0, len(keys))
	for _, k := range keys {
		n := g.nodes[k]
		sn := snapshotNode{Category: k.Category, Concept: k.Concept}
		for _, dst := range n.order {
			sn.Edges = append(sn.Edges, snapshotEdge{
				Category: dst.Category,
				Concept:  dst.Concept,
				Weight:   n.weights[dst],
			})
		}
		out = append(out, sn)
	}
	return json.Marshal(out)
}

// Restore replaces the graph's contents with a previously serialized
// snapshot. Edge weights and insertion order round-trip exactly.
func (g *Graph) Restore(data []byte) error {
	var in []snapshotNode
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode graph snapshot: %w", err)
	}

	nodes := make(map[NodeKey]*node, len(in))
	for _, sn := range in {
		src := NodeKey{Category: sn.Category, Concept: sn.Concept}
		n := &node{weights: make(map[NodeKey]int, len(sn.Edges))}
		for _, e := range sn.Edges {
			if e.Weight <= 0 {
				continue
			}
			dst := NodeKey{Category: e.Category, Concept: e.Concept}
			if _, seen := n.weights[dst]; !seen {
				n.order = append(n.order, dst)
			}
			n.weights[dst] = e.Weight
		}
		nodes[src] = n
	}

	g.mu.Lock()
	g.nodes = nodes
	g.mu.Unlock()
	return nil
}

// flush writes the current snapshot through the kv store. Failures are
// logged and non-fatal; the in-memory graph keeps operating.
func (g *Graph) flush() {
	data, err := g.Snapshot()
	if err != nil {
		g.logger.Error("graph snapshot failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := g.store.Put(ctx, SnapshotKey, data); err != nil {
		g.logger.Warn("graph snapshot write failed", zap.Error(err))
		return
	}
	g.logger.Debug("graph snapshot persisted", zap.Int("bytes", len(data)))
}

// FlushNow forces any pending snapshot write, used on shutdown.
func (g *Graph) FlushNow() {
	g.persist.Flush()
}

// Close flushes a pending write and stops the debouncer.
func (g *Graph) Close() {
	g.persist.Flush()
	g.persist.Close()
}
