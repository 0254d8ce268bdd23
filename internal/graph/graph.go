// Package graph decides whether a pipeline's nodes and edges form a directed
// acyclic graph, using Kahn's in-degree topological sort.
package graph

import "github.com/alfredjeanlab/pipelines/internal/model"

// Analysis is the full outcome of one call to Analyze.
type Analysis struct {
	NumNodes int  // node records supplied
	NumEdges int  // edge records supplied, including dropped ones
	IsDAG    bool // no directed cycle among incorporated edges

	Distinct int      // distinct node identifiers
	Visited  int      // nodes removed by the topological sort
	Dropped  int      // edges referencing an unknown endpoint
	Blocked  []string // nodes on or downstream of a cycle, in input order
}

// Result returns the three-field summary reported to callers.
func (a Analysis) Result() *model.ParseResult {
	return &model.ParseResult{
		NumNodes: a.NumNodes,
		NumEdges: a.NumEdges,
		IsDAG:    a.IsDAG,
	}
}

// Analyze builds a transient adjacency snapshot from nodes and edges and runs
// Kahn's algorithm over it. Nodes without an explicit identifier take their
// position in nodes as identifier. Edges whose source or target is not a known
// identifier are not incorporated. Analyze never fails and keeps no state.
func Analyze(nodes []model.Node, edges []model.Edge) Analysis {
	normalized := model.NormalizeNodes(nodes)

	keys := make([]model.NodeKey, 0, len(normalized))
	adj := make(map[model.NodeKey][]model.NodeKey, len(normalized))
	indeg := make(map[model.NodeKey]int, len(normalized))
	for _, n := range normalized {
		k := n.Key()
		if _, ok := adj[k]; ok {
			continue
		}
		adj[k] = []model.NodeKey{}
		indeg[k] = 0
		keys = append(keys, k)
	}

	// Endpoints are strings; opaque node keys are never reachable from an edge.
	dropped := 0
	for _, e := range edges {
		src, dst := model.NodeKey{ID: e.Source}, model.NodeKey{ID: e.Target}
		_, srcOK := adj[src]
		_, dstOK := adj[dst]
		if !srcOK || !dstOK {
			dropped++
			continue
		}
		adj[src] = append(adj[src], dst)
		indeg[dst]++
	}

	queue := make([]model.NodeKey, 0, len(keys))
	for _, k := range keys {
		if indeg[k] == 0 {
			queue = append(queue, k)
		}
	}

	visited := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		visited++
		for _, v := range adj[u] {
			indeg[v]--
			if indeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	var blocked []string
	for _, k := range keys {
		if indeg[k] > 0 {
			blocked = append(blocked, k.ID)
		}
	}

	return Analysis{
		NumNodes: len(nodes),
		NumEdges: len(edges),
		IsDAG:    len(keys) == 0 || visited == len(keys),
		Distinct: len(keys),
		Visited:  visited,
		Dropped:  dropped,
		Blocked:  blocked,
	}
}
