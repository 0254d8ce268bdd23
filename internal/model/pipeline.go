package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Node is a single pipeline node record. Records are open-ended; only the
// "id" field carries meaning. A node without an explicit identifier is given
// its positional index by NormalizeNodes.
type Node struct {
	ID       string
	Explicit bool                       // ID came from the record itself
	Opaque   bool                       // ID is the raw JSON of a non-string identifier
	Fields   map[string]json.RawMessage // raw record, nil for non-object records
}

// NodeKey identifies a node when matching edge endpoints. Edge endpoints are
// always strings, so an opaque key never matches one.
type NodeKey struct {
	ID     string
	Opaque bool
}

// Key returns the key edges are matched against.
func (n Node) Key() NodeKey {
	return NodeKey{ID: n.ID, Opaque: n.Opaque}
}

// NewNode returns a node with an explicit identifier.
func NewNode(id string) Node {
	return Node{ID: id, Explicit: id != ""}
}

// UnmarshalJSON accepts any JSON value. Objects keep all their fields; an "id"
// field counts as an explicit identifier when it is truthy: a non-empty
// string, a non-zero number, true, or a non-empty array or object. Non-string
// identifiers are kept as compact JSON text and marked Opaque. Non-object
// records decode as nodes without an identifier.
func (n *Node) UnmarshalJSON(data []byte) error {
	*n = Node{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil
	}
	n.Fields = fields
	if raw, ok := fields["id"]; ok {
		n.setIdentifier(raw)
	}
	return nil
}

func (n *Node) setIdentifier(raw json.RawMessage) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return
	}
	if id, ok := v.(string); ok {
		if id != "" {
			n.ID = id
			n.Explicit = true
		}
		return
	}
	if !truthy(v) {
		return
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return
	}
	n.ID = buf.String()
	n.Explicit = true
	n.Opaque = true
}

// truthy reports whether a decoded non-string JSON value counts as set.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case json.Number:
		// Out-of-range values come back as ±Inf or 0 along with an error.
		f, _ := v.Float64()
		return f != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

// MarshalJSON writes the node back as an object. Synthesized identifiers are
// not written; opaque identifiers keep their original JSON.
func (n Node) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(n.Fields)+1)
	for k, v := range n.Fields {
		out[k] = v
	}
	switch {
	case n.Explicit && n.Opaque:
		out["id"] = json.RawMessage(n.ID)
	case n.Explicit:
		id, err := json.Marshal(n.ID)
		if err != nil {
			return nil, err
		}
		out["id"] = id
	}
	return json.Marshal(out)
}

// NormalizeNodes returns a copy of nodes in which every node without an explicit
// identifier is assigned its zero-based position in the input, as a string.
func NormalizeNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		if !n.Explicit || n.ID == "" {
			n.ID = strconv.Itoa(i)
			n.Explicit = false
			n.Opaque = false
		}
		out[i] = n
	}
	return out
}

// Edge is a directed edge from Source to Target.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Pipeline is the graph description submitted for analysis.
type Pipeline struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// ParseResult is the outcome of analyzing a pipeline.
type ParseResult struct {
	NumNodes int  `json:"num_nodes"`
	NumEdges int  `json:"num_edges"`
	IsDAG    bool `json:"is_dag"`
}

// pipelineDoc is the wire shape of a Pipeline. Edge fields are pointers so
// that a missing field can be told apart from an empty one.
type pipelineDoc struct {
	Nodes []Node    `json:"nodes"`
	Edges []edgeDoc `json:"edges"`
}

type edgeDoc struct {
	Source *string `json:"source"`
	Target *string `json:"target"`
}

// ParsePipeline decodes a JSON pipeline document. Missing or null "nodes" and
// "edges" decode as empty sequences. Fields of the wrong JSON type produce a
// decode error; edges missing "source" or "target" produce a *ValidationError.
func ParsePipeline(data []byte) (*Pipeline, error) {
	var doc pipelineDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode pipeline: %w", err)
	}

	var ve ValidationError
	p := &Pipeline{
		Nodes: doc.Nodes,
		Edges: make([]Edge, 0, len(doc.Edges)),
	}
	if p.Nodes == nil {
		p.Nodes = []Node{}
	}
	for i, e := range doc.Edges {
		if e.Source == nil {
			ve.Errors = append(ve.Errors, FieldError{Field: fmt.Sprintf("edges[%d].source", i), Message: "is required"})
		}
		if e.Target == nil {
			ve.Errors = append(ve.Errors, FieldError{Field: fmt.Sprintf("edges[%d].target", i), Message: "is required"})
		}
		if e.Source != nil && e.Target != nil {
			p.Edges = append(p.Edges, Edge{Source: *e.Source, Target: *e.Target})
		}
	}

	if ve.HasErrors() {
		return nil, &ve
	}
	return p, nil
}
