package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alfredjeanlab/pipelines/internal/graph"
	"github.com/alfredjeanlab/pipelines/internal/model"
	"github.com/alfredjeanlab/pipelines/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// dagLabel renders the DAG status of a result.
func dagLabel(isDAG bool) string {
	if isDAG {
		return ui.RenderPass("DAG")
	}
	return ui.RenderFail("not a DAG (cycle detected)")
}

func printResult(w io.Writer, ref string, r *model.ParseResult) {
	fmt.Fprintf(w, "%s %s\n", ui.RenderAccent(ref), dagLabel(r.IsDAG))
	fmt.Fprintf(w, "  Nodes:  %d\n", r.NumNodes)
	fmt.Fprintf(w, "  Edges:  %d\n", r.NumEdges)
}

// checkReport is the JSON shape printed by pd check --json.
type checkReport struct {
	*model.ParseResult
	Distinct int      `json:"distinct_nodes"`
	Dropped  int      `json:"dropped_edges"`
	Blocked  []string `json:"blocked_nodes,omitempty"`
}

func newCheckReport(a graph.Analysis) checkReport {
	return checkReport{
		ParseResult: a.Result(),
		Distinct:    a.Distinct,
		Dropped:     a.Dropped,
		Blocked:     a.Blocked,
	}
}

func printAnalysis(w io.Writer, ref string, a graph.Analysis) {
	printResult(w, ref, a.Result())
	if a.Distinct != a.NumNodes {
		fmt.Fprintf(w, "  %s\n", ui.RenderWarn(fmt.Sprintf("%d duplicate node identifiers collapsed", a.NumNodes-a.Distinct)))
	}
	if a.Dropped > 0 {
		fmt.Fprintf(w, "  %s\n", ui.RenderWarn(fmt.Sprintf("%d edges reference unknown nodes and were ignored", a.Dropped)))
	}
	if len(a.Blocked) > 0 {
		fmt.Fprintf(w, "  Blocked: %s\n", ui.RenderMuted(strings.Join(a.Blocked, ", ")))
	}
}
