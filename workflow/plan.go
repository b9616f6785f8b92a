package workflow

// Plan produces the deterministic execution levels of a validated
// workflow using Kahn's algorithm with level grouping: level 0 holds
// every zero-in-degree node; level k+1 holds every node whose
// remaining in-degree drops to zero once level k is removed. Within a
// level nodes keep their position in the workflow's node list.
//
// Guarantees: the union of levels is exactly the node id set, no id
// repeats, no level is empty, and for every edge u -> v the level of u
// is strictly less than the level of v.
//
// Plan returns an error when nodes remain after leveling, which means
// the graph contains a cycle Validate would have reported.
func Plan(w *Workflow) ([][]string, error) {
	indeg := make(map[string]int, len(w.Nodes))
	for i := range w.Nodes {
		indeg[w.Nodes[i].ID] = 0
	}
	for _, e := range w.Edges {
		if _, ok := indeg[e.Source]; !ok {
			continue
		}
		if _, ok := indeg[e.Target]; !ok {
			continue
		}
		indeg[e.Target]++
	}

	placed := make(map[string]bool, len(w.Nodes))
	var levels [][]string
	remaining := len(w.Nodes)

	for remaining > 0 {
		var level []string
		for i := range w.Nodes {
			id := w.Nodes[i].ID
			if !placed[id] && indeg[id] == 0 {
				level = append(level, id)
			}
		}
		if len(level) == 0 {
			return nil, Errorf(CodeValidation, "workflow %q contains a cycle", w.ID)
		}
		for _, id := range level {
			placed[id] = true
			for _, e := range w.Edges {
				if e.Source != id {
					continue
				}
				if _, ok := indeg[e.Target]; !ok {
					continue
				}
				indeg[e.Target]--
			}
		}
		remaining -= len(level)
		levels = append(levels, level)
	}

	return levels, nil
}

// FlattenLevels returns the node ids of a plan in execution order, one
// level after another.
func FlattenLevels(levels [][]string) []string {
	var flat []string
	for _, level := range levels {
		flat = append(flat, level...)
	}
	return flat
}
