package graph

import "tradecycle/internal/domain"

// frame is one pending expansion in the iterative depth-first search.
type frame struct {
	node string
	path []string
	seen map[string]bool
}

// FindCyclesFor enumerates all simple cycles that start and end at
// start, using an explicit stack rather than recursion so dense graphs
// cannot exhaust call depth. A cycle is only emitted when the path
// holds more than two nodes, so immediate back-and-forth round trips
// are never reported. maxCycleLength, when positive, bounds the number
// of nodes in a path before further expansion; the bound is checked
// before pushing a frame, so emitted cycles can reach exactly
// maxCycleLength nodes inclusive of the closing node. Zero means
// unbounded.
//
// Enumeration order follows the LIFO stack and is not part of the
// contract; callers must treat the result as a set.
func FindCyclesFor(start string, edges Adjacency, maxCycleLength int) [][]string {
	var result [][]string
	stack := []frame{{
		node: start,
		path: []string{start},
		seen: map[string]bool{start: true},
	}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, next := range edges[f.node] {
			switch {
			case next == start:
				if len(f.path) > 2 {
					cycle := make([]string, len(f.path), len(f.path)+1)
					copy(cycle, f.path)
					result = append(result, append(cycle, next))
				}
			case !f.seen[next] && (maxCycleLength <= 0 || len(f.path)+1 < maxCycleLength):
				path := make([]string, len(f.path), len(f.path)+1)
				copy(path, f.path)
				seen := make(map[string]bool, len(f.seen)+1)
				for n := range f.seen {
					seen[n] = true
				}
				seen[next] = true
				stack = append(stack, frame{node: next, path: append(path, next), seen: seen})
			}
		}
	}

	return result
}

// FindCyclesForPairs builds the currency graph for the given traded
// pairs and enumerates every simple cycle up to maxCycleLength nodes.
// Start nodes are taken in descending-degree order, and each start node
// is removed from the graph once processed, so every cycle is reported
// exactly once, rooted at whichever of its nodes came first, rather
// than once per rotation.
func FindCyclesForPairs(pairs []domain.TradedPair, maxCycleLength int) [][]string {
	edges := BuildAdjacency(pairs)

	var result [][]string
	for _, start := range nodesByDegreeDesc(edges) {
		result = append(result, FindCyclesFor(start, edges, maxCycleLength)...)
		removeNode(edges, start)
	}

	return result
}
