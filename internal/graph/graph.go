// Package graph models currencies as nodes with an edge wherever some
// exchange trades the two against each other, and enumerates bounded
// simple cycles through that graph.
package graph

import (
	"sort"

	"tradecycle/internal/domain"
)

// Adjacency maps a currency to the currencies reachable from it in one
// trade. Edges are undirected and deduplicated: multiple markets between
// the same two currencies contribute a single edge, since cycle search
// needs reachability rather than market identity.
type Adjacency map[string][]string

// BuildAdjacency builds the currency graph from a flat list of traded
// pairs, adding a bidirectional edge base <-> to for each.
func BuildAdjacency(pairs []domain.TradedPair) Adjacency {
	edges := make(Adjacency)
	seen := make(map[[2]string]bool, len(pairs)*2)

	addEdge := func(from, to string) {
		key := [2]string{from, to}
		if seen[key] {
			return
		}
		seen[key] = true
		edges[from] = append(edges[from], to)
	}

	for _, tp := range pairs {
		addEdge(tp.Base, tp.To)
		addEdge(tp.To, tp.Base)
	}

	return edges
}

// nodesByDegreeDesc returns the graph's nodes ordered by descending
// degree. Starting enumeration at the best-connected currencies is a
// throughput heuristic: they root the most cycles, and eliminating them
// early shrinks the graph fastest.
func nodesByDegreeDesc(edges Adjacency) []string {
	nodes := make([]string, 0, len(edges))
	for node := range edges {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		di, dj := len(edges[nodes[i]]), len(edges[nodes[j]])
		if di != dj {
			return di > dj
		}
		return nodes[i] < nodes[j]
	})
	return nodes
}

// removeNode deletes a node and strips it from every remaining
// adjacency list.
func removeNode(edges Adjacency, node string) {
	delete(edges, node)
	for from, neighbors := range edges {
		for i, n := range neighbors {
			if n == node {
				edges[from] = append(neighbors[:i], neighbors[i+1:]...)
				break
			}
		}
	}
}
