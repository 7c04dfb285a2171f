package graph

import (
	"sort"
	"strings"
	"testing"

	"tradecycle/internal/domain"
)

func pairsFor(edges ...[2]string) []domain.TradedPair {
	pairs := make([]domain.TradedPair, 0, len(edges))
	for _, e := range edges {
		pairs = append(pairs, domain.TradedPair{
			Name:     e[0] + e[1],
			Exchange: "test",
			Base:     e[0],
			To:       e[1],
		})
	}
	return pairs
}

func sortCycles(cycles [][]string) []string {
	joined := make([]string, 0, len(cycles))
	for _, c := range cycles {
		joined = append(joined, strings.Join(c, ">"))
	}
	sort.Strings(joined)
	return joined
}

func TestFindCyclesFor_Triangle(t *testing.T) {
	edges := BuildAdjacency(pairsFor(
		[2]string{"BTC", "USD"},
		[2]string{"ETH", "USD"},
		[2]string{"ETH", "BTC"},
	))

	cycles := FindCyclesFor("BTC", edges, 0)

	// One triangle, traversable in both directions from BTC.
	got := sortCycles(cycles)
	want := []string{"BTC>ETH>USD>BTC", "BTC>USD>ETH>BTC"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d cycles, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Cycle %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestFindCyclesFor_NoTwoNodeCycles(t *testing.T) {
	edges := BuildAdjacency(pairsFor([2]string{"BTC", "USD"}))

	cycles := FindCyclesFor("BTC", edges, 0)
	if len(cycles) != 0 {
		t.Errorf("Expected no cycles for a single market, got %v", cycles)
	}
}

func TestFindCyclesFor_MaxCycleLength(t *testing.T) {
	// Ring of 5 currencies: the only cycles through BTC use all 5 nodes.
	edges := BuildAdjacency(pairsFor(
		[2]string{"BTC", "ETH"},
		[2]string{"ETH", "LTC"},
		[2]string{"LTC", "XRP"},
		[2]string{"XRP", "USD"},
		[2]string{"USD", "BTC"},
	))

	if cycles := FindCyclesFor("BTC", edges, 4); len(cycles) != 0 {
		t.Errorf("Expected no cycles within 4 nodes on a 5-ring, got %v", cycles)
	}

	cycles := FindCyclesFor("BTC", edges, 5)
	if len(cycles) != 2 {
		t.Fatalf("Expected 2 cycles with bound 5, got %d", len(cycles))
	}
	for _, c := range cycles {
		// 5 distinct nodes plus the closing repeat of the start.
		if len(c) != 6 {
			t.Errorf("Expected 6 entries per cycle, got %v", c)
		}
		if c[0] != "BTC" || c[len(c)-1] != "BTC" {
			t.Errorf("Cycle should start and end at BTC: %v", c)
		}
	}
}

func TestFindCyclesFor_SimpleCyclesOnly(t *testing.T) {
	edges := BuildAdjacency(pairsFor(
		[2]string{"BTC", "USD"},
		[2]string{"ETH", "USD"},
		[2]string{"ETH", "BTC"},
		[2]string{"LTC", "USD"},
		[2]string{"LTC", "BTC"},
	))

	for _, c := range FindCyclesFor("BTC", edges, 0) {
		interior := c[:len(c)-1]
		seen := map[string]bool{}
		for _, n := range interior {
			if seen[n] {
				t.Errorf("Cycle revisits %s: %v", n, c)
			}
			seen[n] = true
		}
	}
}

func TestFindCyclesForPairs_EachCycleOnce(t *testing.T) {
	cycles := FindCyclesForPairs(pairsFor(
		[2]string{"BTC", "USD"},
		[2]string{"ETH", "USD"},
		[2]string{"ETH", "BTC"},
	), 0)

	// The triangle appears as two direction rotations rooted at the
	// first start node, and never again once that node is eliminated.
	if len(cycles) != 2 {
		t.Fatalf("Expected 2 cycles, got %d: %v", len(cycles), sortCycles(cycles))
	}
	if cycles[0][0] != cycles[1][0] {
		t.Errorf("Both cycles should share the same root: %v", sortCycles(cycles))
	}
}

func TestFindCyclesForPairs_DuplicateMarkets(t *testing.T) {
	// The same currency pair listed twice contributes a single edge.
	pairs := pairsFor(
		[2]string{"BTC", "USD"},
		[2]string{"BTC", "USD"},
		[2]string{"ETH", "USD"},
		[2]string{"ETH", "BTC"},
	)

	cycles := FindCyclesForPairs(pairs, 0)
	if len(cycles) != 2 {
		t.Errorf("Expected duplicate markets to collapse, got %d cycles", len(cycles))
	}
}

func TestBuildAdjacency(t *testing.T) {
	edges := BuildAdjacency(pairsFor(
		[2]string{"BTC", "USD"},
		[2]string{"ETH", "USD"},
	))

	if len(edges["USD"]) != 2 {
		t.Errorf("Expected USD to have 2 neighbors, got %v", edges["USD"])
	}
	if len(edges["BTC"]) != 1 || edges["BTC"][0] != "USD" {
		t.Errorf("Expected BTC -> [USD], got %v", edges["BTC"])
	}
}

func TestNodesByDegreeDesc(t *testing.T) {
	edges := BuildAdjacency(pairsFor(
		[2]string{"BTC", "USD"},
		[2]string{"ETH", "USD"},
		[2]string{"LTC", "USD"},
	))

	nodes := nodesByDegreeDesc(edges)
	if nodes[0] != "USD" {
		t.Errorf("Expected USD first by degree, got %v", nodes)
	}
	// Ties break alphabetically.
	rest := nodes[1:]
	if !sort.StringsAreSorted(rest) {
		t.Errorf("Expected alphabetical tie-break, got %v", rest)
	}
}

func TestRemoveNode(t *testing.T) {
	edges := BuildAdjacency(pairsFor(
		[2]string{"BTC", "USD"},
		[2]string{"ETH", "USD"},
	))

	removeNode(edges, "USD")

	if _, ok := edges["USD"]; ok {
		t.Error("Expected USD to be deleted")
	}
	if len(edges["BTC"]) != 0 {
		t.Errorf("Expected USD stripped from BTC's neighbors, got %v", edges["BTC"])
	}
}
