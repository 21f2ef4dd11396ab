package naming

import (
	"fmt"
	"sync"
	"testing"

	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
)

func nodeWith(id string, data graph.Data) graph.Node {
	n := graph.NewNode(id, "customInput", graph.Position{})
	for k, v := range data {
		n.Data[k] = v
	}
	return n
}

func TestGeneratorSequentialPerType(t *testing.T) {
	g := NewGenerator()

	var nodes []graph.Node
	for _, typ := range []string{"llm", "llm", "text", "llm"} {
		id, err := g.Next(typ, nodes)
		if err != nil {
			t.Fatalf("Next(%s) error: %v", typ, err)
		}
		nodes = append(nodes, graph.NewNode(id, typ, graph.Position{}))
	}

	want := []string{"llm-0", "llm-1", "text-0", "llm-2"}
	for i, n := range nodes {
		if n.ID != want[i] {
			t.Errorf("id[%d] = %s, want %s", i, n.ID, want[i])
		}
	}
}

func TestGeneratorNeverReuses(t *testing.T) {
	g := NewGenerator()
	a, _ := g.Next("llm", nil)
	b, _ := g.Next("llm", nil)
	// both nodes deleted: the store is empty again
	c, _ := g.Next("llm", nil)
	if a == c || b == c {
		t.Errorf("id reused after deletion: %s, %s, %s", a, b, c)
	}
	if c != "llm-2" {
		t.Errorf("Next() = %s, want llm-2", c)
	}
}

func TestGeneratorDuplicateGuard(t *testing.T) {
	g := NewGenerator()
	existing := []graph.Node{graph.NewNode("llm-0", "llm", graph.Position{})}

	_, err := g.Next("llm", existing)
	if !errors.Is(err, errors.ErrCodeDuplicateID) {
		t.Fatalf("Next() error = %v, want DUPLICATE_ID", err)
	}

	id, err := g.Next("llm", existing)
	if err != nil {
		t.Fatalf("Next() after collision error: %v", err)
	}
	if id != "llm-1" {
		t.Errorf("Next() = %s, want llm-1", id)
	}
}

func TestGeneratorZeroValue(t *testing.T) {
	var g Generator
	id, err := g.Next("text", nil)
	if err != nil || id != "text-0" {
		t.Errorf("zero Generator Next() = %q, %v", id, err)
	}
	if g.Peek("text") != 1 {
		t.Errorf("Peek() = %d, want 1", g.Peek("text"))
	}
}

func TestGeneratorConcurrentUnique(t *testing.T) {
	g := NewGenerator()
	const n = 100

	ids := make(chan string, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := g.Next("math", nil)
			if err != nil {
				t.Errorf("Next() error: %v", err)
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %s", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("got %d unique ids, want %d", len(seen), n)
	}
}

func TestNextIndexedName(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		values []string
		want   string
	}{
		{name: "Empty", prefix: "input_", want: "input_0"},
		{name: "Gap", prefix: "input_", values: []string{"input_0", "input_2"}, want: "input_1"},
		{name: "Dense", prefix: "input_", values: []string{"input_1", "input_0"}, want: "input_2"},
		{name: "NonNumericIgnored", prefix: "input_", values: []string{"input_abc", "input_0"}, want: "input_1"},
		{name: "BarePrefixIgnored", prefix: "input_", values: []string{"input_"}, want: "input_0"},
		{name: "NegativeIgnored", prefix: "input_", values: []string{"input_-1"}, want: "input_0"},
		{name: "OtherPrefix", prefix: "output_", values: []string{"input_0"}, want: "output_0"},
		{name: "LeadingZeros", prefix: "output_", values: []string{"output_00"}, want: "output_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var nodes []graph.Node
			for i, v := range tt.values {
				nodes = append(nodes, nodeWith(fmt.Sprintf("customInput-%d", i), graph.Data{"inputName": v}))
			}
			if got := NextIndexedName(tt.prefix, nodes); got != tt.want {
				t.Errorf("NextIndexedName() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNextIndexedNameReusesGapAfterRemoval(t *testing.T) {
	nodes := []graph.Node{
		nodeWith("customInput-0", graph.Data{"inputName": "input_0"}),
		nodeWith("customInput-1", graph.Data{"inputName": "input_1"}),
		nodeWith("customInput-2", graph.Data{"inputName": "input_2"}),
	}
	if got := NextIndexedName("input_", nodes); got != "input_3" {
		t.Fatalf("NextIndexedName() = %s, want input_3", got)
	}

	remaining := []graph.Node{nodes[0], nodes[2]}
	if got := NextIndexedName("input_", remaining); got != "input_1" {
		t.Errorf("NextIndexedName() after removal = %s, want input_1", got)
	}
}

func TestNextIndexedNameScansAllValues(t *testing.T) {
	nodes := []graph.Node{
		nodeWith("text-0", graph.Data{"text": "input_0", "count": 3, "flag": true}),
	}
	if got := NextIndexedName("input_", nodes); got != "input_1" {
		t.Errorf("NextIndexedName() = %s, want input_1", got)
	}
}
