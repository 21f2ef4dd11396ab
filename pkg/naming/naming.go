// Package naming generates node identifiers and human-readable default names.
//
// Two policies live here and are deliberately kept apart:
//
//   - [Generator.Next] issues node ids "{type}-{n}" from a per-type counter that
//     only moves forward. An id is never handed out twice in a session, even
//     after the node that held it is deleted.
//   - [NextIndexedName] picks the smallest unused "{prefix}{k}" among the values
//     currently held by nodes. Gaps left by deletion are reused.
package naming

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/matzehuels/pipewright/pkg/errors"
	"github.com/matzehuels/pipewright/pkg/graph"
)

// Generator hands out session-unique node ids.
// The zero value is ready to use and safe for concurrent use.
type Generator struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewGenerator creates a generator with all counters at zero.
func NewGenerator() *Generator {
	return &Generator{counters: make(map[string]int)}
}

// Next returns the next id for nodeType, "{nodeType}-{n}".
//
// The counter advances on every call, including failing ones. existing is the
// current node list; if the candidate id is already taken the store was
// mutated without going through the generator and Next fails with a
// DUPLICATE_ID error.
func (g *Generator) Next(nodeType string, existing []graph.Node) (string, error) {
	g.mu.Lock()
	if g.counters == nil {
		g.counters = make(map[string]int)
	}
	n := g.counters[nodeType]
	g.counters[nodeType] = n + 1
	g.mu.Unlock()

	id := fmt.Sprintf("%s-%d", nodeType, n)
	for _, node := range existing {
		if node.ID == id {
			return "", errors.New(errors.ErrCodeDuplicateID, "node id %q already in use", id)
		}
	}
	return id, nil
}

// Peek returns the counter value the next call for nodeType will use.
func (g *Generator) Peek(nodeType string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counters[nodeType]
}

// NextIndexedName returns prefix+k for the smallest non-negative k that no
// string value in any node's data uses.
//
// Values whose remainder after prefix is not a non-negative decimal integer
// ("input_abc", "input_", "input_-1") are ignored.
func NextIndexedName(prefix string, nodes []graph.Node) string {
	used := make(map[int]struct{})
	for _, n := range nodes {
		for _, v := range n.Data {
			s, ok := v.(string)
			if !ok || !strings.HasPrefix(s, prefix) {
				continue
			}
			if k, ok := parseIndex(s[len(prefix):]); ok {
				used[k] = struct{}{}
			}
		}
	}

	next := 0
	for {
		if _, taken := used[next]; !taken {
			break
		}
		next++
	}
	return prefix + strconv.Itoa(next)
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	k, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return k, true
}
