package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Pipeline Serialization API
// =============================================================================

// Marshal encodes a pipeline as compact JSON.
// Nil slices are encoded as empty arrays so the service always sees both keys.
func Marshal(p Pipeline) ([]byte, error) {
	if p.Nodes == nil {
		p.Nodes = []Node{}
	}
	if p.Edges == nil {
		p.Edges = []Edge{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a JSON pipeline document.
func Unmarshal(data []byte) (Pipeline, error) {
	return Read(bytes.NewReader(data))
}

// Read decodes a JSON pipeline document from r.
// Nodes missing the identity keys in their data get them filled from the
// node's own id and type.
func Read(r io.Reader) (Pipeline, error) {
	var p Pipeline
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode: %w", err)
	}
	for i := range p.Nodes {
		n := &p.Nodes[i]
		if n.Data == nil {
			n.Data = Data{}
		}
		if _, ok := n.Data[DataKeyID]; !ok {
			n.Data[DataKeyID] = n.ID
		}
		if _, ok := n.Data[DataKeyType]; !ok {
			n.Data[DataKeyType] = n.Type
		}
	}
	if p.Edges == nil {
		p.Edges = []Edge{}
	}
	return p, nil
}

// ReadFile reads a JSON pipeline document from path.
func ReadFile(path string) (Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Write encodes a pipeline as indented JSON to w.
func Write(p Pipeline, w io.Writer) error {
	if p.Nodes == nil {
		p.Nodes = []Node{}
	}
	if p.Edges == nil {
		p.Edges = []Edge{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
