// Package domain defines the core domain models of the Blockbook client.
package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
)

// Node represents a normalized Blockbook endpoint value object.
type Node struct {
	value string
}

// NewNode creates a Node from a raw endpoint string. The string is trimmed,
// a trailing slash is stripped, and a scheme-less host is anchored to
// https:// so both transports can derive their URLs from the same value.
// Normalization happens once, at construction.
func NewNode(raw string) (Node, error) {
	cleaned := strings.TrimSuffix(strings.TrimSpace(raw), "/")
	if cleaned == "" {
		return Node{}, &ConfigError{Reason: "node endpoint is empty"}
	}
	if !strings.Contains(cleaned, "://") {
		cleaned = "https://" + cleaned
	}

	parsed, err := url.Parse(cleaned)
	if err != nil || parsed.Host == "" {
		return Node{}, &ConfigError{Reason: fmt.Sprintf("malformed node endpoint %q", raw)}
	}

	return Node{value: cleaned}, nil
}

// String returns the normalized endpoint string.
func (n Node) String() string {
	return n.value
}

// Counter is a monotonically increasing sequence shared by node selection
// and request identifier minting. It lives for the process lifetime of one
// client instance and is never reset.
type Counter struct {
	n atomic.Uint64
}

// Next returns the next value of the sequence.
func (c *Counter) Next() uint64 {
	return c.n.Add(1) - 1
}

// NextID mints a request or subscription identifier from the sequence.
func (c *Counter) NextID() string {
	return strconv.FormatUint(c.Next(), 10)
}

// NodePool holds the ordered, non-empty list of service endpoints and hands
// them out round robin.
type NodePool struct {
	nodes   []Node
	counter *Counter
}

// NewNodePool validates and normalizes the endpoint list. It fails with a
// ConfigError when the list is empty or any endpoint is malformed. The
// counter drives both node rotation and identifier minting, so the two
// interleave on one sequence.
func NewNodePool(endpoints []string, counter *Counter) (*NodePool, error) {
	if len(endpoints) == 0 {
		return nil, &ConfigError{Reason: "node list is empty"}
	}
	if counter == nil {
		counter = &Counter{}
	}

	nodes := make([]Node, 0, len(endpoints))
	for _, raw := range endpoints {
		node, err := NewNode(raw)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	return &NodePool{nodes: nodes, counter: counter}, nil
}

// Next selects the next endpoint by round robin.
func (p *NodePool) Next() Node {
	return p.nodes[p.counter.Next()%uint64(len(p.nodes))]
}

// Counter returns the sequence shared with identifier minting.
func (p *NodePool) Counter() *Counter {
	return p.counter
}
