package asg

import "fmt"

// NodeID is a stable handle for a node within its Arena
type NodeID int

// Arena owns every node of one compilation unit. Nodes are never freed
// individually; the arena is dropped with the unit.
type Arena struct {
	nodes []Node
}

// NewArena creates an empty arena
func NewArena() *Arena {
	return &Arena{}
}

// New registers n with the arena and assigns it the next NodeID
func New[T Node](a *Arena, n T) T {
	n.hdr().id = NodeID(len(a.nodes))
	a.nodes = append(a.nodes, n)
	return n
}

// place registers n under a specific id, used when decoding
func (a *Arena) place(id NodeID, n Node) error {
	if id < 0 {
		return fmt.Errorf("asg: negative node id %d", id)
	}
	for NodeID(len(a.nodes)) <= id {
		a.nodes = append(a.nodes, nil)
	}
	if a.nodes[id] != nil {
		return fmt.Errorf("asg: duplicate node id %d", id)
	}
	n.hdr().id = id
	a.nodes[id] = n
	return nil
}

// Get returns the node with the given id, or nil
func (a *Arena) Get(id NodeID) Node {
	if id < 0 || int(id) >= len(a.nodes) {
		return nil
	}
	return a.nodes[id]
}

// Len returns the number of ids handed out
func (a *Arena) Len() int {
	return len(a.nodes)
}
