package sgf

// GameTree is one parenthesised sequence of nodes plus its variations.
// Children only ever hang off the last node of Nodes.
type GameTree struct {
	Nodes    []*Node
	Children []*GameTree
}

// Node holds SGF properties; a property may carry several values (AB[aa][bb]).
type Node struct {
	Properties map[string][]string
	order      []string
}

// SGF is the first game tree of a collection.
type SGF struct {
	Root *GameTree
}

func NewNode() *Node {
	return &Node{Properties: make(map[string][]string)}
}

func (n *Node) Get(key string) (string, bool) {
	values, ok := n.Properties[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (n *Node) Values(key string) []string {
	return n.Properties[key]
}

func (n *Node) Set(key string, values ...string) {
	if n.Properties == nil {
		n.Properties = make(map[string][]string)
	}
	if _, ok := n.Properties[key]; !ok {
		n.order = append(n.order, key)
	}
	n.Properties[key] = values
}

func (n *Node) Add(key string, values ...string) {
	n.Set(key, append(n.Properties[key], values...)...)
}

func (n *Node) Delete(key string) {
	if _, ok := n.Properties[key]; !ok {
		return
	}
	delete(n.Properties, key)
	for i, k := range n.order {
		if k == key {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

// Keys lists properties in the order they were first set.
func (n *Node) Keys() []string {
	keys := make([]string, 0, len(n.Properties))
	seen := make(map[string]bool, len(n.order))
	for _, k := range n.order {
		if _, ok := n.Properties[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	for k := range n.Properties {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	return keys
}
