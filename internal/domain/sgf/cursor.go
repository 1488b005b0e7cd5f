package sgf

import (
	"fmt"
	"strconv"

	"sgf_review/internal/domain"
	errs "sgf_review/internal/errors"
)

type frame struct {
	tree  *GameTree
	index int
}

// Cursor walks a game tree node by node. Variations are entered with Next
// and left again with Previous.
type Cursor struct {
	tree  *GameTree
	index int
	stack []frame
}

func NewCursor(s *SGF) *Cursor {
	return &Cursor{tree: s.Root}
}

func (c *Cursor) Node() *Node {
	return c.tree.Nodes[c.index]
}

func (c *Cursor) Children() []*Node {
	if c.index < len(c.tree.Nodes)-1 {
		return []*Node{c.tree.Nodes[c.index+1]}
	}
	nodes := make([]*Node, 0, len(c.tree.Children))
	for _, child := range c.tree.Children {
		nodes = append(nodes, child.Nodes[0])
	}
	return nodes
}

func (c *Cursor) AtEnd() bool {
	return c.index == len(c.tree.Nodes)-1 && len(c.tree.Children) == 0
}

func (c *Cursor) Next(i int) error {
	if c.index < len(c.tree.Nodes)-1 {
		if i != 0 {
			return fmt.Errorf("%w: child %d of a single-child node", errs.ErrCursorBounds, i)
		}
		c.index++
		return nil
	}
	if i < 0 || i >= len(c.tree.Children) {
		return fmt.Errorf("%w: child %d of %d", errs.ErrCursorBounds, i, len(c.tree.Children))
	}
	c.stack = append(c.stack, frame{tree: c.tree, index: c.index})
	c.tree = c.tree.Children[i]
	c.index = 0
	return nil
}

func (c *Cursor) Previous() error {
	if c.index > 0 {
		c.index--
		return nil
	}
	if len(c.stack) == 0 {
		return fmt.Errorf("%w: already at the root", errs.ErrCursorBounds)
	}
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	c.tree, c.index = top.tree, top.index
	return nil
}

// AppendNode adds n as the last child of the current node without moving.
func (c *Cursor) AppendNode(n *Node) {
	t := c.tree
	if c.index < len(t.Nodes)-1 {
		rest := &GameTree{
			Nodes:    append([]*Node(nil), t.Nodes[c.index+1:]...),
			Children: t.Children,
		}
		t.Nodes = t.Nodes[: c.index+1 : c.index+1]
		t.Children = []*GameTree{rest}
	}
	t.Children = append(t.Children, &GameTree{Nodes: []*Node{n}})
}

// ChildMoves reports the move played by every child; nodes without a
// move come back as a zero Play.
func (c *Cursor) ChildMoves() []domain.Play {
	children := c.Children()
	plays := make([]domain.Play, len(children))
	for i, n := range children {
		if p, ok := n.Play(); ok {
			plays[i] = p
		}
	}
	return plays
}

func (c *Cursor) AppendMove(p domain.Play) {
	n := NewNode()
	n.Set(p.Color.Short(), string(p.Move))
	c.AppendNode(n)
}

func (c *Cursor) Annotate(a domain.Annotation) {
	c.Node().Annotate(a)
}

// Play returns the B or W move stored on the node.
func (n *Node) Play() (domain.Play, bool) {
	if v, ok := n.Get("B"); ok {
		return domain.Play{Color: domain.Black, Move: normalizeMove(v)}, true
	}
	if v, ok := n.Get("W"); ok {
		return domain.Play{Color: domain.White, Move: normalizeMove(v)}, true
	}
	return domain.Play{}, false
}

func normalizeMove(v string) domain.Move {
	if domain.Move(v).IsPass() {
		return domain.Pass
	}
	return domain.Move(v)
}

func (n *Node) Annotate(a domain.Annotation) {
	if a.Comment != "" {
		if c, ok := n.Get("C"); ok {
			n.Set("C", c+a.Comment)
		} else {
			n.Set("C", a.Comment)
		}
	}
	if len(a.Labels) > 0 {
		n.Set("LB", a.Labels...)
	}
	if len(a.Triangles) > 0 {
		tr := make([]string, len(a.Triangles))
		for i, m := range a.Triangles {
			tr[i] = string(m)
		}
		n.Set("TR", tr...)
	}
}

// GameInfo is what the root node says about the board and rules.
type GameInfo struct {
	BoardSize int
	Handicap  int
	Komi      float64
	HasKomi   bool
	Rules     string
}

func (n *Node) GameInfo() (GameInfo, error) {
	info := GameInfo{BoardSize: 19}
	if v, ok := n.Get("SZ"); ok {
		size, err := strconv.Atoi(v)
		if err != nil {
			return info, fmt.Errorf("%w: SZ[%s]", errs.ErrMalformedRecord, v)
		}
		info.BoardSize = size
	}
	if v, ok := n.Get("HA"); ok {
		ha, err := strconv.Atoi(v)
		if err != nil {
			return info, fmt.Errorf("%w: HA[%s]", errs.ErrMalformedRecord, v)
		}
		info.Handicap = ha
	}
	if v, ok := n.Get("KM"); ok {
		km, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return info, fmt.Errorf("%w: KM[%s]", errs.ErrMalformedRecord, v)
		}
		info.Komi, info.HasKomi = km, true
	}
	info.Rules, _ = n.Get("RU")
	return info, nil
}
