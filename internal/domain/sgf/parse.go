package sgf

import (
	"fmt"
	"strings"
	"unicode"

	errs "sgf_review/internal/errors"
)

type parser struct {
	src string
	pos int
}

// Parse reads the first game tree of an SGF collection.
func Parse(src string) (*SGF, error) {
	p := &parser{src: src}
	p.skipSpace()
	if !p.consume('(') {
		return nil, p.fail("expected '('")
	}
	tree, err := p.gameTree()
	if err != nil {
		return nil, err
	}
	return &SGF{Root: tree}, nil
}

func (p *parser) gameTree() (*GameTree, error) {
	tree := &GameTree{}
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.fail("unterminated game tree")
		}
		switch p.src[p.pos] {
		case ';':
			if len(tree.Children) > 0 {
				return nil, p.fail("node after variation")
			}
			p.pos++
			node, err := p.node()
			if err != nil {
				return nil, err
			}
			tree.Nodes = append(tree.Nodes, node)
		case '(':
			p.pos++
			child, err := p.gameTree()
			if err != nil {
				return nil, err
			}
			tree.Children = append(tree.Children, child)
		case ')':
			p.pos++
			if len(tree.Nodes) == 0 {
				return nil, p.fail("empty game tree")
			}
			return tree, nil
		default:
			return nil, p.fail(fmt.Sprintf("unexpected %q", p.src[p.pos]))
		}
	}
}

func (p *parser) node() (*Node, error) {
	node := NewNode()
	for {
		p.skipSpace()
		if p.eof() || !unicode.IsUpper(rune(p.src[p.pos])) {
			return node, nil
		}
		start := p.pos
		for !p.eof() && unicode.IsUpper(rune(p.src[p.pos])) {
			p.pos++
		}
		key := p.src[start:p.pos]

		var values []string
		for {
			p.skipSpace()
			if !p.consume('[') {
				break
			}
			v, err := p.value()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			return nil, p.fail("property " + key + " has no value")
		}
		node.Add(key, values...)
	}
}

func (p *parser) value() (string, error) {
	var b strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case ']':
			return b.String(), nil
		case '\\':
			if p.eof() {
				return "", p.fail("dangling escape")
			}
			next := p.src[p.pos]
			p.pos++
			// escaped newline is a soft line break
			if next == '\n' {
				continue
			}
			if next == '\r' {
				p.consume('\n')
				continue
			}
			b.WriteByte(next)
		default:
			b.WriteByte(c)
		}
	}
	return "", p.fail("unterminated property value")
}

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *parser) consume(c byte) bool {
	if !p.eof() && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) fail(msg string) error {
	return fmt.Errorf("%w: %s at offset %d", errs.ErrMalformedRecord, msg, p.pos)
}
