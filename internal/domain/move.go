package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	errs "sgf_review/internal/errors"
)

type Color string

const (
	Black Color = "black"
	White Color = "white"
)

func (c Color) Other() Color {
	if c == Black {
		return White
	}
	return Black
}

// Short is the single-letter form used by SGF properties: "B" or "W".
func (c Color) Short() string {
	if c == White {
		return "W"
	}
	return "B"
}

func ParseColor(s string) (Color, error) {
	switch strings.ToLower(s) {
	case "b", "black":
		return Black, nil
	case "w", "white":
		return White, nil
	}
	return "", fmt.Errorf("%w: %q", errs.ErrBadColor, s)
}

// Valid reports whether c is one of the two stone colors.
func (c Color) Valid() bool {
	return c == Black || c == White
}

// Move is a record-native coordinate such as "dp". The empty string is a pass.
type Move string

const (
	Pass   Move = ""
	Resign Move = "resign"
)

const (
	recordLetters = "abcdefghijklmnopqrstuvwxy"
	engineLetters = "abcdefghjklmnopqrstuvwxyz"
)

func (m Move) IsPass() bool {
	return m == Pass || m == "tt"
}

// RecordToEngine converts "dp" into "d16" on a 19x19 board.
func RecordToEngine(boardSize int, m Move) (string, error) {
	if m.IsPass() {
		return "pass", nil
	}
	if len(m) != 2 {
		return "", fmt.Errorf("%w: %q", errs.ErrBadCoordinate, string(m))
	}
	col := strings.IndexByte(recordLetters, m[0])
	row := strings.IndexByte(recordLetters, m[1])
	if col < 0 || row < 0 || col >= boardSize || row >= boardSize {
		return "", fmt.Errorf("%w: %q", errs.ErrBadCoordinate, string(m))
	}
	return fmt.Sprintf("%c%d", engineLetters[col], boardSize-row), nil
}

// EngineToRecord converts "D16" (any case) into "dp" on a 19x19 board.
func EngineToRecord(boardSize int, coord string) (Move, error) {
	coord = strings.ToLower(strings.TrimSpace(coord))
	switch coord {
	case "pass":
		return Pass, nil
	case "resign":
		return Resign, nil
	}
	if len(coord) < 2 {
		return "", fmt.Errorf("%w: %q", errs.ErrBadCoordinate, coord)
	}
	col := strings.IndexByte(engineLetters, coord[0])
	n, err := strconv.Atoi(coord[1:])
	if err != nil || col < 0 || col >= boardSize || n < 1 || n > boardSize {
		return "", fmt.Errorf("%w: %q", errs.ErrBadCoordinate, coord)
	}
	return Move([]byte{recordLetters[col], recordLetters[boardSize-n]}), nil
}

type Play struct {
	Color Color `json:"color" bson:"color"`
	Move  Move  `json:"move" bson:"move"`
}

// History is the ordered list of plays that reproduces a position.
type History []Play

// Commands renders the history as "play <color> <coord>" lines.
func (h History) Commands(boardSize int) ([]string, error) {
	cmds := make([]string, 0, len(h))
	for _, p := range h {
		coord, err := p.engineCoord(boardSize)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, fmt.Sprintf("play %s %s", p.Color, coord))
	}
	return cmds, nil
}

func (p Play) engineCoord(boardSize int) (string, error) {
	if !p.Color.Valid() {
		return "", fmt.Errorf("%w: %q", errs.ErrBadColor, string(p.Color))
	}
	return RecordToEngine(boardSize, p.Move)
}

// Hash is order preserving and depends only on the rendered commands.
func (h History) Hash(boardSize int) (string, error) {
	sum := md5.New()
	for _, p := range h {
		coord, err := p.engineCoord(boardSize)
		if err != nil {
			return "", err
		}
		sum.Write([]byte(string(p.Color)[:1] + coord))
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

func (h History) Clone() History {
	out := make(History, len(h))
	copy(out, h)
	return out
}
