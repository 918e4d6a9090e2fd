package entity

import (
	"strconv"
	"strings"
)

const (
	puzzleMin = 1
	puzzleMax = 10
)

// Puzzle is the two-operand addition shown on the registration form.
type Puzzle struct {
	A int `json:"a"`
	B int `json:"b"`
}

// NewPuzzle draws both operands uniformly from 1..10; num(n) must return
// a value in [0, n).
func NewPuzzle(num func(n int) int) Puzzle {
	span := puzzleMax - puzzleMin + 1
	return Puzzle{
		A: puzzleMin + num(span),
		B: puzzleMin + num(span),
	}
}

func (p Puzzle) Answer() int {
	return p.A + p.B
}

// Valid reports whether both operands are in range; a zero Puzzle means
// none was issued.
func (p Puzzle) Valid() bool {
	return p.A >= puzzleMin && p.A <= puzzleMax && p.B >= puzzleMin && p.B <= puzzleMax
}

// Check compares a submitted answer; anything that is not an integer fails.
func (p Puzzle) Check(answer string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil {
		return false
	}
	return p.Valid() && n == p.Answer()
}
