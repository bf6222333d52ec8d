// Package dice rolls Fudge dice and maps totals onto the Fate ladder.
package dice

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Face is the visible side of a Fudge die.
type Face string

const (
	Plus  Face = "+"
	Minus Face = "-"
	Blank Face = "○"
)

// DefaultDice is the number of dice in a standard Fate roll.
const DefaultDice = 4

// DefaultMaxDice caps the dice count of an extended roll.
const DefaultMaxDice = 50

// sides lists the six faces of a Fudge die.
var sides = [6]Face{Plus, Minus, Blank, Plus, Minus, Blank}

// Value returns the face's contribution to a roll total.
func (f Face) Value() int {
	switch f {
	case Plus:
		return 1
	case Minus:
		return -1
	default:
		return 0
	}
}

// Roller is a source of uniform random integers in [0, n).
type Roller interface {
	IntN(n int) int
}

type defaultRoller struct{}

func (defaultRoller) IntN(n int) int { return rand.Intn(n) }

// DefaultRoller is backed by math/rand's global generator and is safe
// for concurrent use.
var DefaultRoller Roller = defaultRoller{}

// RollFace rolls a single die.
func RollFace(r Roller) Face {
	return sides[r.IntN(len(sides))]
}

// Result is the outcome of rolling several dice.
type Result struct {
	Total int
	Faces []Face
}

// Roll rolls n dice. A non-positive n yields an empty result.
func Roll(r Roller, n int) Result {
	var res Result
	for i := 0; i < n; i++ {
		f := RollFace(r)
		res.Faces = append(res.Faces, f)
		res.Total += f.Value()
	}
	return res
}

// Joined renders the faces in roll order separated by " , ".
func (r Result) Joined() string {
	parts := make([]string, len(r.Faces))
	for i, f := range r.Faces {
		parts[i] = string(f)
	}
	return strings.Join(parts, " , ")
}

// Ladder names a total on the Fate ladder.
func Ladder(total int) string {
	switch total {
	case 8:
		return "Legendary"
	case 7:
		return "Epic"
	case 6:
		return "Fantastic"
	case 5:
		return "Superb"
	case 4:
		return "Great"
	case 3:
		return "Good"
	case 2:
		return "Fair"
	case 1:
		return "Average"
	case 0:
		return "Mediocre"
	case -1:
		return "Poor"
	case -2:
		return "Terrible"
	default:
		return "Holy !@#$%"
	}
}

// ClampStat pulls stat inward so that stat ± dice stays strictly inside
// the int8 range.
func ClampStat(stat, dice int) int {
	switch {
	case stat-dice <= math.MinInt8:
		return math.MinInt8 + dice
	case stat+dice >= math.MaxInt8:
		return math.MaxInt8 - dice
	default:
		return stat
	}
}

// ClampDice caps n at max. A non-positive max means DefaultMaxDice.
func ClampDice(n, max int) int {
	if max <= 0 {
		max = DefaultMaxDice
	}
	if n > max {
		return max
	}
	return n
}

// FormatRoll renders a roll with a stat modifier, e.g.
// "Result: **Good (3 = 2 + 1)** [ + , ○ , ○ , - ]".
func FormatRoll(res Result, stat int) string {
	sum := res.Total + stat
	return fmt.Sprintf("Result: **%s (%d = %d + %d)** [ %s ]",
		Ladder(sum), sum, stat, res.Total, res.Joined())
}

// RollStat performs a complete roll of dice Fudge dice against stat:
// the dice count is capped at maxDice, the stat is clamped and the
// formatted result is returned.
func RollStat(r Roller, dice, maxDice, stat int) string {
	n := ClampDice(dice, maxDice)
	stat = ClampStat(stat, n)
	return FormatRoll(Roll(r, n), stat)
}
