package model

import (
	"fmt"
	"strings"
)

// CompLevel is a TBA competition level code.
type CompLevel string

const (
	LevelCustom  CompLevel = "cm"
	LevelQual    CompLevel = "qm"
	LevelEighth  CompLevel = "ef"
	LevelQuarter CompLevel = "qf"
	LevelSemi    CompLevel = "sf"
	LevelFinal   CompLevel = "f"
)

// Order returns the sort precedence of the level: cm < qm < ef < qf < sf < f.
// Unknown levels sort last.
func (l CompLevel) Order() int {
	switch l {
	case LevelCustom:
		return 0
	case LevelQual:
		return 1
	case LevelEighth:
		return 2
	case LevelQuarter:
		return 3
	case LevelSemi:
		return 4
	case LevelFinal:
		return 5
	default:
		return 6
	}
}

// IsElim reports whether the level is a playoff level.
func (l CompLevel) IsElim() bool {
	return l != LevelQual && l != LevelCustom
}

// doubleElimRound maps a double-elimination "sf" set number to its round.
func doubleElimRound(set int) int {
	switch {
	case set <= 4:
		return 1
	case set <= 8:
		return 2
	case set <= 10:
		return 3
	case set <= 12:
		return 4
	default:
		return 5
	}
}

// MatchName derives the display name and short name of a match. It is a pure
// function of its arguments.
func MatchName(level CompLevel, set, number int, doubleElim bool) (name, short string) {
	switch {
	case level == LevelQual:
		return fmt.Sprintf("Qual %d", number), fmt.Sprintf("%d", number)
	case level == LevelCustom:
		return fmt.Sprintf("Custom %d", number), fmt.Sprintf("C%d", number)
	case doubleElim && level == LevelSemi:
		return fmt.Sprintf("Round %d Match %d", doubleElimRound(set), set), fmt.Sprintf("M%d", set)
	case doubleElim && level == LevelFinal:
		return fmt.Sprintf("Final %d", number), fmt.Sprintf("F%d", number)
	default:
		upper := strings.ToUpper(string(level))
		return fmt.Sprintf("%s %d-%d", upper, set, number), fmt.Sprintf("%s%d%d", upper, set, number)
	}
}

// MatchKey builds the canonical key of a match, e.g. "2024mibkn_qm12" or
// "2024mibkn_sf3m1".
func MatchKey(eventID string, level CompLevel, set, number int) string {
	if level == LevelQual || level == LevelCustom {
		return fmt.Sprintf("%s_%s%d", eventID, level, number)
	}
	return fmt.Sprintf("%s_%s%dm%d", eventID, level, set, number)
}
