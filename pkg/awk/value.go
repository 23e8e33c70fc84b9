// Package awk implements a self-contained AWK-compatible scripting
// language: lexer, parser, and tree-walking interpreter. It runs entirely
// in-memory with no process or stream access (system and getline are inert
// stand-ins), which is what lets it serve as an embedded command handler.
package awk

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type valueKind int

const (
	kindUninit valueKind = iota
	kindNum
	kindStr
	// kindStrnum marks strings that came from input (fields, getline,
	// FS-split pieces): they compare numerically when they look numeric.
	kindStrnum
)

// value is an AWK scalar: every value is a string or a number, with input
// strings carrying the "looks numeric" taint that drives dual-mode
// comparison.
type value struct {
	kind valueKind
	n    float64
	s    string
}

var uninit = value{}

func num(f float64) value   { return value{kind: kindNum, n: f} }
func str(s string) value    { return value{kind: kindStr, s: s} }
func strnum(s string) value { return value{kind: kindStrnum, s: s} }
func boolNum(b bool) value {
	if b {
		return num(1)
	}
	return num(0)
}

// numValue parses the leading numeric prefix of a string, the way awk
// coerces strings to numbers ("3abc" is 3, "abc" is 0).
func numPrefix(s string) float64 {
	s = strings.TrimLeft(s, " \t\n")
	end := 0
	seenDigit := false
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		seenDigit = true
		end = i
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			seenDigit = true
			end = i
		}
	}
	if seenDigit && i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expDigits := false
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			expDigits = true
		}
		if expDigits {
			end = j
		}
	}
	if !seenDigit {
		return 0
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}

// looksNumeric reports whether a string is exactly an optional-sign decimal
// or exponent number (surrounding blanks allowed). This is the gate for
// numeric comparison of strings.
func looksNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	i := 0
	if s[i] == '+' || s[i] == '-' {
		i++
	}
	digits := false
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits = true
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits = true
		}
	}
	if !digits {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		expDigits := false
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			expDigits = true
		}
		if !expDigits {
			return false
		}
	}
	return i == len(s)
}

// Num coerces to a number.
func (v value) Num() float64 {
	switch v.kind {
	case kindNum:
		return v.n
	case kindStr, kindStrnum:
		return numPrefix(v.s)
	}
	return 0
}

// Str coerces to a string using convfmt for non-integral numbers.
func (v value) Str(convfmt string) string {
	switch v.kind {
	case kindNum:
		return formatNum(v.n, convfmt)
	case kindStr, kindStrnum:
		return v.s
	}
	return ""
}

// Bool is AWK truthiness: numbers by non-zero, strings by non-empty, input
// strings numerically when they look numeric.
func (v value) Bool() bool {
	switch v.kind {
	case kindNum:
		return v.n != 0
	case kindStrnum:
		if looksNumeric(v.s) {
			return numPrefix(v.s) != 0
		}
		return v.s != ""
	case kindStr:
		return v.s != ""
	}
	return false
}

func (v value) isNumeric() bool {
	switch v.kind {
	case kindNum, kindUninit:
		return true
	case kindStr, kindStrnum:
		return looksNumeric(v.s)
	}
	return false
}

// compareValues implements dual-mode comparison: numeric only when both
// operands look numeric, lexicographic otherwise.
func compareValues(a, b value, convfmt string) int {
	if a.isNumeric() && b.isNumeric() {
		an, bn := a.Num(), b.Num()
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}
	return strings.Compare(a.Str(convfmt), b.Str(convfmt))
}

// formatNum renders a number the way awk output conversion does: integral
// values print as integers, everything else through the conversion format.
func formatNum(f float64, convfmt string) string {
	if math.IsNaN(f) {
		return "nan"
	}
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatInt(int64(f), 10)
	}
	if convfmt == "" {
		convfmt = "%.6g"
	}
	return fmt.Sprintf(convfmt, f)
}
