package awk

import (
	"fmt"
	"strings"
)

// sprintf implements the printf/sprintf format language: the C conversions
// diouxXeEfgGsc and %%, the flags "- + space # 0", and width and precision
// given literally or as * arguments. Numeric conversions coerce the value,
// %s converts with CONVFMT, and %c accepts either a character code or the
// first character of a string.
func (in *interp) sprintf(format string, args []value) (string, error) {
	var b strings.Builder
	next := 0
	take := func() value {
		if next < len(args) {
			v := args[next]
			next++
			return v
		}
		return uninit
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			return "", fmt.Errorf("printf: trailing %% in format %q", format)
		}
		if format[i] == '%' {
			b.WriteByte('%')
			continue
		}
		spec := []byte{'%'}
		for i < len(format) && strings.IndexByte("-+ #0", format[i]) >= 0 {
			spec = append(spec, format[i])
			i++
		}
		spec, i = appendAmount(spec, format, i, take)
		if i < len(format) && format[i] == '.' {
			spec = append(spec, '.')
			i++
			spec, i = appendAmount(spec, format, i, take)
		}
		if i >= len(format) {
			return "", fmt.Errorf("printf: incomplete conversion in format %q", format)
		}
		verb := format[i]
		v := take()
		switch verb {
		case 'd', 'i':
			spec = append(spec, 'd')
			b.WriteString(fmt.Sprintf(string(spec), int64(v.Num())))
		case 'o', 'x', 'X':
			spec = append(spec, verb)
			b.WriteString(fmt.Sprintf(string(spec), int64(v.Num())))
		case 'u':
			spec = append(spec, 'd')
			b.WriteString(fmt.Sprintf(string(spec), int64(uint32(int64(v.Num())))))
		case 'e', 'E', 'f', 'g', 'G':
			spec = append(spec, verb)
			b.WriteString(fmt.Sprintf(string(spec), v.Num()))
		case 's':
			spec = append(spec, 's')
			b.WriteString(fmt.Sprintf(string(spec), v.Str(in.convfmt)))
		case 'c':
			spec = append(spec, 's')
			b.WriteString(fmt.Sprintf(string(spec), charArg(v, in.convfmt)))
		default:
			return "", fmt.Errorf("printf: unsupported conversion %%%c", verb)
		}
	}
	return b.String(), nil
}

// appendAmount copies a width or precision from the format, resolving * to
// the next argument's integer value.
func appendAmount(spec []byte, format string, i int, take func() value) ([]byte, int) {
	if i < len(format) && format[i] == '*' {
		return append(spec, fmt.Sprintf("%d", int(take().Num()))...), i + 1
	}
	for i < len(format) && format[i] >= '0' && format[i] <= '9' {
		spec = append(spec, format[i])
		i++
	}
	return spec, i
}

// charArg renders a %c argument: a number is a character code, a string
// contributes its first character, and anything empty prints nothing.
func charArg(v value, convfmt string) string {
	if v.kind == kindNum {
		n := int(v.Num())
		if n <= 0 {
			return ""
		}
		return string(rune(n))
	}
	s := v.Str(convfmt)
	if s == "" {
		return ""
	}
	r := []rune(s)
	return string(r[0])
}
