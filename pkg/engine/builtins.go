package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/job"
	"github.com/chazu/kerf/pkg/shape"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites job source before zygomys sees it:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal), so
//     keywords never collide with user variables.
//  2. Kebab-case to underscore: tab-depth -> tab_depth outside keywords.
//     zygomys reads a hyphen inside an identifier as subtraction.
//  3. ; line comments become // comments.
//
// String literals are copied through untouched.
func preprocessSource(source string) string {
	b := []byte(source)
	out := make([]byte, 0, len(b)+len(b)/4)
	for i := 0; i < len(b); {
		switch c := b[i]; {
		case c == '"' || c == '`':
			j := skipString(b, i)
			out = append(out, b[i:j]...)
			i = j
		case c == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}
		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2
		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j
		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++
		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// skipString returns the index just past the string literal starting at i.
// Double-quoted strings honour backslash escapes; backtick strings do not.
func skipString(b []byte, i int) int {
	quote := b[i]
	j := i + 1
	for j < len(b) && b[j] != quote {
		if quote == '"' && b[j] == '\\' && j+1 < len(b) {
			j++
		}
		j++
	}
	return min(j+1, len(b))
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpShape wraps a shape.Shape so it can be passed between builtins.
type sexpShape struct {
	shape shape.Shape
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	kind := "closed"
	if !s.shape.IsClosed() {
		kind = "open"
	}
	b := s.shape.Bounds()
	return fmt.Sprintf("(shape %s %.1fx%.1f islands:%d)", kind, b.Width(), b.Height(), len(s.shape.Islands))
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpOp is returned by the operation builtins and names the operation.
type sexpOp struct {
	name string
	kind job.Kind
}

func (o *sexpOp) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", o.kind, o.name)
}
func (o *sexpOp) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	return strings.CutPrefix(str.S, kwPrefix)
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			// Keyword at end with no value is a flag.
			result.kw[name] = &zygo.SexpBool{Val: true}
		}
	}
	return result
}

// only returns an error naming the first keyword not in allowed.
func (pa kwArgs) only(allowed ...string) error {
	var unknown []string
	for k := range pa.kw {
		if !slices.Contains(allowed, k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return fmt.Errorf("unknown keyword :%s", unknown[0])
}

// has reports whether keyword key was given.
func (pa kwArgs) has(key string) bool {
	_, ok := pa.kw[key]
	return ok
}

// num stores keyword key into dst when present.
func (pa kwArgs) num(key string, dst *float64) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// integer stores keyword key into dst when present.
func (pa kwArgs) integer(key string, dst *int) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	i, ok := v.(*zygo.SexpInt)
	if !ok {
		return fmt.Errorf("%s: expected integer, got %s", key, v.SexpString(nil))
	}
	*dst = int(i.Val)
	return nil
}

// flag stores keyword key into dst when present.
func (pa kwArgs) flag(key string, dst *bool) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	b, err := toBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

// str stores keyword key into dst when present.
func (pa kwArgs) str(key string, dst *string) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	s, err := toString(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = s
	return nil
}

// points stores keyword key, a flat coordinate list, into dst when present.
func (pa kwArgs) points(key string, dst *[]geom.Point) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	pts, err := toPoints(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = pts
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean from a Sexp.
func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toShape extracts a shape from a sexpShape.
func toShape(s zygo.Sexp) (shape.Shape, error) {
	if sh, ok := s.(*sexpShape); ok {
		return sh.shape, nil
	}
	return shape.Shape{}, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// toPoints reads a flat list of coordinates [x0 y0 x1 y1 ...].
func toPoints(s zygo.Sexp) ([]geom.Point, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	if len(items)%2 != 0 {
		return nil, fmt.Errorf("expected x y pairs, got %d numbers", len(items))
	}
	pts := make([]geom.Point, 0, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		x, err := toFloat64(items[i])
		if err != nil {
			return nil, fmt.Errorf("point %d: x: %w", i/2, err)
		}
		y, err := toFloat64(items[i+1])
		if err != nil {
			return nil, fmt.Errorf("point %d: y: %w", i/2, err)
		}
		pts = append(pts, geom.Pt(x, y))
	}
	return pts, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// numbers reads exactly n positional numbers.
func numbers(fn string, args []zygo.Sexp, names ...string) ([]float64, error) {
	if len(args) != len(names) {
		return nil, fmt.Errorf("%s requires %d arguments (%s), got %d",
			fn, len(names), strings.Join(names, " "), len(args))
	}
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", fn, names[i], err)
		}
		out[i] = f
	}
	return out, nil
}
