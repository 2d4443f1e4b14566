// Package savegame is the hierarchical key/value store the game state is
// written to. Paths look like "usedPlus.searches.farm(0).search(2)#tier":
// dots separate elements, "(n)" indexes repeated children and "#" names an
// attribute.
package savegame

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Document is the read/write surface the core persists through.
type Document interface {
	String(path, def string) string
	Int(path string, def int) int
	Float(path string, def float64) float64
	Bool(path string, def bool) bool

	SetString(path, v string)
	SetInt(path string, v int)
	SetFloat(path string, v float64)
	SetBool(path string, v bool)

	// Has reports whether an attribute or any element below path exists.
	Has(path string) bool
	// Children returns name(0), name(1) ... under path, stopping at the
	// first missing index.
	Children(path, name string) []string
}

// FloatPrecision is the number of decimals floats are stored with.
const FloatPrecision = 6

const (
	KindString = "string"
	KindInt    = "int"
	KindFloat  = "float"
	KindBool   = "bool"
)

// Entry is one stored attribute.
type Entry struct {
	Key   string
	Kind  string
	Value string
}

// Tree is the in-memory Document.
type Tree struct {
	values map[string]Entry
}

func NewTree() *Tree {
	return &Tree{values: make(map[string]Entry)}
}

// Attr joins an element path and an attribute name.
func Attr(path, name string) string {
	return path + "#" + name
}

// Child joins an element path and an indexed child name.
func Child(path, name string, i int) string {
	if path == "" {
		return fmt.Sprintf("%s(%d)", name, i)
	}
	return fmt.Sprintf("%s.%s(%d)", path, name, i)
}

func (t *Tree) lookup(path string) (string, bool) {
	e, ok := t.values[path]
	if !ok {
		return "", false
	}
	return e.Value, true
}

func (t *Tree) String(path, def string) string {
	if v, ok := t.lookup(path); ok {
		return v
	}
	return def
}

func (t *Tree) Int(path string, def int) int {
	v, ok := t.lookup(path)
	if !ok {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		// floats written by older saves truncate
		f, ferr := cast.ToFloat64E(v)
		if ferr != nil {
			return def
		}
		return int(f)
	}
	return n
}

func (t *Tree) Float(path string, def float64) float64 {
	v, ok := t.lookup(path)
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

func (t *Tree) Bool(path string, def bool) bool {
	v, ok := t.lookup(path)
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

func (t *Tree) SetString(path, v string) {
	t.values[path] = Entry{Key: path, Kind: KindString, Value: v}
}

func (t *Tree) SetInt(path string, v int) {
	t.values[path] = Entry{Key: path, Kind: KindInt, Value: strconv.Itoa(v)}
}

func (t *Tree) SetFloat(path string, v float64) {
	t.values[path] = Entry{Key: path, Kind: KindFloat, Value: strconv.FormatFloat(v, 'f', FloatPrecision, 64)}
}

func (t *Tree) SetBool(path string, v bool) {
	t.values[path] = Entry{Key: path, Kind: KindBool, Value: strconv.FormatBool(v)}
}

func (t *Tree) Has(path string) bool {
	if _, ok := t.values[path]; ok {
		return true
	}
	attr, elem := path+"#", path+"."
	for k := range t.values {
		if strings.HasPrefix(k, attr) || strings.HasPrefix(k, elem) {
			return true
		}
	}
	return false
}

func (t *Tree) Children(path, name string) []string {
	present := t.indexes(path, name)
	var out []string
	for i := 0; present[i]; i++ {
		out = append(out, Child(path, name, i))
	}
	return out
}

// indexes collects every n for which name(n) under path has an attribute or
// element below it, in one pass over the keys.
func (t *Tree) indexes(path, name string) map[int]bool {
	prefix := name + "("
	if path != "" {
		prefix = path + "." + prefix
	}
	out := make(map[int]bool)
	for k := range t.values {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		digits, tail, ok := strings.Cut(rest, ")")
		if !ok || (tail != "" && tail[0] != '#' && tail[0] != '.') {
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n < 0 || strconv.Itoa(n) != digits {
			continue
		}
		out[n] = true
	}
	return out
}

// Len is the number of stored attributes.
func (t *Tree) Len() int { return len(t.values) }

// Entries returns every attribute sorted by key.
func (t *Tree) Entries() []Entry {
	out := make([]Entry, 0, len(t.values))
	for _, e := range t.values {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Put stores a raw entry, as read back from a backing store.
func (t *Tree) Put(e Entry) {
	t.values[e.Key] = e
}
