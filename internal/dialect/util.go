package dialect

import (
	"strings"
)

// Object names a table, view or type inside a schema. Schema is empty for
// dialects without schemas.
type Object struct {
	Schema string
	Name   string
}

func (o Object) String() string {
	if o.Schema == "" {
		return o.Name
	}
	return o.Schema + "." + o.Name
}

// ParseObject splits "schema.name" into an Object. Names without a dot, and
// any name when the dialect has no schemas, are returned unqualified. Each
// part goes through the dialect's NormalizeIdent.
func ParseObject(d Dialect, name string) Object {
	if d.SupportsSchemas() {
		if i := strings.Index(name, "."); i > 0 && i < len(name)-1 {
			return Object{Schema: d.NormalizeIdent(name[:i]), Name: d.NormalizeIdent(name[i+1:])}
		}
	}
	return Object{Name: d.NormalizeIdent(name)}
}

// unquote strips open/close from a quoted name and undoubles embedded close
// runes. ok is false when name is not quoted.
func unquote(name, open, close string) (inner string, ok bool) {
	if len(name) < len(open)+len(close) || !strings.HasPrefix(name, open) || !strings.HasSuffix(name, close) {
		return name, false
	}
	inner = name[len(open) : len(name)-len(close)]
	return strings.ReplaceAll(inner, close+close, close), true
}

// quoteWith wraps name in open/close, doubling any embedded close rune.
func quoteWith(name, open, close string) string {
	return open + strings.ReplaceAll(name, close, close+close) + close
}

// qualify renders o with quote applied to each part.
func qualify(o Object, quote func(string) string) string {
	if o.Schema == "" {
		return quote(o.Name)
	}
	return quote(o.Schema) + "." + quote(o.Name)
}

// joinQualified renders objs as a comma-separated list for batched DDL.
func joinQualified(objs []Object, quote func(string) string) string {
	parts := make([]string, len(objs))
	for i, o := range objs {
		parts[i] = qualify(o, quote)
	}
	return strings.Join(parts, ", ")
}

// perObject builds one statement per object.
func perObject(objs []Object, build func(Object) string) []Statement {
	stmts := make([]Statement, 0, len(objs))
	for _, o := range objs {
		stmts = append(stmts, Statement{SQL: build(o), Objects: []Object{o}})
	}
	return stmts
}

// batched builds a single statement covering every object, or none when
// objs is empty.
func batched(objs []Object, build func(list string) string, quote func(string) string) []Statement {
	if len(objs) == 0 {
		return nil
	}
	return []Statement{{
		SQL:     build(joinQualified(objs, quote)),
		Objects: append([]Object(nil), objs...),
	}}
}
