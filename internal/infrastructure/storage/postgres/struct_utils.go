package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns lists the "db" tags of T, descending into embedded
// structs. Called once per repository at construction.
//
//	columns := ExtractDBColumns[transaction.Transaction]()
//	// ["id", "version", "created_at", ..., "kind", "location_id", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	meta := metadataFor(reflect.TypeOf(zero))
	return meta.columns()
}

type typeMetadata struct {
	// fields maps a direct field index to its column
	fields []taggedField
	// embedded holds indices of anonymous struct fields
	embedded []int
	t        reflect.Type
}

type taggedField struct {
	index  int
	column string
}

var typeCache sync.Map // reflect.Type -> *typeMetadata

func metadataFor(t reflect.Type) *typeMetadata {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{t: t}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous {
				meta.embedded = append(meta.embedded, i)
				continue
			}
			if tag := f.Tag.Get("db"); tag != "" && tag != "-" {
				meta.fields = append(meta.fields, taggedField{index: i, column: tag})
			}
		}
	}

	actual, _ := typeCache.LoadOrStore(t, meta)
	return actual.(*typeMetadata)
}

// columns returns embedded columns first, in declaration order.
func (m *typeMetadata) columns() []string {
	var cols []string
	for _, idx := range m.embedded {
		cols = append(cols, metadataFor(m.t.Field(idx).Type).columns()...)
	}
	for _, f := range m.fields {
		cols = append(cols, f.column)
	}
	return cols
}

// StructToMap converts a struct to column -> value using "db" tags.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	res := make(map[string]any)
	collect(rv, res)
	return res
}

func collect(rv reflect.Value, into map[string]any) {
	meta := metadataFor(rv.Type())
	for _, idx := range meta.embedded {
		collect(reflect.Indirect(rv.Field(idx)), into)
	}
	for _, f := range meta.fields {
		into[f.column] = rv.Field(f.index).Interface()
	}
}

// Values returns the values of cols from m in order, for COPY rows.
func Values(m map[string]any, cols []string) []any {
	out := make([]any, len(cols))
	for i, c := range cols {
		out[i] = m[c]
	}
	return out
}
