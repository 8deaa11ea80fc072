package books

import (
	"errors"
	"fmt"
	"strings"
)

// Field is a searchable column of the books table.
type Field string

const (
	FieldTitle  Field = "title"
	FieldAuthor Field = "author"
	FieldTopic  Field = "topic"
)

// Valid reports whether f names a searchable column.
func (f Field) Valid() bool {
	switch f {
	case FieldTitle, FieldAuthor, FieldTopic:
		return true
	}
	return false
}

const (
	likeSuffix = " LIKE ?"
	andSep     = " AND "
)

// ErrBadFilter is returned for clauses outside the supported grammar.
var ErrBadFilter = errors.New("unsupported filter clause")

// Filter is a predicate of the form "<field> LIKE ?[ AND <field> LIKE ?...]"
// with one bound parameter per placeholder. The zero Filter matches everything.
type Filter struct {
	Clause string
	Params []string
}

// Like builds a substring filter on field, wrapping value in wildcards.
// Wildcards typed by the user are kept as-is.
func Like(field Field, value string) Filter {
	return Filter{Clause: string(field) + likeSuffix, Params: []string{"%" + value + "%"}}
}

// And joins two filters.
func (f Filter) And(other Filter) Filter {
	if f.IsZero() {
		return other
	}
	if other.IsZero() {
		return f
	}
	params := make([]string, 0, len(f.Params)+len(other.Params))
	params = append(append(params, f.Params...), other.Params...)
	return Filter{Clause: f.Clause + andSep + other.Clause, Params: params}
}

// IsZero reports whether the filter matches every record.
func (f Filter) IsZero() bool {
	return f.Clause == "" && len(f.Params) == 0
}

// Fields parses the clause and returns the filtered columns in order.
func (f Filter) Fields() ([]Field, error) {
	if f.Clause == "" {
		if len(f.Params) != 0 {
			return nil, fmt.Errorf("%w: %d params without clause", ErrBadFilter, len(f.Params))
		}
		return nil, nil
	}
	parts := strings.Split(f.Clause, andSep)
	fields := make([]Field, 0, len(parts))
	for _, part := range parts {
		name, ok := strings.CutSuffix(part, likeSuffix)
		if !ok || !Field(name).Valid() {
			return nil, fmt.Errorf("%w: %q", ErrBadFilter, part)
		}
		fields = append(fields, Field(name))
	}
	if len(fields) != len(f.Params) {
		return nil, fmt.Errorf("%w: %d placeholders, %d params", ErrBadFilter, len(fields), len(f.Params))
	}
	return fields, nil
}

// Validate checks the clause against the supported grammar.
func (f Filter) Validate() error {
	_, err := f.Fields()
	return err
}
