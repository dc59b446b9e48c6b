package types

import "strings"

// ColumnType is the declared type of a table column.
type ColumnType string

const (
	ColTypeString ColumnType = "string"
	ColTypeInt    ColumnType = "int"
	ColTypeFloat  ColumnType = "float"
	ColTypeBool   ColumnType = "bool"
	ColTypeAny    ColumnType = "any"
)

// Valid reports whether the column type is one of the declared variants.
func (t ColumnType) Valid() bool {
	switch t {
	case ColTypeString, ColTypeInt, ColTypeFloat, ColTypeBool, ColTypeAny:
		return true
	}
	return false
}

// Column defines a single column in a table descriptor.
type Column struct {
	// Label is the column name as it appears in record fields
	Label string `json:"label"`

	// Type is the declared column type: string, int, float, bool, any
	Type ColumnType `json:"type"`

	// Required indicates the field must be present and non-nil
	Required bool `json:"required,omitempty"`

	// AutoIncrement indicates the column is filled from the table's
	// sequence counter on first save
	AutoIncrement bool `json:"autoIncrement,omitempty"`
}

// TableDescriptor is the structural schema of one logical table,
// persisted in the store's schema registry.
type TableDescriptor struct {
	// TableSlug is the lowercase, whitespace-free table identifier
	TableSlug string `json:"tableSlug"`

	// Columns defines the declared columns
	Columns []Column `json:"columns"`

	// ID is the descriptor's namespaced identifier ($id)
	ID string `json:"$id,omitempty"`

	// Schema is the meta-schema reference ($schema)
	Schema string `json:"$schema,omitempty"`

	// Strict rejects fields not declared in Columns
	Strict bool `json:"strict,omitempty"`
}

// Exists reports whether the descriptor denotes an existing table.
// An empty slug is the registry's not-found representation.
func (d *TableDescriptor) Exists() bool {
	return d != nil && d.TableSlug != ""
}

// Column returns the declared column with the given label, or nil.
func (d *TableDescriptor) Column(label string) *Column {
	for i := range d.Columns {
		if d.Columns[i].Label == label {
			return &d.Columns[i]
		}
	}
	return nil
}

// AutoIncrementColumns returns the labels of all auto-incrementing columns.
func (d *TableDescriptor) AutoIncrementColumns() []string {
	var labels []string
	for _, c := range d.Columns {
		if c.AutoIncrement {
			labels = append(labels, c.Label)
		}
	}
	return labels
}

// ValidSlug reports whether slug is a usable table identifier:
// non-empty, lowercase, and free of whitespace.
func ValidSlug(slug string) bool {
	if slug == "" {
		return false
	}
	if slug != strings.ToLower(slug) {
		return false
	}
	return !strings.ContainsAny(slug, " \t\n\r")
}
