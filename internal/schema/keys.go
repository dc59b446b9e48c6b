package schema

import (
	"strings"

	"github.com/dynarec/dynarec/internal/store"
	"github.com/dynarec/dynarec/pkg/types"
)

// Attribute keys beginning with "$" (e.g. $id, $schema) collide with
// store-reserved syntax and are persisted under a "_$" prefix instead.
const reservedPrefix = "_$"

// escapeKeys returns a copy of fields with every "$"-prefixed key renamed
// to its stored "_$" form.
func escapeKeys(fields types.Fields) types.Fields {
	out := make(types.Fields, len(fields))
	for k, v := range fields {
		if strings.HasPrefix(k, "$") {
			k = "_" + k
		}
		out[k] = v
	}
	return out
}

// restoreKeys returns a copy of fields with every stored "_$" key renamed
// back to its "$" form, and the store's own identity field stripped.
func restoreKeys(fields types.Fields) types.Fields {
	out := make(types.Fields, len(fields))
	for k, v := range fields {
		if k == store.IDField {
			continue
		}
		if strings.HasPrefix(k, reservedPrefix) {
			k = k[1:]
		}
		out[k] = v
	}
	return out
}
