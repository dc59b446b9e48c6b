package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"

	dynerrors "github.com/dynarec/dynarec/internal/errors"
	"github.com/dynarec/dynarec/pkg/types"
)

// encodePayload serializes fields to snappy-compressed JSON and returns the
// blob with its murmur3 checksum.
func encodePayload(fields types.Fields) ([]byte, int64, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, 0, fmt.Errorf("store: failed to encode document: %w", err)
	}
	blob := snappy.Encode(nil, raw)
	return blob, int64(murmur3.Sum64(blob)), nil
}

// decodePayload verifies the checksum, decompresses, and decodes a document
// payload. Integral numbers decode to int64, others to float64.
func decodePayload(blob []byte, checksum int64) (types.Fields, error) {
	if int64(murmur3.Sum64(blob)) != checksum {
		return nil, dynerrors.New(dynerrors.ErrCategoryStore, dynerrors.CodeDocCorrupted,
			"document payload checksum mismatch")
	}

	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, dynerrors.Wrap(dynerrors.ErrCategoryStore, dynerrors.CodeDocCorrupted,
			"document payload failed to decompress", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("store: failed to decode document: %w", err)
	}

	return types.Fields(convertNumbers(m).(map[string]any)), nil
}

// convertNumbers walks a decoded JSON value and converts json.Number to
// int64 when integral, float64 otherwise.
func convertNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, vv := range t {
			t[k] = convertNumbers(vv)
		}
		return t
	case []any:
		for i, vv := range t {
			t[i] = convertNumbers(vv)
		}
		return t
	default:
		return v
	}
}
