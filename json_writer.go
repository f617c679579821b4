package costbasis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// jsonObjectWriter builds a JSON object whose keys come out in the order they
// are appended. The zero value is an empty object.
//
// The first marshaling error sticks: later calls are ignored and
// MarshalJSON returns it.
type jsonObjectWriter struct {
	bytes.Buffer
	err error
}

// Append writes key with value marshaled by encoding/json.
func (w *jsonObjectWriter) Append(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	data, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("cannot marshal %q: %w", key, err)
		return w
	}
	if w.Len() > 0 {
		w.WriteByte(',')
	}
	k, _ := json.Marshal(key)
	w.Write(k)
	w.WriteByte(':')
	w.Write(data)
	return w
}

// Optional is Append, skipped when value is the zero value of its type.
func (w *jsonObjectWriter) Optional(key string, value any) *jsonObjectWriter {
	if v := reflect.ValueOf(value); !v.IsValid() || v.IsZero() {
		return w
	}
	return w.Append(key, value)
}

func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	res := make([]byte, 0, w.Len()+2)
	res = append(res, '{')
	res = append(res, w.Bytes()...)
	return append(res, '}'), nil
}
