package attachkit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metadata describes an uploaded file. The well-known fields are typed and
// optional; absent fields serialize as explicit JSON nulls so that a
// marshal/unmarshal round trip preserves the value exactly. Analyzer
// contributed fields live in Extra and are inlined into the JSON object
// after the well-known keys, preserving insertion order.
type Metadata struct {
	Size     *int64
	MIMEType *string
	Filename *string
	Extra    Extra
}

// SetSize records the byte length of the content.
func (m *Metadata) SetSize(n int64) {
	m.Size = &n
}

// SetMIMEType records the media type of the content.
func (m *Metadata) SetMIMEType(mt string) {
	m.MIMEType = &mt
}

// SetFilename records the original, caller-supplied file name.
func (m *Metadata) SetFilename(name string) {
	m.Filename = &name
}

// wellKnownKeys are reserved for the typed Metadata fields and may not be
// used as Extra keys.
var wellKnownKeys = map[string]bool{
	"size":      true,
	"mime_type": true,
	"filename":  true,
}

// MarshalJSON implements the json.Marshaler interface. The well-known keys
// are always emitted, null when unset, followed by the Extra entries in
// insertion order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField := func(key string, value interface{}) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := writeField("size", m.Size); err != nil {
		return nil, err
	}
	if err := writeField("mime_type", m.MIMEType); err != nil {
		return nil, err
	}
	if err := writeField("filename", m.Filename); err != nil {
		return nil, err
	}
	for _, key := range m.Extra.Keys() {
		value, _ := m.Extra.Get(key)
		if err := writeField(key, value); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface. Extra keys are
// restored in the order they appear in the document.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("metadata: expected object, got %v", tok)
	}

	*m = Metadata{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("metadata: expected object key, got %v", tok)
		}

		switch key {
		case "size":
			if err := dec.Decode(&m.Size); err != nil {
				return err
			}
		case "mime_type":
			if err := dec.Decode(&m.MIMEType); err != nil {
				return err
			}
		case "filename":
			if err := dec.Decode(&m.Filename); err != nil {
				return err
			}
		default:
			var value interface{}
			if err := dec.Decode(&value); err != nil {
				return err
			}
			m.Extra.Set(key, value)
		}
	}

	// consume the closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// Extra is an insertion-ordered mapping of analyzer-contributed metadata
// fields. The zero value is an empty, ready-to-use map.
type Extra struct {
	keys   []string
	values map[string]interface{}
}

// Set stores value under key, appending the key to the iteration order on
// first use. Setting a well-known Metadata key panics, as it would silently
// shadow the typed field.
func (e *Extra) Set(key string, value interface{}) {
	if wellKnownKeys[key] {
		panic(fmt.Sprintf("attachkit: %q is a reserved metadata key", key))
	}
	if e.values == nil {
		e.values = make(map[string]interface{})
	}
	if _, exists := e.values[key]; !exists {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

// Get returns the value stored under key.
func (e Extra) Get(key string) (interface{}, bool) {
	value, ok := e.values[key]
	return value, ok
}

// Keys returns the keys in insertion order.
func (e Extra) Keys() []string {
	keys := make([]string, len(e.keys))
	copy(keys, e.keys)
	return keys
}

// Len returns the number of entries.
func (e Extra) Len() int {
	return len(e.keys)
}
