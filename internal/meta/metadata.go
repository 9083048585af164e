package meta

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
)

// Metadata carries free-form POS attributes on invoices and adjustments
// (terminal id, ticket series, waiter code). It is a bounded string map
// with validation and a stable JSON encoding so stored rows diff cleanly.
type Metadata map[string]string

const (
	MaxPairs     = 20
	MaxKeyLen    = 64
	MaxValLen    = 256
	MaxTotalJSON = 4096
)

var (
	ErrTooManyPairs = errors.New("metadata: too many pairs")
	ErrBadKey       = errors.New("metadata: key empty or too long")
	ErrBadValue     = errors.New("metadata: value too long")
	ErrTooLarge     = errors.New("metadata: exceeds max encoded size")
)

// New copies m into a fresh Metadata. A nil input yields an empty map.
func New(m map[string]string) Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m Metadata) Get(k string) (string, bool) {
	v, ok := m[k]
	return v, ok
}

// Set stores a pair when it fits the limits; oversized input is ignored
// and surfaces through Validate instead.
func (m Metadata) Set(k, v string) {
	if len(m) >= MaxPairs {
		return
	}
	if len(k) == 0 || len(k) > MaxKeyLen || len(v) > MaxValLen {
		return
	}
	m[k] = v
}

func (m Metadata) Del(k string) { delete(m, k) }

// Merge copies other into m in sorted key order so the result is
// deterministic when the pair limit truncates.
func (m Metadata) Merge(other Metadata) {
	keys := make([]string, 0, len(other))
	for k := range other {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.Set(k, other[k])
	}
}

func (m Metadata) Validate() error {
	if len(m) > MaxPairs {
		return ErrTooManyPairs
	}
	for k, v := range m {
		if len(k) == 0 || len(k) > MaxKeyLen {
			return ErrBadKey
		}
		if len(v) > MaxValLen {
			return ErrBadValue
		}
	}
	b, err := m.MarshalStableJSON()
	if err != nil {
		return err
	}
	if len(b) > MaxTotalJSON {
		return ErrTooLarge
	}
	return nil
}

// MarshalStableJSON encodes with keys sorted so equal maps always
// produce identical bytes.
func (m Metadata) MarshalStableJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, k := range keys {
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(m[k])
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		if i < len(keys)-1 {
			buf.WriteByte(',')
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m Metadata) MarshalJSON() ([]byte, error) { return m.MarshalStableJSON() }

func (m *Metadata) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = Metadata{}
		return nil
	}
	var tmp map[string]string
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*m = New(tmp)
	return nil
}
