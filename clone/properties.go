package clone

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/tidwall/gjson"
)

// Properties is an insertion-ordered map of form property names to values.
// Setting an existing key replaces its value but keeps its original position,
// so the last write for a key wins.
type Properties struct {
	keys   []string
	values map[string]interface{}
}

// NewProperties returns an empty Properties.
func NewProperties() *Properties {
	return &Properties{values: make(map[string]interface{})}
}

// PropertiesFromJSON reads the members of a JSON object in document order.
// Values are kept as raw JSON so they are copied verbatim.
func PropertiesFromJSON(object gjson.Result) *Properties {
	result := NewProperties()
	if !object.IsObject() {
		return result
	}
	object.ForEach(func(key, value gjson.Result) bool {
		result.SetField(key.String(), json.RawMessage(value.Raw))
		return true
	})
	return result
}

// SetField sets key to value.
func (p *Properties) SetField(key string, value interface{}) {
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value for key and whether it exists.
func (p *Properties) Get(key string) (interface{}, bool) {
	v, exists := p.values[key]
	return v, exists
}

// Keys returns the keys in insertion order.
func (p *Properties) Keys() []string {
	return append([]string(nil), p.keys...)
}

// Merge sets every entry of other, overwriting keys that already exist.
// Keys are applied in sorted order so the result does not depend on map iteration.
func (p *Properties) Merge(other map[string]interface{}) {
	keys := make([]string, 0, len(other))
	for k := range other {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.SetField(k, other[k])
	}
}

func (p *Properties) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range p.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		valJSON, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyJSON...)
		buf = append(buf, ':')
		buf = append(buf, valJSON...)
	}
	buf = append(buf, '}')
	return buf, nil
}

func (p *Properties) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("invalid properties json")
	}
	*p = *PropertiesFromJSON(gjson.ParseBytes(data))
	return nil
}
