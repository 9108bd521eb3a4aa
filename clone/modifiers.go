package clone

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

func init() {

	// @stripLocale rewrites the keys of an object so "subject#en" becomes "subject".
	// Members are kept in document order, so when both variants of a key are present
	// the one that appears last wins once the result is read into Properties.
	gjson.AddModifier("stripLocale", func(raw, arg string) string {
		res := gjson.Parse(raw)
		if !res.IsObject() {
			return raw
		}
		buf := []byte{'{'}
		first := true
		res.ForEach(func(key, value gjson.Result) bool {
			keyJSON, err := json.Marshal(StripLocaleSuffix(key.String()))
			if err != nil {
				return true
			}
			if !first {
				buf = append(buf, ',')
			}
			first = false
			buf = append(buf, keyJSON...)
			buf = append(buf, ':')
			buf = append(buf, value.Raw...)
			return true
		})
		buf = append(buf, '}')
		return string(buf)
	})

}

// StripLocaleSuffix removes a two character language suffix such as "#en" from a property name.
// The suffix is counted in characters, not bytes.
func StripLocaleSuffix(name string) string {
	r := []rune(name)
	if len(r) > 3 && r[len(r)-3] == '#' {
		return string(r[:len(r)-3])
	}
	return name
}
