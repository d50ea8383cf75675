package selector

import "github.com/tidwall/gjson"

// JSON builds a selector over parsed JSON using a JSONPath-flavored
// expression (tidwall/gjson). A match on a JSON array yields one string per
// element; a match on a scalar yields one string; a match on an object
// yields its compact JSON encoding. Non-string scalars are JSON-encoded.
func JSON(path string, opts ...Option) *Selector {
	produce := func(input string, ctx Context) ([]string, error) {
		result := gjson.Get(input, path)
		if !result.Exists() {
			return nil, nil
		}
		if result.IsArray() {
			values := make([]string, 0, len(result.Array()))
			for _, item := range result.Array() {
				values = append(values, stringifyJSON(item))
			}
			return values, nil
		}
		return []string{stringifyJSON(result)}, nil
	}

	return newSelector("json("+path+")", produce, opts...)
}

func stringifyJSON(r gjson.Result) string {
	if r.Type.String() == "String" {
		return r.String()
	}
	return r.Raw
}
