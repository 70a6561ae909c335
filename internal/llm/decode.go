package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// decodeJSON unmarshals a model response that is supposed to be a JSON
// object. Models occasionally wrap the object in markdown code fences
// or lead with prose; the decoder trims down to the outermost braces
// before unmarshalling.
func decodeJSON(raw string, v any) error {
	s := strings.TrimSpace(raw)

	// Strip ``` / ```json fences.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return fmt.Errorf("no JSON object in response")
	}
	s = s[start : end+1]

	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// flexFloat accepts a JSON number or a numeric string - models do not
// reliably honor the requested type for amounts and scores.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	// Tolerate thousands separators ("24,000") and currency symbols.
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimLeft(s, "$€₹£ ")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", string(b))
	}
	*f = flexFloat(v)
	return nil
}
