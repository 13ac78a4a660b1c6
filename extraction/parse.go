package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/giygas/rxscan-api/interfaces"
)

// ParseResponse reads a model reply into an Extraction. It never fails: strict JSON is tried
// first, then the span from the first '{' to the last '}', and otherwise the whole reply
// becomes the raw text with no candidates.
func ParseResponse(text string) interfaces.Extraction {
	text = stripCodeFence(strings.TrimSpace(text))

	data, ok := decodeObject(text)
	if !ok {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start != -1 && end > start {
			data, ok = decodeObject(text[start : end+1])
		}
	}
	if !ok {
		return interfaces.Extraction{RawText: text, Candidates: []string{}}
	}

	return interfaces.Extraction{
		RawText:    strings.TrimSpace(stringify(data["raw_text"])),
		Candidates: SplitCandidates(data["meds"]),
	}
}

// SplitCandidates turns a list, or a comma or newline separated string, into trimmed
// non-empty candidate names. Other scalars become a single candidate.
func SplitCandidates(value any) []string {
	out := []string{}

	switch v := value.(type) {
	case nil:
		return out
	case []string:
		for _, item := range v {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range v {
			if item == nil {
				continue
			}
			if s := strings.TrimSpace(stringify(item)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(strings.ReplaceAll(v, "\n", ","), ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := strings.TrimSpace(stringify(v)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func decodeObject(text string) (map[string]any, bool) {
	var data map[string]any
	if err := json.Unmarshal([]byte(text), &data); err != nil || data == nil {
		return nil, false
	}
	return data, true
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// stripCodeFence removes a surrounding ```json fence some models add despite instructions
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
