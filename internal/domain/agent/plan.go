package agent

import (
	"encoding/json"
	"strings"
)

// Plan is the structured-or-raw output an agent derives from its reasoning.
// Exactly one of Structured or Raw is set. Keeping the fallback explicit
// (rather than collapsing both into one shape) keeps it testable.
type Plan struct {
	Structured map[string]any
	Raw        *RawPlan
}

// RawPlan is the degraded form used when no JSON could be extracted: the
// original reasoning plus its non-empty lines as steps.
type RawPlan struct {
	Reasoning string   `json:"reasoning"`
	Steps     []string `json:"steps"`
}

// IsStructured reports whether the plan carries parsed JSON.
func (p Plan) IsStructured() bool { return p.Structured != nil }

// MarshalJSON renders whichever arm of the sum is populated.
func (p Plan) MarshalJSON() ([]byte, error) {
	if p.Structured != nil {
		return json.Marshal(p.Structured)
	}
	if p.Raw != nil {
		return json.Marshal(p.Raw)
	}
	return []byte("null"), nil
}

// UnmarshalJSON restores a plan persisted by MarshalJSON. An object with
// exactly the RawPlan shape is treated as raw; anything else is structured.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var raw RawPlan
	if err := json.Unmarshal(data, &raw); err == nil && raw.Reasoning != "" && raw.Steps != nil {
		p.Raw = &raw
		p.Structured = nil
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	p.Structured = m
	p.Raw = nil
	return nil
}

// ParsePlan extracts a best-effort structured plan from free-form reasoning.
// It tries, in order: a fenced ```json block, any generic ``` block, the
// entire text as JSON. On failure it degrades to a RawPlan of the reasoning's
// non-empty lines. It never fails.
func ParsePlan(reasoning string) Plan {
	for _, candidate := range fencedBlocks(reasoning) {
		if m, ok := parseObject(candidate); ok {
			return Plan{Structured: m}
		}
	}
	if m, ok := parseObject(reasoning); ok {
		return Plan{Structured: m}
	}
	return Plan{Raw: &RawPlan{
		Reasoning: reasoning,
		Steps:     nonEmptyLines(reasoning),
	}}
}

// fencedBlocks returns the contents of fenced code blocks, json-tagged fences
// first so they win over untagged ones.
func fencedBlocks(text string) []string {
	var tagged, plain []string
	rest := text
	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			break
		}
		rest = rest[start+3:]
		end := strings.Index(rest, "```")
		if end < 0 {
			break
		}
		block := rest[:end]
		rest = rest[end+3:]

		lang := ""
		if nl := strings.IndexByte(block, '\n'); nl >= 0 {
			lang = strings.TrimSpace(block[:nl])
			block = block[nl+1:]
		}
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if strings.EqualFold(lang, "json") {
			tagged = append(tagged, block)
		} else {
			plain = append(plain, block)
		}
	}
	return append(tagged, plain...)
}

func parseObject(text string) (map[string]any, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, false
	}
	return m, true
}

func nonEmptyLines(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}
