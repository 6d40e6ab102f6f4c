package resolve

import (
	"strings"

	"github.com/citekit/citekit/internal/citekey"
)

// CitekeysTSV renders a table mapping every input key to its dealiased,
// standard, and short forms, one row per input key.
func (r *Result) CitekeysTSV() string {
	var b strings.Builder
	b.WriteString("input_id\tdealiased_id\tstandard_id\tshort_id\n")
	for _, c := range r.Citations {
		for _, key := range c.Keys {
			b.WriteString(key.Input)
			b.WriteByte('\t')
			b.WriteString(key.Dealiased)
			b.WriteByte('\t')
			b.WriteString(c.StandardID)
			b.WriteByte('\t')
			b.WriteString(c.ShortID)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Problem describes a malformed citation key found by Inspect.
type Problem struct {
	Input       string `json:"input_id"`
	StandardID  string `json:"standard_id"`
	Description string `json:"description"`
}

// Inspect checks a batch of keys for syntax problems without fetching
// anything. Keys backed by a manual reference are never reported, since
// they resolve regardless of syntax.
func (p *Pipeline) Inspect(inputs []string) ([]Problem, error) {
	manual, err := p.manualItems()
	if err != nil {
		return nil, err
	}
	var problems []Problem
	seen := make(map[string]bool)
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" || seen[input] {
			continue
		}
		seen[input] = true
		key := citekey.Parse(input, p.Aliases, p.InferPrefix)
		if _, ok := manual[key.StandardID]; ok {
			continue
		}
		if problem := key.Inspect(); problem != "" {
			problems = append(problems, Problem{
				Input:       input,
				StandardID:  key.StandardID,
				Description: problem,
			})
		}
	}
	return problems, nil
}
