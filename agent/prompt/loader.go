package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/system.txt
	systemRaw string

	//go:embed template/summarize.txt
	summarizeRaw string

	//go:embed template/classify.txt
	classifyRaw string

	//go:embed template/draft.txt
	draftRaw string

	//go:embed template/fallback.txt
	fallbackRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	System    string
	Summarize string
	Classify  string
	Draft     string
	Fallback  string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		System:    strings.TrimSpace(systemRaw),
		Summarize: strings.TrimSpace(summarizeRaw),
		Classify:  strings.TrimSpace(classifyRaw),
		Draft:     strings.TrimSpace(draftRaw),
		Fallback:  strings.TrimSpace(fallbackRaw),
	}
}

// Fill replaces {name} placeholders with vars. Unknown placeholders are left as is.
func Fill(tpl string, vars map[string]string) string {
	if len(vars) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}
