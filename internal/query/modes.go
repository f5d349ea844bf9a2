package query

// Mode shapes how the model answers: each mode carries a system prompt and
// a temperature tuned for its use case.
type Mode struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Icon        string  `json:"icon"`
	Description string  `json:"description"`
	Prompt      string  `json:"-"`
	Temperature float32 `json:"-"`
}

const DefaultMode = "quick"

var modes = map[string]Mode{
	"tender": {
		Key:  "tender",
		Name: "Tender Response",
		Icon: "\U0001F4CB",
		Prompt: "You are an expert tender response specialist analyzing tender documents. " +
			"Provide compliance-focused, professional responses suitable for formal tender submissions. " +
			"Include specific document references, compliance evidence, win themes, and risk mitigation strategies. " +
			"Format responses in clear sections with headers. Be thorough and precise in your analysis.",
		Temperature: 0.3,
		Description: "Formal, polished responses for tender submissions",
	},
	"quick": {
		Key:  "quick",
		Name: "Quick Answer",
		Icon: "⚡",
		Prompt: "Provide concise, direct answers focusing on key facts. " +
			"Use bullet points for clarity. Keep responses under 200 words unless more detail is explicitly requested. " +
			"Be clear and actionable.",
		Temperature: 0.5,
		Description: "Brief, bullet-point answers",
	},
	"analysis": {
		Key:  "analysis",
		Name: "Deep Analysis",
		Icon: "\U0001F50D",
		Prompt: "Conduct comprehensive analysis across all relevant documents. " +
			"Provide detailed findings with cross-references, comparative analysis, patterns and insights, " +
			"and evidence-based recommendations. Use structured sections with specific citations. " +
			"Be thorough and analytical in your approach.",
		Temperature: 0.4,
		Description: "Detailed insights with citations",
	},
	"strategy": {
		Key:  "strategy",
		Name: "Strategy Advisor",
		Icon: "\U0001F4A1",
		Prompt: "Act as a strategic business advisor. Provide strategic recommendations, " +
			"competitive positioning analysis, risk and opportunity assessment, and actionable next steps. " +
			"Focus on business outcomes and decision-making support. Be forward-thinking and practical.",
		Temperature: 0.6,
		Description: "Recommendations and next steps",
	},
	"checklist": {
		Key:  "checklist",
		Name: "Compliance Checklist",
		Icon: "✅",
		Prompt: "Generate detailed compliance checklists and requirement matrices. " +
			"Extract all requirements, create actionable items, identify mandatory vs. optional requirements, " +
			"and flag potential gaps. Format as structured checklists with priority indicators " +
			"(High/Medium/Low). Be systematic and comprehensive.",
		Temperature: 0.2,
		Description: "Action items and requirements",
	},
}

// ModeFor returns the configuration for a mode key. Unknown or empty keys
// fall back to the quick mode rather than erroring.
func ModeFor(key string) Mode {
	if m, ok := modes[key]; ok {
		return m
	}
	return modes[DefaultMode]
}

// Modes lists every mode in a stable order.
func Modes() []Mode {
	keys := []string{"tender", "quick", "analysis", "strategy", "checklist"}
	out := make([]Mode, len(keys))
	for i, k := range keys {
		out[i] = modes[k]
	}
	return out
}
