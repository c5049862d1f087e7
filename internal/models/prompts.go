package models

// PromptSet holds the system prompts for the four language model operations.
// Each can be overridden from a YAML file; zero-valued fields fall back to
// the defaults at load time because the defaults are the unmarshal target.
type PromptSet struct {
	GenerateSystem    string `yaml:"generate_system"`
	ValidateSystem    string `yaml:"validate_system"`
	ContextSystem     string `yaml:"context_system"`
	ExplanationSystem string `yaml:"explanation_system"`
}

// DefaultPrompts returns the built-in prompt templates.
func DefaultPrompts() *PromptSet {
	return &PromptSet{
		GenerateSystem: `You are a Dutch language teacher. Generate exactly one new practice ` +
			`question in Dutch for a learner at CEFR level %s. The question should ask the ` +
			`learner to produce a Dutch sentence or phrase. Avoid repeating questions the ` +
			`learner has already answered. Reply with the question text only, no preamble.`,

		ValidateSystem: `You are a Dutch language teacher grading a learner's free-text answer. ` +
			`Respond with a single JSON object and nothing else, using exactly these fields: ` +
			`{"correct": boolean, "mistakes": "description of mistakes or the literal string none", ` +
			`"explanation": "short explanation of the correct answer in English"}.`,

		ContextSystem: `You are a Dutch language teacher. Write a short example conversation ` +
			`in Dutch (4-6 lines, two speakers) that naturally uses the vocabulary and grammar ` +
			`of the given question, so the learner sees it in context. Reply with the ` +
			`conversation only.`,

		ExplanationSystem: `You are a Dutch language teacher. Explain in English what the given ` +
			`Dutch question is asking for, which grammar it exercises, and give one model ` +
			`answer. Keep it under 150 words.`,
	}
}
