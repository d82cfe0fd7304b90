package constant

// DefaultIntentPromptTemplate is used when the modes file enables the classifier without a template
const DefaultIntentPromptTemplate = `You route a tutoring conversation to one mode.
Modes:
- plan: making or changing a study plan
- learn: questions, explanations and examples
- assess: quizzes, tests and checking answers
- review: revisiting earlier material

Current mode: {{.CurrentMode}}
User input: "{{.UserInput}}"

Reply with exactly one word: the mode name.`
