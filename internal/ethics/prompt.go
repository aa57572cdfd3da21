package ethics

import (
	"fmt"
	"strings"
)

// SystemPrompt frames every completion request.
const SystemPrompt = "You are an AI assistant that analyzes moral dilemmas and provides ethical reasoning. " +
	"For each dilemma, provide unique, thoughtful analysis that considers multiple ethical frameworks. " +
	"Your reasoning must be specific to the dilemma details. Avoid generic responses."

// PromptOption is one numbered choice in a prompt.
type PromptOption struct {
	Text        string
	Description string
}

// PromptInput carries the dilemma fields embedded in a prompt.
type PromptInput struct {
	Title       string
	Description string
	Scenario    string
	Options     []PromptOption
}

// BuildPrompt renders the user prompt. Options are listed one per line as
// "{1-based index}. {text}: {description}" and the model is told to finish with
// "I choose option X".
func BuildPrompt(in PromptInput) string {
	var b strings.Builder
	b.WriteString("You are analyzing a moral dilemma. Please provide your reasoning and choose one of the options.\n\n")
	fmt.Fprintf(&b, "Dilemma: %s\n\n", in.Title)
	fmt.Fprintf(&b, "Description: %s\n\n", in.Description)
	fmt.Fprintf(&b, "Scenario: %s\n\n", in.Scenario)
	b.WriteString("Options:\n")
	for i, opt := range in.Options {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, opt.Text, opt.Description)
	}
	b.WriteString("\nFirst, provide your ethical reasoning for this dilemma in 3-5 sentences. ")
	b.WriteString("Consider different ethical frameworks like deontology, consequentialism, utilitarianism, and relational ethics.\n\n")
	b.WriteString(`Then, clearly state which option you choose by writing "I choose option X" where X is the number of your chosen option.`)
	b.WriteString("\n")
	return b.String()
}
