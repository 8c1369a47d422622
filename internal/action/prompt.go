package action

import (
	"fmt"
	"strings"
)

// RoleUser is the only role VocabMaster sends.
const RoleUser = "user"

// Languages carries the language settings prompts depend on.
type Languages struct {
	Target   string
	Feedback string
}

// Message is a single chat message.
type Message struct {
	Role    string
	Content string
}

// Messages returns the conversation sent for a: one user message, no
// history, no system message.
func Messages(a Action, lang Languages) []Message {
	return []Message{{Role: RoleUser, Content: a.Prompt(lang)}}
}

func (t Test) Prompt(Languages) string {
	return fmt.Sprintf("Test message received: \"%s\".", t.Message)
}

func (g GenerateArticle) Prompt(lang Languages) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Please write a short article (150-200 words) in %s that naturally incorporates these vocabulary words: %s.\n",
		lang.Target, strings.Join(g.Words, ", "))
	b.WriteString("Make sure to use each word in a clear context that demonstrates its meaning.\n")
	b.WriteString("Format the article with proper paragraphs and highlight each vocabulary word in bold.")
	return b.String()
}

func (e EvaluateSentence) Prompt(lang Languages) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Please evaluate this %s sentence using the word '%s':\n", lang.Target, e.TargetWord)
	fmt.Fprintf(&b, "\"%s\"\n\n", e.Sentence)
	fmt.Fprintf(&b, "Provide feedback in %s on:\n", lang.Feedback)
	b.WriteString("1. Grammar and natural usage\n")
	b.WriteString("2. Whether the word is used correctly\n")
	b.WriteString("3. Suggestions for improvement if needed")
	return b.String()
}

func (g GenerateExamples) Prompt(lang Languages) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Please generate exactly %d example sentences in %s using the word '%s'.\n",
		g.EffectiveCount(), lang.Target, g.Word)
	b.WriteString("The response should only contain sentences and not any other text.\n")
	b.WriteString("Make the sentences:\n")
	b.WriteString("1. Natural and contextual\n")
	b.WriteString("2. Varied in structure\n")
	b.WriteString("3. Clear in demonstrating the word's meaning")
	return b.String()
}
