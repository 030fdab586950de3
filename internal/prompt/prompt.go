// Package prompt builds the text prompts submitted to the generative model.
// Building is pure string formatting: no state, no external calls, defined
// for every input.
package prompt

import "strings"

// Method selects the prompting style by the number of worked examples
// prepended before the target dialogue.
type Method string

const (
	MethodZeroShot Method = "zero-shot"
	MethodOneShot  Method = "one-shot"
	MethodFewShot  Method = "few-shot"
)

// Known reports whether m is one of the supported prompting styles.
// Build accepts unknown methods too and falls back to a minimal template.
func Known(m Method) bool {
	switch m {
	case MethodZeroShot, MethodOneShot, MethodFewShot:
		return true
	}

	return false
}

// Example is a fixed worked dialogue/summary pair used to prime one-shot and
// few-shot prompts.
type Example struct {
	Dialogue string
	Summary  string
}

// Examples are the worked examples, in priming order. One-shot prompts use
// the first entry, few-shot prompts the first two. They are constant data:
// never sampled, never configurable, never derived from the input.
var Examples = []Example{
	{
		Dialogue: `#Person1#: What time is it, Tom?
#Person2#: Just a minute. It's ten to nine by my watch.
#Person1#: Is it? I had no idea it was so late. I must be off now.
#Person2#: What's the hurry?
#Person1#: I must catch the nine-thirty train.
#Person2#: You've plenty of time yet. The railway station is very close.`,
		Summary: `#Person1# is in a hurry to catch a train. Tom tells #Person1# there is plenty of time.`,
	},
	{
		Dialogue: `#Person1#: May, do you mind helping me prepare for the picnic?
#Person2#: Sure. Have you checked the weather report?
#Person1#: Yes. It says it will be sunny all day.`,
		Summary: `Mom asks May to help prepare for the picnic and May agrees.`,
	},
}

// Build formats dialogue into a prompt for the requested method. Unknown
// methods fall back to a minimal instruction with no worked examples.
func Build(dialogue string, method Method) string {
	switch method {
	case MethodZeroShot:
		return "Summarize the following conversation:\n\n" + dialogue + "\n\nSummary:"
	case MethodOneShot:
		return renderExamples(Examples[:1]) + "\n\nDialogue:\n" + dialogue + "\n\nSummary:"
	case MethodFewShot:
		return renderExamples(Examples[:2]) + "\n\nDialogue:\n" + dialogue + "\n\nSummary:"
	default:
		return "Summarize this dialogue: " + dialogue
	}
}

func renderExamples(examples []Example) string {
	var b strings.Builder

	for i, example := range examples {
		if i > 0 {
			b.WriteString("\n\n")
		}

		b.WriteString("Dialogue:\n")
		b.WriteString(example.Dialogue)
		b.WriteString("\n\nSummary: ")
		b.WriteString(example.Summary)
	}

	return b.String()
}
