package generation

import (
	"fmt"
	"strings"
)

// BuildUserPrompt assembles the grounded user prompt: numbered manual
// fragments followed by the literal question and answering instructions.
func BuildUserPrompt(question string, fragments []string) string {
	var b strings.Builder

	b.WriteString("Context extracted from the device manuals:\n\n")
	for i, fragment := range fragments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Fragment %d]\n%s", i+1, fragment)
	}

	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer using only the information in the context above. ")
	b.WriteString("If the context only partially covers the question, share what is available and state what is missing.")

	return b.String()
}
