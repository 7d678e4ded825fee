package rag

import (
	"strings"

	"github.com/upb/manuals-assistant/services/search"
)

// Context budget limits, in characters. The generation deployment has a
// bounded context window; these keep the grounded prompt inside it.
const (
	MaxFragmentChars = 4000
	MaxTotalChars    = 12000
)

const (
	midTruncationMarker  = "\n...[content truncated]...\n"
	tailTruncationMarker = "\n...[content truncated]"
)

// BuildContext turns search documents into prompt-ready fragments under
// the context budget. Empty documents are skipped. An over-long
// document keeps its head and tail around a truncation marker. Once the
// running total would exceed the overall cap no further fragments are
// added; a first fragment that alone exceeds the cap is hard-truncated
// so the prompt is never empty when usable content exists.
//
// The result preserves document order and is deterministic. An empty
// result means no document carried usable content.
func BuildContext(docs []search.Document) []string {
	var parts []string
	total := 0

	for _, doc := range docs {
		content := strings.TrimSpace(doc.Content)
		if content == "" {
			continue
		}

		runes := []rune(content)
		if len(runes) > MaxFragmentChars {
			half := MaxFragmentChars / 2
			content = string(runes[:half]) + midTruncationMarker + string(runes[len(runes)-half:])
			runes = []rune(content)
		}

		if total+len(runes) > MaxTotalChars {
			if len(parts) > 0 {
				break
			}
			parts = append(parts, string(runes[:MaxTotalChars])+tailTruncationMarker)
			break
		}

		parts = append(parts, content)
		total += len(runes)
	}

	return parts
}
