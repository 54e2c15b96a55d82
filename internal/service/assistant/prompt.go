// internal/service/assistant/prompt.go
package assistant

import (
	"fmt"
	"strings"

	"rayslaund-service/internal/domain/catalog"
)

// systemInstruction builds the assistant's standing instruction from the
// live price catalog so chat answers and the order form never disagree.
func systemInstruction(contactPhone string) string {
	var b strings.Builder

	b.WriteString("You are a friendly and efficient customer support agent for \"Ray's Laundromat\".\n")
	b.WriteString("Your tone is professional yet welcoming.\n")
	b.WriteString("Refer to the following pricing for all inquiries:\n")

	for _, item := range catalog.PriceList() {
		price := fmt.Sprintf("Ksh %.0f", item.Price)
		if item.PriceNote != "" {
			price = "Ksh " + item.PriceNote
		}
		if item.Unit != "" {
			price += "/" + item.Unit
		}
		if item.Note != "" {
			price += " (" + item.Note + ")"
		}
		fmt.Fprintf(&b, "- %s: %s\n", item.Name, price)
	}

	fmt.Fprintf(&b, "- Contact Number: %s.\n", contactPhone)
	b.WriteString("\nIMPORTANT: If a customer seems frustrated, or asks for something you can't handle, ")
	b.WriteString("or explicitly asks for a human, say \"I'll notify a team member to take over right away.\"\n")

	return b.String()
}
