package conversation

import (
	"fmt"
	"strings"

	"github.com/wolfman30/autorespond/internal/autorespond"
)

const replyFormatInstruction = `Respond ONLY with a JSON object, no other text:
{"answer": "<reply to send>", "confidence": <0.0-1.0, how sure you are the answer is correct and complete>, "suggested_actions": ["<short follow-up for staff>", ...]}
Use a low confidence when the question needs a human (medical concerns, complaints, refunds, anything not covered below).`

// BuildSystemPrompt assembles the business facts and rules for one reply.
func BuildSystemPrompt(rctx autorespond.ResponseContext, channel autorespond.Channel) string {
	name := strings.TrimSpace(rctx.BusinessName)
	if name == "" {
		name = "the business"
	}
	kind := strings.TrimSpace(rctx.BusinessType)
	if kind == "" {
		kind = "local business"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the front desk assistant for %s, a %s. You answer inbound customer messages on the business's behalf.\n", name, kind)

	b.WriteString("\nBUSINESS DETAILS:\n")
	writeField(&b, "Phone", rctx.Settings.Phone)
	writeField(&b, "Email", rctx.Settings.Email)
	writeField(&b, "Address", rctx.Settings.Address)
	writeField(&b, "Hours", rctx.Settings.Hours)

	if len(rctx.Services) > 0 {
		b.WriteString("\nSERVICES:\n")
		for _, svc := range rctx.Services {
			fmt.Fprintf(&b, "- %s: %s", svc.Name, svc.PriceLabel())
			if svc.DurationMinutes > 0 {
				fmt.Fprintf(&b, ", %d minutes", svc.DurationMinutes)
			}
			if d := strings.TrimSpace(svc.Description); d != "" {
				fmt.Fprintf(&b, ". %s", d)
			}
			b.WriteString("\n")
		}
	}
	if len(rctx.Staff) > 0 {
		b.WriteString("\nSTAFF:\n")
		for _, person := range rctx.Staff {
			fmt.Fprintf(&b, "- %s", person.Name)
			if person.Title != "" {
				fmt.Fprintf(&b, " (%s)", person.Title)
			}
			b.WriteString("\n")
		}
	}
	if k := strings.TrimSpace(rctx.Knowledge); k != "" {
		b.WriteString("\nADDITIONAL KNOWLEDGE:\n")
		b.WriteString(k)
		b.WriteString("\n")
	}

	b.WriteString("\nRULES:\n")
	b.WriteString("- Only mention services listed above. Never invent services, prices, or availability.\n")
	b.WriteString("- Do not confirm an appointment time; invite the customer to book and staff will confirm.\n")
	b.WriteString("- Complaints, refunds, and medical questions go to a human: say the team will follow up.\n")
	if first := firstName(rctx.Client.Name); first != "" {
		fmt.Fprintf(&b, "- The customer's name is %s.\n", first)
	}

	b.WriteString("\nCHANNEL:\n")
	b.WriteString(channelGuidance(channel, name))
	b.WriteString("\n\n")
	b.WriteString(replyFormatInstruction)
	return b.String()
}

func channelGuidance(channel autorespond.Channel, name string) string {
	if channel == autorespond.ChannelEmail {
		return fmt.Sprintf("This is an email reply. Write a complete, friendly answer in short paragraphs without a subject line and sign off as \"The %s Team\".", name)
	}
	return "This is a text message. Keep the answer under 300 characters, plain text, no links unless asked, no sign-off."
}

func writeField(b *strings.Builder, label, value string) {
	if v := strings.TrimSpace(value); v != "" {
		fmt.Fprintf(b, "%s: %s\n", label, v)
	}
}

func firstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
