package render

import (
	"fmt"
	"strings"
)

// FormatCard formats a card as a short plain-text block
func FormatCard(c Card) string {
	var msg strings.Builder

	msg.WriteString(c.Name)
	if c.HasDistance() {
		msg.WriteString(" " + c.TitleSuffix())
	}
	if c.RecentlyPast {
		msg.WriteString(" (realizado)")
	}
	msg.WriteString("\n")

	msg.WriteString(fmt.Sprintf("📅 %s\n", c.Subtitle))

	if c.HasDistance() {
		msg.WriteString(c.DistanceLine() + "\n")
	}

	if c.Nearest {
		msg.WriteString("⭐ Loja mais próxima\n")
	}

	if c.Location != "" {
		msg.WriteString(fmt.Sprintf("🏬 %s\n", c.Location))
	}

	if c.Link != "" {
		msg.WriteString(fmt.Sprintf("🔗 %s\n", c.Link))
	}

	return msg.String()
}

// FormatResult formats every card of a render, separated by blank lines
func FormatResult(res Result) string {
	if res.NoResults {
		return res.Message + "\n"
	}

	var msg strings.Builder
	for i, c := range res.Cards {
		if i > 0 {
			msg.WriteString("\n")
		}
		msg.WriteString(FormatCard(c))
	}
	msg.WriteString(fmt.Sprintf("\n%d %s\n", len(res.Cards), pluralize(len(res.Cards))))
	return msg.String()
}

func pluralize(count int) string {
	if count == 1 {
		return "treinamento"
	}
	return "treinamentos"
}
