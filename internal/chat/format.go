package chat

import (
	"fmt"
	"strings"

	"github.com/zulandar/fatebot/internal/models"
	"github.com/zulandar/fatebot/internal/sheet"
)

// formatSheet renders a stored character for chat, expanding newline
// placeholders in free-text fields.
func formatSheet(c *models.Character) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**#%d %s**\n", c.ID, displayName(c.Name))
	if c.Description != "" {
		b.WriteString(sheet.Unescape(c.Description) + "\n")
	}
	fmt.Fprintf(&b, "Refresh: %d | Stress: %d physical, %d mental\n",
		c.Refresh, c.PhysicalStressBoxes, c.MentalStressBoxes)

	writeList(&b, "Aspects", []labeled{
		{"High Concept", c.HighConcept},
		{"Trouble", c.Trouble},
		{"", c.AspectThree},
		{"", c.AspectFour},
		{"", c.AspectFive},
	})

	if len(c.Skills) > 0 {
		b.WriteString("\n**Skills**\n")
		var cur uint8
		var names []string
		flush := func() {
			if len(names) > 0 {
				fmt.Fprintf(&b, "+%d %s: %s\n", cur, sheet.Rating(cur), strings.Join(names, ", "))
			}
		}
		for _, sk := range c.Skills {
			if sk.Rating != cur {
				flush()
				cur, names = sk.Rating, nil
			}
			names = append(names, sk.Name)
		}
		flush()
	}

	if c.Stunts != "" {
		b.WriteString("\n**Stunts**\n" + sheet.Unescape(c.Stunts) + "\n")
	}
	if c.Extras != "" {
		b.WriteString("\n**Extras**\n" + sheet.Unescape(c.Extras) + "\n")
	}

	writeList(&b, "Consequences", []labeled{
		{"Mild", c.ConsequenceOne},
		{"Moderate", c.ConsequenceTwo},
		{"Severe", c.ConsequenceThree},
		{"Extreme", c.ConsequenceFour},
	})
	return strings.TrimRight(b.String(), "\n")
}

type labeled struct {
	label string
	text  string
}

// writeList writes a heading and one bullet per non-empty item. Nothing is
// written when every item is empty.
func writeList(b *strings.Builder, heading string, items []labeled) {
	var lines []string
	for _, it := range items {
		if it.text == "" {
			continue
		}
		text := sheet.Unescape(it.text)
		if it.label != "" {
			text = it.label + ": " + text
		}
		lines = append(lines, "- "+text)
	}
	if len(lines) == 0 {
		return
	}
	b.WriteString("\n**" + heading + "**\n")
	b.WriteString(strings.Join(lines, "\n") + "\n")
}

// formatRoster renders a list of characters, one per line.
func formatRoster(chars []models.Character) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Characters** (%d)\n", len(chars))
	for _, c := range chars {
		fmt.Fprintf(&b, "#%-5d %-32s %s\n", c.ID, truncate(displayName(c.Name), 32), c.OwnerID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func displayName(name string) string {
	if name == "" {
		return "(unnamed)"
	}
	return name
}

// truncate returns s truncated to maxLen runes with "..." appended if needed.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// Discord rejects messages and embeds beyond these sizes.
const (
	maxMessageLen    = 2000
	maxEmbedFields   = 25
	maxFieldNameLen  = 256
	maxFieldValueLen = 1024
)

// rosterEmbeds renders a roster post as one or more embeds with one field
// per character and at most maxEmbedFields fields each.
func rosterEmbeds(chars []models.Character) []Embed {
	var embeds []Embed
	for start := 0; start < len(chars); start += maxEmbedFields {
		end := min(start+maxEmbedFields, len(chars))
		e := Embed{
			Title: fmt.Sprintf("Characters (%d)", len(chars)),
			Color: ColorRoster,
		}
		if start > 0 {
			e.Title = fmt.Sprintf("Characters (%d-%d of %d)", start+1, end, len(chars))
		}
		for _, c := range chars[start:end] {
			e.Fields = append(e.Fields, Field{
				Name:  truncate(fmt.Sprintf("#%d %s", c.ID, displayName(c.Name)), maxFieldNameLen-3),
				Value: truncate(displayName(c.HighConcept), maxFieldValueLen-3),
				Short: true,
			})
		}
		embeds = append(embeds, e)
	}
	return embeds
}

// chunkMessage splits text into chunks of at most maxLen characters,
// breaking at a newline in the second half of a chunk when there is one.
func chunkMessage(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = maxMessageLen
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= maxLen {
			chunks = append(chunks, string(runes))
			break
		}
		breakAt := -1
		for i := maxLen - 1; i >= maxLen/2; i-- {
			if runes[i] == '\n' {
				breakAt = i
				break
			}
		}
		if breakAt >= 0 {
			chunks = append(chunks, string(runes[:breakAt]))
			runes = runes[breakAt+1:]
		} else {
			chunks = append(chunks, string(runes[:maxLen]))
			runes = runes[maxLen:]
		}
	}
	return chunks
}
