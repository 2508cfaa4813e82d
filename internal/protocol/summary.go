package protocol

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dmckenna-gumgum/component-builder/internal/types"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Summary renders a result the way the terminal shows it: the message, then
// for component updates a digest of what changed.
func Summary(r types.Result) string {
	switch r.Type {
	case types.ResultError:
		return "Error: " + r.Message
	case types.ResultComponentUpdate:
	default:
		return r.Message
	}

	c := r.Component
	if c == nil {
		return r.Message
	}

	var b strings.Builder
	if r.Message != "" {
		b.WriteString(r.Message)
		b.WriteString("\n\n")
	}

	name := c.Name
	if name == "" {
		name = "No name provided"
	}
	b.WriteString("Component Updates:\n")
	fmt.Fprintf(&b, "- Name: %s\n", name)
	fmt.Fprintf(&b, "- Properties: %d properties updated\n", len(c.Properties))
	if groups := groupCounts(c.Properties); groups != "" {
		fmt.Fprintf(&b, "- Groups: %s\n", groups)
	}
	fmt.Fprintf(&b, "- HTML: %s\n", changed(c.HTML))
	fmt.Fprintf(&b, "- CSS: %s\n", changed(c.CSS))
	fmt.Fprintf(&b, "- JavaScript: %s", changed(c.JavaScript))

	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "\n- Warning: %s", w)
	}

	return b.String()
}

func changed(s string) string {
	if s == "" {
		return "No changes"
	}
	return "Updated"
}

// GroupLabel turns a group key such as "display-options" into "Display Options".
func GroupLabel(group string) string {
	g := strings.TrimSpace(group)
	if g == "" {
		return "General"
	}
	g = strings.NewReplacer("-", " ", "_", " ").Replace(g)

	return cases.Title(language.English).String(g)
}

func groupCounts(props map[string]types.Property) string {
	if len(props) == 0 {
		return ""
	}

	counts := make(map[string]int)
	for _, p := range props {
		group := ""
		if p.Input != nil {
			group = p.Input.Group
		}
		counts[GroupLabel(group)]++
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	parts := make([]string, len(labels))
	for i, label := range labels {
		parts[i] = fmt.Sprintf("%s (%d)", label, counts[label])
	}

	return strings.Join(parts, ", ")
}
