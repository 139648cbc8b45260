package help

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sambeau/peme/pkg/peme/evaluator"
)

// FormatText formats a TopicResult for terminal output
func FormatText(result *TopicResult) string {
	var sb strings.Builder

	switch result.Kind {
	case "builtin", "form", "stdlib":
		formatEntryText(&sb, result)
	case "builtin-list":
		sb.WriteString("Builtin Functions\n")
		sb.WriteString("=================\n\n")
		formatInfoListText(&sb, result.Builtins)
	case "form-list":
		sb.WriteString("Special Forms\n")
		sb.WriteString("=============\n\n")
		formatInfoListText(&sb, result.Builtins)
	case "type-list":
		formatTypeListText(&sb, result)
	case "type":
		fmt.Fprintf(&sb, "Type: %s\n\n%s\n", result.Name, result.Description)
		if result.Example != "" {
			fmt.Fprintf(&sb, "\nExample: %s\n", result.Example)
		}
	case "stdlib-list":
		formatStdlibListText(&sb, result)
	default:
		sb.WriteString(fmt.Sprintf("Unknown result kind: %s\n", result.Kind))
	}

	return sb.String()
}

// FormatJSON formats a TopicResult as JSON
func FormatJSON(result *TopicResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

func signature(name string, params []string) string {
	if len(params) == 0 {
		return "(" + name + ")"
	}
	return "(" + name + " " + strings.Join(params, " ") + ")"
}

// formatEntryText formats a single builtin, form or library function
func formatEntryText(sb *strings.Builder, result *TopicResult) {
	fmt.Fprintf(sb, "%s\n", signature(result.Name, result.Params))
	sb.WriteString("\n")

	if result.Description != "" {
		fmt.Fprintf(sb, "%s\n\n", result.Description)
	}
	if result.Definition != "" {
		fmt.Fprintf(sb, "%s\n\n", result.Definition)
	}

	fmt.Fprintf(sb, "Arity: %s\n", result.Arity)
	if result.Category != "" {
		fmt.Fprintf(sb, "Category: %s\n", result.Category)
	}
	if result.Example != "" {
		fmt.Fprintf(sb, "Example: %s\n", result.Example)
	}
}

// formatInfoListText groups entries by category
func formatInfoListText(sb *strings.Builder, infos []evaluator.BuiltinInfo) {
	byCategory := make(map[string][]evaluator.BuiltinInfo)
	for _, b := range infos {
		byCategory[b.Category] = append(byCategory[b.Category], b)
	}

	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	for _, cat := range categories {
		entries := byCategory[cat]
		fmt.Fprintf(sb, "%s:\n", strings.ToUpper(cat[:1])+cat[1:])

		// Find max signature length for alignment
		maxLen := 0
		for _, b := range entries {
			if n := len(signature(b.Name, b.Params)); n > maxLen {
				maxLen = n
			}
		}

		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Name < entries[j].Name
		})

		for _, b := range entries {
			display := signature(b.Name, b.Params)
			padding := strings.Repeat(" ", maxLen-len(display)+2)
			fmt.Fprintf(sb, "  %s%s%s\n", display, padding, b.Description)
		}
		sb.WriteString("\n")
	}
}

func formatTypeListText(sb *strings.Builder, result *TopicResult) {
	sb.WriteString("Types\n")
	sb.WriteString("=====\n\n")

	maxLen := 0
	for _, ti := range result.Types {
		if len(ti.Name) > maxLen {
			maxLen = len(ti.Name)
		}
	}
	for _, ti := range result.Types {
		padding := strings.Repeat(" ", maxLen-len(ti.Name)+2)
		fmt.Fprintf(sb, "  %s%s%s\n", ti.Name, padding, ti.Description)
	}
}

func formatStdlibListText(sb *strings.Builder, result *TopicResult) {
	sb.WriteString("Standard Library\n")
	sb.WriteString("================\n\n")
	if result.Description != "" {
		fmt.Fprintf(sb, "%s\n\n", result.Description)
	}
	for _, fn := range result.Functions {
		fmt.Fprintf(sb, "  %s\n", signature(fn.Name, fn.Params))
	}
}
