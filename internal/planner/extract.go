package planner

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// codeBlockPattern matches markdown code blocks with optional language tag
// Captures: (1) optional language, (2) content
var codeBlockPattern = regexp.MustCompile(`(?s)` + "```" + `(\w*)\s*\n(.+?)\n` + "```")

// ExtractDocument extracts a plan document from an LLM response that may
// be wrapped in markdown. Priority:
//  1. Content inside ```yaml, ```json, or untagged code blocks
//  2. Raw document starting at a top-level "steps:" key
//
// Returns the extracted document bytes and any error.
func ExtractDocument(response string) ([]byte, error) {
	if doc, found := extractFromCodeBlock(response); found {
		return []byte(doc), nil
	}

	if doc, found := extractRawDocument(response); found {
		return []byte(doc), nil
	}

	return nil, fmt.Errorf("no plan document found in response")
}

// extractFromCodeBlock finds a plan document in markdown code blocks.
func extractFromCodeBlock(response string) (string, bool) {
	matches := codeBlockPattern.FindAllStringSubmatch(response, -1)

	for _, match := range matches {
		if len(match) < 3 {
			continue
		}

		lang := strings.ToLower(match[1])
		content := strings.TrimSpace(match[2])

		// Accept yaml, yml, json, or no language tag. Skip blocks
		// explicitly tagged as other languages.
		switch lang {
		case "", "yaml", "yml", "json":
		default:
			continue
		}

		if isPlanDocument(content) {
			return content, true
		}
	}

	return "", false
}

// extractRawDocument finds a document that is not wrapped in code blocks
// by locating the top-level steps key.
func extractRawDocument(response string) (string, bool) {
	idx := strings.Index(response, "steps:")
	if idx < 0 {
		// JSON responses without code fences.
		trimmed := strings.TrimSpace(response)
		if strings.HasPrefix(trimmed, "{") && isPlanDocument(trimmed) {
			return trimmed, true
		}
		return "", false
	}
	// Only accept "steps:" at the start of a line.
	if idx > 0 && response[idx-1] != '\n' {
		return "", false
	}
	content := strings.TrimSpace(response[idx:])
	if isPlanDocument(content) {
		return content, true
	}
	return "", false
}

// isPlanDocument checks that the content parses as YAML/JSON and carries
// a steps list. Structural validity beyond that is the parser's job.
func isPlanDocument(content string) bool {
	var probe struct {
		Steps []any `yaml:"steps"`
	}
	if err := yaml.Unmarshal([]byte(content), &probe); err != nil {
		return false
	}
	return len(probe.Steps) > 0
}
