package utils

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed prompts
var promptFiles embed.FS

// LoadPrompt loads a system prompt from the embedded markdown files
func LoadPrompt(name string) (string, error) {
	content, err := promptFiles.ReadFile(fmt.Sprintf("prompts/%s.md", name))
	if err != nil {
		return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
	}
	return string(content), nil
}

// LoadPromptWithContext loads a prompt and replaces {{.Key}} placeholders.
// Placeholders without a value are replaced with "N/A".
func LoadPromptWithContext(name string, vars map[string]string) (string, error) {
	content, err := LoadPrompt(name)
	if err != nil {
		return "", err
	}
	for key, value := range vars {
		if strings.TrimSpace(value) == "" {
			value = "N/A"
		}
		content = strings.ReplaceAll(content, "{{."+key+"}}", value)
	}
	return content, nil
}

// MustLoadPrompt is for prompts compiled into the binary; a missing file is a build defect.
func MustLoadPrompt(name string) string {
	p, err := LoadPrompt(name)
	if err != nil {
		panic(err)
	}
	return p
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
