package embedded

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed grammars/*
var GrammarsFS embed.FS

// BaseGrammarName is the embedded base template shipped with the binary
const BaseGrammarName = "grammars/base.tmLanguage.yaml"

// BaseGrammar returns the raw bytes of the embedded base template
func BaseGrammar() ([]byte, error) {
	return GrammarsFS.ReadFile(BaseGrammarName)
}

// ExtractBaseGrammar writes the embedded base template into targetDir so it
// can be customised and passed back with --base.
func ExtractBaseGrammar(targetDir string) (string, error) {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create target directory: %w", err)
	}

	content, err := BaseGrammar()
	if err != nil {
		return "", fmt.Errorf("failed to read embedded file %s: %w", BaseGrammarName, err)
	}

	targetPath := filepath.Join(targetDir, strings.TrimPrefix(BaseGrammarName, "grammars/"))
	if _, err := os.Stat(targetPath); err == nil {
		return "", fmt.Errorf("refusing to overwrite existing %s", targetPath)
	}

	if err := os.WriteFile(targetPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %w", targetPath, err)
	}

	return targetPath, nil
}
