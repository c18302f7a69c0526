package filesystem

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeeftor/yamlsql/internal/logging"
)

// EnsureDirectory creates a directory and all necessary parent directories
func EnsureDirectory(path string) error {
	if path == "." || path == "" {
		return nil // Current directory always exists
	}

	return os.MkdirAll(path, 0755)
}

// EnsureDirectoryForFile creates the parent directory for a given file path
func EnsureDirectoryForFile(filePath string) error {
	return EnsureDirectory(filepath.Dir(filePath))
}

// WriteFileAtomic writes content to a temp file next to filePath and renames it
// into place. On any failure the previous file is left untouched.
func WriteFileAtomic(filePath string, content []byte, perm os.FileMode) error {
	if err := EnsureDirectoryForFile(filePath); err != nil {
		return fmt.Errorf("failed to create directory for file '%s': %w", filePath, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), "."+filepath.Base(filePath)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for '%s': %w", filePath, err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		SafeRemove(tmpName)
	}

	if _, err := tmp.Write(content); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp file '%s': %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp file '%s': %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		SafeRemove(tmpName)
		return fmt.Errorf("failed to close temp file '%s': %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		SafeRemove(tmpName)
		return fmt.Errorf("failed to set permissions on '%s': %w", tmpName, err)
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		SafeRemove(tmpName)
		return fmt.Errorf("failed to replace '%s': %w", filePath, err)
	}

	logging.Debug("Wrote file atomically", "path", filePath, "size_bytes", len(content))
	return nil
}

// SameContent reports whether filePath already holds exactly content
func SameContent(filePath string, content []byte) bool {
	existing, err := os.ReadFile(filePath)
	if err != nil {
		return false
	}
	return bytes.Equal(existing, content)
}

// SafeRemove removes a file/directory, ignoring "not exist" errors
func SafeRemove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// GetFileExtension returns the lowercase file extension without the dot
func GetFileExtension(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// IsJSONFile checks if a file path represents a JSON file
func IsJSONFile(path string) bool {
	return GetFileExtension(path) == "json"
}

// IsYAMLFile checks if a file path represents a YAML file
func IsYAMLFile(path string) bool {
	switch GetFileExtension(path) {
	case "yaml", "yml":
		return true
	default:
		return false
	}
}

// GetAbsolutePath converts a path to absolute form, handling ~ expansion
func GetAbsolutePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path provided")
	}

	if path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		if len(path) == 1 {
			path = homeDir
		} else {
			path = filepath.Join(homeDir, path[1:])
		}
	}

	return filepath.Abs(path)
}

// ValidateOutputFile validates that an output file path is valid and writable
func ValidateOutputFile(outputFile string, paramName string) error {
	if outputFile == "" {
		return fmt.Errorf("%s is required", paramName)
	}

	if stat, err := os.Stat(outputFile); err == nil {
		if stat.IsDir() {
			return fmt.Errorf("%s '%s' is a directory", paramName, outputFile)
		}
		if file, err := os.OpenFile(outputFile, os.O_WRONLY, 0); err != nil {
			return fmt.Errorf("%s '%s' exists but is not writable: %w", paramName, outputFile, err)
		} else {
			file.Close()
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot access %s '%s': %w", paramName, outputFile, err)
	}
	// If file doesn't exist, that's okay - we'll create it

	return nil
}

// ValidateInputFile validates that an input file exists and is readable
func ValidateInputFile(inputFile string, paramName string) error {
	if inputFile == "" {
		return fmt.Errorf("%s is required", paramName)
	}

	if _, err := os.Stat(inputFile); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s '%s' does not exist", paramName, inputFile)
		}
		return fmt.Errorf("cannot access %s '%s': %w", paramName, inputFile, err)
	}

	if file, err := os.Open(inputFile); err != nil {
		return fmt.Errorf("%s '%s' is not readable: %w", paramName, inputFile, err)
	} else {
		file.Close()
	}

	return nil
}
