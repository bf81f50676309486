package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/ceflow/schema"
)

// Color variables for console output.
var (
	ErrorColor = color.New(color.FgRed, color.Bold) // ErrorColor marks a failed gate or condition.
	WarnColor  = color.New(color.FgYellow)          // WarnColor marks a warning, not bold.
	OKColor    = color.New(color.FgGreen)           // OKColor marks a passed gate or condition.
	InfoColor  = color.New(color.FgCyan)            // InfoColor marks informational values.
)

// GetColorLabel returns a colored text label for console output (table).
// It uses schema.GetPlainLabel to determine the string, and then applies the appropriate color.
func GetColorLabel(level schema.Level) string {
	text := schema.GetPlainLabel(level)

	switch level {
	case schema.ErrorLevel:
		return ErrorColor.Sprint(text)
	case schema.WarnLevel:
		return WarnColor.Sprint(text)
	case schema.OKLevel:
		return OKColor.Sprint(text)
	default:
		return InfoColor.Sprint(text)
	}
}

// GetColorStatus colors a condition status the same way as its level.
func GetColorStatus(status schema.ConditionStatus) string {
	switch status {
	case schema.ErrorStatus:
		return ErrorColor.Sprint(status)
	case schema.WarnStatus:
		return WarnColor.Sprint(status)
	case schema.OKStatus:
		return OKColor.Sprint(status)
	default:
		return InfoColor.Sprint(status)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetStoreDBFilePath returns the path to the SQLite DB file for the analysis store.
func GetStoreDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".ceflow.db"
	}
	return filepath.Join(homeDir, ".ceflow.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to leave room for the "..." prefix and at least one character.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
