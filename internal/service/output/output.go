package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mekedron/coordextract/internal/domain"
)

// Format represents point output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrWrite is returned when rendered output cannot be persisted.
var ErrWrite = errors.New("write output")

// ParseFormat validates format values.
func ParseFormat(v string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(v))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q", v)
	}
}

// Extension returns the file suffix used for the format.
func (f Format) Extension() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// RenderPoints renders points as one array. indent 0 renders compact JSON;
// indent N renders N spaces per nesting level.
func RenderPoints(points []domain.Point, format Format, indent int) (string, error) {
	if indent < 0 {
		return "", fmt.Errorf("indent must not be negative, got %d", indent)
	}
	if points == nil {
		points = []domain.Point{}
	}
	switch format {
	case FormatJSON, "":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if indent > 0 {
			enc.SetIndent("", strings.Repeat(" ", indent))
		}
		if err := enc.Encode(points); err != nil {
			return "", fmt.Errorf("marshal json: %w", err)
		}
		return strings.TrimRight(buf.String(), "\n"), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		if indent >= 2 {
			enc.SetIndent(indent)
		}
		if err := enc.Encode(points); err != nil {
			return "", fmt.Errorf("marshal yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return "", fmt.Errorf("marshal yaml: %w", err)
		}
		return strings.TrimRight(buf.String(), "\n"), nil
	default:
		return "", fmt.Errorf("render points only supports json/yaml, got %q", format)
	}
}

// WriteFile persists rendered text followed by a newline.
func WriteFile(path string, text string) error {
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// Print writes rendered text to w.
func Print(w io.Writer, text string) error {
	if _, err := fmt.Fprintln(w, text); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}
