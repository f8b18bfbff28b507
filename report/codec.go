package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for a format or file extension with no codec.
var ErrUnknownFormat = errors.New("unknown report format")

// Format is a report encoding.
type Format string

// Supported formats.
const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat parses a format name. The empty string selects FormatJSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	case FormatMsgpack:
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("%w: %q (must be json, yaml, or msgpack)", ErrUnknownFormat, s)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatMsgpack:
		return "application/msgpack"
	default:
		return "application/json"
	}
}

// FormatFromFilename infers the format from a file extension.
func FormatFromFilename(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".msgpack", ".mpk":
		return FormatMsgpack, nil
	default:
		return "", fmt.Errorf("%w: cannot infer from %q", ErrUnknownFormat, name)
	}
}

// Encode serializes r in format f.
func Encode(r *Report, f Format) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatJSON:
		data, err = json.MarshalIndent(r, "", "  ")
	case FormatYAML:
		data, err = yaml.Marshal(r)
	case FormatMsgpack:
		data, err = msgpack.Marshal(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("encode report as %s: %w", f, err)
	}
	return data, nil
}

// Decode parses data in format f.
func Decode(data []byte, f Format) (*Report, error) {
	var (
		r   Report
		err error
	)
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &r)
	case FormatYAML:
		err = yaml.Unmarshal(data, &r)
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, &r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s report: %w", f, err)
	}
	return &r, nil
}

// ReadFile reads and decodes a report, inferring the format from the name.
func ReadFile(path string) (*Report, error) {
	format, err := FormatFromFilename(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("report file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}
	return Decode(data, format)
}
