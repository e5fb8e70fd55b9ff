package drive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ErrInvalidSpec is returned for drive specifications that cannot be parsed.
var ErrInvalidSpec = errors.New("invalid drive specification")

// Parse parses a drive specification string into a Binding.
//
// Formats:
//   - "C=~/dos/c" -> directory drive C, read-write
//   - "C=~/dos/c:ro" -> directory drive C, read-only
//   - "D=~/isos/game.iso" -> CD-ROM drive D (always read-only)
//   - "A=~/disks/boot.img" -> floppy drive A
//
// The kind is inferred from the file extension; anything without a known
// image extension is treated as a host directory.
func Parse(spec string) (Binding, error) {
	if spec == "" {
		return Binding{}, fmt.Errorf("%w: specification cannot be empty", ErrInvalidSpec)
	}

	letter, path, ok := strings.Cut(spec, "=")
	if !ok {
		return Binding{}, fmt.Errorf("%w: %q is missing '=' (expected LETTER=path)", ErrInvalidSpec, spec)
	}

	key, err := NormalizeKey(letter)
	if err != nil {
		return Binding{}, err
	}

	readOnly := false
	if n := len(path) - 3; n > 0 && (path[n:] == ":ro" || path[n:] == ":rw") {
		readOnly = path[n:] == ":ro"
		path = path[:n]
	}

	source, err := expandPath(path)
	if err != nil {
		return Binding{}, fmt.Errorf("invalid source path: %w", err)
	}

	kind := kindFor(key, source)
	if kind == KindCDROM {
		readOnly = true
	}

	return Binding{
		Key: key,
		Handle: Handle{
			Kind:     kind,
			Source:   source,
			ReadOnly: readOnly,
			Label:    strings.ToUpper(strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))),
		},
	}, nil
}

// NormalizeKey validates a drive letter and returns it upper-cased.
func NormalizeKey(key string) (string, error) {
	key = strings.TrimSuffix(strings.TrimSpace(key), ":")
	if len(key) != 1 {
		return "", fmt.Errorf("%w: drive letter must be a single character, got %q", ErrInvalidSpec, key)
	}
	c := key[0] &^ 0x20
	if c < 'A' || c > 'Z' {
		return "", fmt.Errorf("%w: drive letter must be A-Z, got %q", ErrInvalidSpec, key)
	}
	return string(c), nil
}

// kindFor infers the drive kind from the source path.
func kindFor(key, source string) Kind {
	if info, err := os.Stat(source); err == nil && info.IsDir() {
		return KindDirectory
	}
	switch strings.ToLower(filepath.Ext(source)) {
	case ".iso", ".cue", ".bin", ".cdr":
		return KindCDROM
	case ".ima", ".vfd", ".flp":
		return KindFloppy
	case ".img":
		if key == "A" || key == "B" {
			return KindFloppy
		}
		return KindHardDiskImage
	default:
		return KindDirectory
	}
}

// expandPath expands ~ to home directory and returns an absolute path
func expandPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand path: %w", err)
	}

	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to convert to absolute path: %w", err)
	}

	return filepath.Clean(abs), nil
}
