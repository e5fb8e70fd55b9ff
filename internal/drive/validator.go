package drive

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// Validator refuses drive bindings whose host source lies under a blocked path.
type Validator struct {
	blockedPaths []string // Expanded absolute paths
}

// NewValidator creates a Validator with the given blocked paths. Each blocked
// path is expanded, made absolute and resolved through symlinks so that
// comparisons are made against real paths.
func NewValidator(blockedPaths []string) (*Validator, error) {
	expanded := make([]string, 0, len(blockedPaths))

	for _, path := range blockedPaths {
		if path == "" {
			continue
		}

		expandedPath, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("failed to expand blocked path '%s': %w", path, err)
		}

		absPath, err := filepath.Abs(expandedPath)
		if err != nil {
			return nil, fmt.Errorf("failed to convert blocked path '%s' to absolute: %w", path, err)
		}

		// Path may not exist yet
		realPath, err := filepath.EvalSymlinks(absPath)
		if err != nil {
			realPath = filepath.Clean(absPath)
		}

		expanded = append(expanded, realPath)
	}

	return &Validator{blockedPaths: expanded}, nil
}

// Validate returns an error if the binding's source is under or equal to a
// blocked path. Internal drives have no host source and always pass.
func (v *Validator) Validate(b Binding) error {
	if b.Handle.Kind == KindInternal {
		return nil
	}
	if b.Handle.Source == "" {
		return fmt.Errorf("drive %s: source cannot be empty", b.Key)
	}

	sourcePath, err := filepath.Abs(b.Handle.Source)
	if err != nil {
		sourcePath = filepath.Clean(b.Handle.Source)
	}

	realPath, err := filepath.EvalSymlinks(sourcePath)
	if err != nil {
		realPath = sourcePath
	}

	for _, blocked := range v.blockedPaths {
		if isUnderOrEqual(realPath, blocked) {
			if realPath != sourcePath {
				return fmt.Errorf("drive %s blocked: %s resolves to protected path %s", b.Key, b.Handle.Source, blocked)
			}
			return fmt.Errorf("drive %s blocked: %s is a protected path", b.Key, blocked)
		}
	}

	return nil
}

// isUnderOrEqual returns true if testPath is under or equal to basePath.
//   - "/home/user/.ssh/id_rsa" is under "/home/user/.ssh"
//   - "/home/user/.sshrc" is NOT under "/home/user/.ssh"
func isUnderOrEqual(testPath, basePath string) bool {
	if testPath == basePath {
		return true
	}

	baseWithSep := basePath
	if !strings.HasSuffix(baseWithSep, string(filepath.Separator)) {
		baseWithSep += string(filepath.Separator)
	}

	return strings.HasPrefix(testPath, baseWithSep)
}
