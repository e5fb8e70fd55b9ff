package drive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	root := t.TempDir()
	secrets := filepath.Join(root, ".ssh")
	require.NoError(t, os.MkdirAll(secrets, 0700))
	games := filepath.Join(root, "games")
	require.NoError(t, os.MkdirAll(games, 0755))

	v, err := NewValidator([]string{secrets, ""})
	require.NoError(t, err)

	tests := []struct {
		name    string
		binding Binding
		wantErr string
	}{
		{
			name:    "allowed directory",
			binding: Binding{Key: "C", Handle: Handle{Source: games}},
		},
		{
			name:    "blocked directory",
			binding: Binding{Key: "C", Handle: Handle{Source: secrets}},
			wantErr: "protected path",
		},
		{
			name:    "file under blocked directory",
			binding: Binding{Key: "D", Handle: Handle{Kind: KindHardDiskImage, Source: filepath.Join(secrets, "id_rsa")}},
			wantErr: "protected path",
		},
		{
			name:    "sibling with shared prefix",
			binding: Binding{Key: "C", Handle: Handle{Source: secrets + "rc"}},
		},
		{
			name:    "internal drive",
			binding: Binding{Key: "Z", Handle: Handle{Kind: KindInternal}},
		},
		{
			name:    "empty source",
			binding: Binding{Key: "C"},
			wantErr: "source cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.binding)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidatorSymlink(t *testing.T) {
	root := t.TempDir()
	secrets := filepath.Join(root, "secrets")
	require.NoError(t, os.MkdirAll(secrets, 0700))
	link := filepath.Join(root, "innocent")
	require.NoError(t, os.Symlink(secrets, link))

	v, err := NewValidator([]string{secrets})
	require.NoError(t, err)

	err = v.Validate(Binding{Key: "C", Handle: Handle{Source: link}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolves to protected path")
}
