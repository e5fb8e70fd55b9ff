package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaunchCommands(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		args    string
		want    []Command
		wantErr bool
	}{
		{
			name: "nested program",
			path: `C:\GAMES\KEEN\KEEN4.EXE`,
			want: []Command{
				{Text: "C:", Encoding: DirectEncoding},
				{Text: `CD \GAMES\KEEN`, Encoding: DirectEncoding},
				{Text: "KEEN4.EXE", Encoding: DirectEncoding},
			},
		},
		{
			name: "root program with args",
			path: "d:/SETUP.EXE",
			args: " /auto ",
			want: []Command{
				{Text: "D:", Encoding: DirectEncoding},
				{Text: `CD \`, Encoding: DirectEncoding},
				{Text: "SETUP.EXE /auto", Encoding: DisplayEncoding},
			},
		},
		{
			name: "spaces are quoted",
			path: `C:\My Games\Run Me.bat`,
			want: []Command{
				{Text: "C:", Encoding: DirectEncoding},
				{Text: `CD "\My Games"`, Encoding: DirectEncoding},
				{Text: `"Run Me.bat"`, Encoding: DirectEncoding},
			},
		},
		{name: "no drive", path: `\GAMES\X.EXE`, wantErr: true},
		{name: "directory", path: `C:\GAMES\`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LaunchCommands(tt.path, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
