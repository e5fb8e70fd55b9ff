package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		enc  Encoding
		text string
		want []byte
	}{
		{name: "ascii display", enc: DisplayEncoding, text: "DIR /W", want: []byte("DIR /W")},
		{name: "code page 437 display", enc: DisplayEncoding, text: "ECHO é", want: []byte{'E', 'C', 'H', 'O', ' ', 0x82}},
		{name: "unmappable display", enc: DisplayEncoding, text: "ECHO 😀", want: []byte("ECHO ?")},
		{name: "direct keeps bytes", enc: DirectEncoding, text: "CD /home/é", want: []byte("CD /home/é")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.enc.Encode(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeUnknown(t *testing.T) {
	_, err := Encoding(7).Encode("DIR")
	assert.Error(t, err)
	assert.Equal(t, "Encoding(7)", Encoding(7).String())
}

func TestEncodingValid(t *testing.T) {
	assert.True(t, DisplayEncoding.Valid())
	assert.True(t, DirectEncoding.Valid())
	assert.False(t, Encoding(-1).Valid())
	assert.False(t, Encoding(2).Valid())
}
