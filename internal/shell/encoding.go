package shell

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// Encoding selects how a command string is converted to the bytes typed into
// the guest shell.
type Encoding int

const (
	// DisplayEncoding is for text the user composed and expects to see as
	// typed. It is converted to the DOS code page; characters with no
	// equivalent become '?'.
	DisplayEncoding Encoding = iota
	// DirectEncoding is for host file paths that must reach the guest
	// filesystem layer byte for byte.
	DirectEncoding
)

func (e Encoding) String() string {
	switch e {
	case DisplayEncoding:
		return "display"
	case DirectEncoding:
		return "direct"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// Valid reports whether e is a known encoding.
func (e Encoding) Valid() bool {
	return e == DisplayEncoding || e == DirectEncoding
}

// Encode converts text to the bytes that are injected into the shell.
func (e Encoding) Encode(text string) ([]byte, error) {
	switch e {
	case DisplayEncoding:
		b := make([]byte, 0, len(text))
		for _, r := range text {
			c, ok := charmap.CodePage437.EncodeRune(r)
			if !ok {
				c = '?'
			}
			b = append(b, c)
		}
		return b, nil
	case DirectEncoding:
		return []byte(text), nil
	default:
		return nil, fmt.Errorf("unknown encoding %d", int(e))
	}
}
