package drive

import "fmt"

// Kind describes what backs a drive.
type Kind int

const (
	// KindDirectory is a host folder mounted as a hard disk.
	KindDirectory Kind = iota
	// KindHardDiskImage is a raw hard disk image file.
	KindHardDiskImage
	// KindFloppy is a floppy disk image.
	KindFloppy
	// KindCDROM is an ISO or CUE/BIN CD-ROM image.
	KindCDROM
	// KindInternal is a drive provided by the engine itself (e.g. Z:).
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "dir"
	case KindHardDiskImage:
		return "hdd"
	case KindFloppy:
		return "floppy"
	case KindCDROM:
		return "cdrom"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// IsImage reports whether the drive is backed by an image file, in which case
// its contents have no host filesystem equivalent.
func (k Kind) IsImage() bool {
	return k == KindHardDiskImage || k == KindFloppy || k == KindCDROM
}

// Handle is the backing resource of a drive. It is a value type: the engine
// receives a copy and never owns the cache's entry.
type Handle struct {
	Kind     Kind   `json:"kind"`
	Source   string `json:"source"` // Host path (expanded absolute path)
	ReadOnly bool   `json:"read_only"`
	Label    string `json:"label,omitempty"`
}

func (h Handle) String() string {
	mode := "rw"
	if h.ReadOnly {
		mode = "ro"
	}
	return fmt.Sprintf("%s %s (%s)", h.Kind, h.Source, mode)
}

// Binding associates a drive letter (or other resource key) with a handle.
type Binding struct {
	Key    string `json:"key"`
	Handle Handle `json:"handle"`
}
