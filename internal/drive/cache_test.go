package drive

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReleaser struct {
	mu       sync.Mutex
	released []string
	cache    *Cache
	ack      bool
}

func (r *recordingReleaser) ReleaseDrive(key string, h Handle) {
	r.mu.Lock()
	r.released = append(r.released, key)
	r.mu.Unlock()
	if r.ack {
		r.cache.Released(key)
	}
}

func TestCacheBindLastWriteWins(t *testing.T) {
	c := NewCache()

	_, replaced := c.Bind("c", Handle{Source: "/one"})
	assert.False(t, replaced)

	prev, replaced := c.Bind("C", Handle{Source: "/two"})
	assert.True(t, replaced)
	assert.Equal(t, "/one", prev.Source)

	h, ok := c.Lookup("c")
	require.True(t, ok)
	assert.Equal(t, "/two", h.Source)
	assert.Len(t, c.Bindings(), 1)
}

func TestCacheTakeDirty(t *testing.T) {
	c := NewCache()
	c.Bind("D", Handle{Source: "/d"})
	c.Bind("C", Handle{Source: "/c"})

	dirty := c.TakeDirty()
	require.Len(t, dirty, 2)
	assert.Equal(t, "C", dirty[0].Key)
	assert.Equal(t, "D", dirty[1].Key)

	assert.Empty(t, c.TakeDirty())

	c.Bind("D", Handle{Source: "/d2"})
	dirty = c.TakeDirty()
	require.Len(t, dirty, 1)
	assert.Equal(t, "/d2", dirty[0].Handle.Source)
}

func TestCacheUnbindAllWithoutReleaser(t *testing.T) {
	c := NewCache()
	c.Bind("C", Handle{Source: "/c"})

	assert.Equal(t, 1, c.UnbindAll(nil))
	assert.Empty(t, c.Bindings())
	assert.Empty(t, c.Releasing())
}

func TestCacheUnbindAllHandshake(t *testing.T) {
	c := NewCache()
	c.Bind("C", Handle{Source: "/c"})
	c.Bind("D", Handle{Source: "/d.iso", Kind: KindCDROM})

	r := &recordingReleaser{cache: c}
	assert.Equal(t, 2, c.UnbindAll(r))

	// Live bindings are gone immediately, but the handles are held until acknowledged.
	_, ok := c.Lookup("C")
	assert.False(t, ok)
	assert.Equal(t, []string{"C", "D"}, r.released)
	assert.Equal(t, []string{"C", "D"}, c.Releasing())

	c.Released("C")
	assert.Equal(t, []string{"D"}, c.Releasing())
	c.Released("D")
	assert.Empty(t, c.Releasing())
}

func TestCacheUnbindAllSynchronousAck(t *testing.T) {
	c := NewCache()
	c.Bind("C", Handle{Source: "/c"})

	r := &recordingReleaser{cache: c, ack: true}
	c.UnbindAll(r)
	assert.Empty(t, c.Releasing())
}

func TestCacheHostPath(t *testing.T) {
	root := t.TempDir()
	c := NewCache()
	c.Bind("C", Handle{Kind: KindDirectory, Source: root})
	c.Bind("D", Handle{Kind: KindCDROM, Source: "/isos/game.iso"})

	assert.Equal(t, filepath.Join(root, "GAMES", "DOOM.EXE"), c.HostPath(`C:\GAMES\DOOM.EXE`))
	assert.Equal(t, root, c.HostPath(`C:\`))
	assert.Equal(t, "", c.HostPath(`D:\SETUP.EXE`))
	assert.Equal(t, "", c.HostPath(`E:\X.EXE`))
	assert.Equal(t, "", c.HostPath("no-drive"))
}

func TestCacheHostPathStaysUnderRoot(t *testing.T) {
	root := t.TempDir()
	c := NewCache()
	c.Bind("C", Handle{Kind: KindDirectory, Source: root})

	assert.Equal(t, "", c.HostPath(`C:\..\..\etc\passwd`))
	assert.Equal(t, "", c.HostPath(`C:..`))
	assert.Equal(t, "", c.HostPath(`C:\GAMES\..\..\X.EXE`))
	assert.Equal(t, filepath.Join(root, "X.EXE"), c.HostPath(`C:\GAMES\..\X.EXE`))
	assert.Equal(t, filepath.Join(root, "..KEEN"), c.HostPath(`C:\..KEEN`))
}

func TestCacheConcurrentBind(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Bind("C", Handle{Source: "/c"})
			c.TakeDirty()
			c.Bindings()
		}()
	}
	wg.Wait()
	assert.Len(t, c.Bindings(), 1)
}
