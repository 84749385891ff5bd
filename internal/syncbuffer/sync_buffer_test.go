package syncbuffer

import (
	"fmt"
	"testing"

	"golang.org/x/sync/errgroup"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestSyncBuffer_ConcurrentWrites(t *testing.T) {
	b := &SyncBuffer{}
	assert.Check(t, cmp.Len(b.Lines(), 0))

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		i := i
		g.Go(func() error {
			_, err := fmt.Fprintf(b, "line %d\n", i)
			return err
		})
	}
	assert.Assert(t, g.Wait())
	assert.Check(t, cmp.Len(b.Lines(), 20))
}
