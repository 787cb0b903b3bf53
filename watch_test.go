package shopping_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nicolagi/shopping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "einkaufsliste.json")
	b := shopping.NewFileBackend(path)
	ctx, cancel := context.WithCancel(context.Background())
	called := make(chan struct{}, 1)
	done := make(chan error)
	go func() {
		done <- shopping.Watch(ctx, path, 20*time.Millisecond, func() {
			select {
			case called <- struct{}{}:
			default:
			}
		})
	}()

	// The watcher may not be in place yet; keep saving until it notices.
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(5 * time.Second)
wait:
	for {
		select {
		case <-called:
			break wait
		case <-tick.C:
			_, err := b.Overwrite(ctx, sampleItems())
			require.Nil(t, err)
		case <-deadline:
			t.Fatal("no reload after saving the list")
		}
	}

	// Files other than the list don't count.
	require.Nil(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644))

	cancel()
	select {
	case err := <-done:
		assert.Nil(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}
