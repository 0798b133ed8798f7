package observer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcherBatchesSidecarWrites(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var once sync.Once
	var got []string
	done := make(chan struct{})

	w, err := NewWatcher(dir, func(files []string) {
		mu.Lock()
		got = append(got, files...)
		mu.Unlock()
		once.Do(func() { close(done) })
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	w.SetDebounce(50 * time.Millisecond)
	w.Start(context.Background())

	// A finishing run writes the video first, then the sidecar; only
	// the sidecars should reach the callback.
	if err := os.WriteFile(filepath.Join(dir, "mujoco_grasp_shake_cube_mjxfalse_dt0_002.mp4"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mujoco_grasp_shake_cube_mjxfalse_dt0_002.json"), []byte(`{"status":"success"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "genesis_grasp_shake_cube_mjxfalse_dt0_002.json"), []byte(`{"status":"failure"}`), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}
	// A straggler flush may still be due.
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("callback got %v, want the 2 sidecars", got)
	}
	for _, f := range got {
		if filepath.Ext(f) != ".json" {
			t.Errorf("non-sidecar file %q reached the callback", f)
		}
	}
}

func TestWatcherMissingDir(t *testing.T) {
	if _, err := NewWatcher("/does/not/exist", nil); err == nil {
		t.Error("NewWatcher on a missing directory should fail")
	}
}
