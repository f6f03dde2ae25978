package config

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"
)

func TestStore_LoadSwap(t *testing.T) {
	first := Default()
	store := NewStore(first)

	if store.Load() != first {
		t.Fatal("expected initial snapshot")
	}

	var notified []string
	store.Subscribe(func(old, new *Config) {
		if old != first {
			t.Error("expected old snapshot to be passed to subscriber")
		}
		notified = append(notified, new.Logging.Level)
	})

	second := Default()
	second.Logging.Level = "debug"

	old, err := store.Swap(second)
	if err != nil {
		t.Fatalf("Swap failed: %v", err)
	}
	if old != first {
		t.Error("expected Swap to return previous snapshot")
	}
	if store.Load() != second {
		t.Error("expected new snapshot after Swap")
	}
	if len(notified) != 1 || notified[0] != "debug" {
		t.Errorf("expected one notification, got %v", notified)
	}

	// The old snapshot is untouched.
	if first.Logging.Level != DefaultLoggingLevel {
		t.Errorf("old snapshot mutated: level %q", first.Logging.Level)
	}
}

func TestStore_SwapNil(t *testing.T) {
	store := NewStore(Default())
	if _, err := store.Swap(nil); !errors.Is(err, ErrNilConfig) {
		t.Errorf("expected ErrNilConfig, got %v", err)
	}
}

func TestStore_ConcurrentReaders(t *testing.T) {
	store := NewStore(Default())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					if store.Load() == nil {
						t.Error("reader observed nil snapshot")
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		if _, err := store.Swap(Default()); err != nil {
			t.Fatalf("Swap failed: %v", err)
		}
	}
	close(stop)
	wg.Wait()
}

func TestStore_Reload(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	store := NewStore(cfg)

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Reload(path); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if store.Load().Logging.Level != "debug" {
		t.Errorf("expected reloaded level debug, got %q", store.Load().Logging.Level)
	}

	// Listener changes are refused and the snapshot is kept.
	if err := os.WriteFile(path, []byte("server:\n  listeners:\n    - address: \"0.0.0.0:9999\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = store.Reload(path)
	if !errors.Is(err, ErrRestartRequired) {
		t.Fatalf("expected ErrRestartRequired, got %v", err)
	}
	if store.Load().Logging.Level != "debug" {
		t.Error("expected snapshot to be kept after refused reload")
	}

	// Invalid files are refused as well.
	if err := os.WriteFile(path, []byte("compression:\n  level: 99\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Reload(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestCanHotReload_Warnings(t *testing.T) {
	prev := Default()
	next := Default()
	next.TLS.CertFile = "/new/cert.pem"

	warnings, err := CanHotReload(prev, next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", warnings)
	}

	if _, err := CanHotReload(nil, next); err != nil {
		t.Errorf("nil previous config should accept anything, got %v", err)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	store := NewStore(cfg)

	w, err := NewWatcher(path, store, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	reloaded := make(chan error, 4)
	w.OnReload = func(err error) { reloaded <- err }

	done := make(chan error, 1)
	go func() { done <- w.Watch(t.Context()) }()
	defer func() {
		if err := w.Stop(); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	}()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("logging:\n  level: error\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if store.Load().Logging.Level != "error" {
		t.Errorf("expected level error, got %q", store.Load().Logging.Level)
	}
}

func TestDebouncer_CoalescesEvents(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var mu sync.Mutex
	calls := 0
	for i := 0; i < 10; i++ {
		d.Trigger(func() {
			mu.Lock()
			calls++
			mu.Unlock()
		})
	}

	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
