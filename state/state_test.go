package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStateOperations(t *testing.T) {
	tmpDir := t.TempDir()
	f := Open(filepath.Join(tmpDir, "state", "state.yml"))

	t.Run("Load empty state", func(t *testing.T) {
		state, err := f.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if state == nil {
			t.Fatal("Load() returned nil state")
		}
		if len(state) != 0 {
			t.Errorf("Load() returned non-empty state: %v", state)
		}
	})

	t.Run("Set and Get string value", func(t *testing.T) {
		if err := f.Set("test.key", "test-value"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		got, err := f.GetString("test.key")
		if err != nil {
			t.Fatalf("GetString() error = %v", err)
		}
		if got != "test-value" {
			t.Errorf("GetString() = %v, want %v", got, "test-value")
		}
	})

	t.Run("Get non-string value", func(t *testing.T) {
		if err := f.Set("count", 3); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		val, ok, err := f.Get("count")
		if err != nil || !ok {
			t.Fatalf("Get() = %v, %v, %v", val, ok, err)
		}
		if val != 3 {
			t.Errorf("Get() = %v, want 3", val)
		}
		if s, _ := f.GetString("count"); s != "" {
			t.Errorf("GetString() on int = %q, want empty", s)
		}
	})

	t.Run("Delete key", func(t *testing.T) {
		if err := f.Delete("test.key"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, ok, _ := f.Get("test.key"); ok {
			t.Error("Get() found deleted key")
		}
	})

	t.Run("State file exists", func(t *testing.T) {
		if _, err := os.Stat(f.Path()); os.IsNotExist(err) {
			t.Error("state file was not created")
		}
	})
}

func TestTheme(t *testing.T) {
	f := Open(filepath.Join(t.TempDir(), "state.yml"))

	theme, err := f.Theme()
	if err != nil {
		t.Fatalf("Theme() error = %v", err)
	}
	if theme != "light" {
		t.Errorf("Theme() = %q, want light when unset", theme)
	}

	if err := f.SetTheme("dark"); err != nil {
		t.Fatalf("SetTheme() error = %v", err)
	}
	if theme, _ := f.Theme(); theme != "dark" {
		t.Errorf("Theme() = %q, want dark", theme)
	}

	if err := f.Set(KeyTheme, "solarized"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if theme, _ := f.Theme(); theme != "light" {
		t.Errorf("Theme() = %q, want light for unknown value", theme)
	}
}

func TestCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yml")
	if err := os.WriteFile(path, []byte("theme: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	f := Open(path)
	if _, err := f.Load(); err == nil {
		t.Error("Load() expected parse error")
	}
	theme, err := f.Theme()
	if err == nil {
		t.Error("Theme() expected error")
	}
	if theme != "light" {
		t.Errorf("Theme() = %q, want light fallback", theme)
	}
}

func TestEmptyPath(t *testing.T) {
	f := Open("")
	if _, err := f.Load(); err == nil {
		t.Error("Load() expected error for empty path")
	}
	if err := f.Set("k", "v"); err == nil {
		t.Error("Set() expected error for empty path")
	}
}
