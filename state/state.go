// Package state persists small user preferences, such as the theme, in a
// YAML key/value file.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/grovetools/feed/pkg/models"
	"github.com/grovetools/feed/pkg/paths"
	"gopkg.in/yaml.v3"
)

// KeyTheme is the preference key holding the theme name.
const KeyTheme = "theme"

// State is the preference file content as a generic map of key-value pairs.
type State map[string]interface{}

// File is a preference file at a fixed path. Every call reads or rewrites the
// whole file, so edits made by other processes are picked up.
type File struct {
	path string
	mu   sync.Mutex
}

// Open returns the preference file at path. The file need not exist.
func Open(path string) *File {
	return &File{path: path}
}

// Default returns the preference file under the feed state directory.
func Default() *File {
	return Open(paths.StateFile())
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Load loads the state from the file.
// Returns an empty state if the file doesn't exist.
func (f *File) Load() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *File) load() (State, error) {
	if f.path == "" {
		return nil, fmt.Errorf("state file path is not set")
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(State), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}

	if state == nil {
		state = make(State)
	}

	return state, nil
}

// Save writes state to the file, creating its directory.
func (f *File) Save(state State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.save(state)
}

func (f *File) save(state State) error {
	if f.path == "" {
		return fmt.Errorf("state file path is not set")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

// Get retrieves a value by key.
// Returns the value and true if found, nil and false otherwise.
func (f *File) Get(key string) (interface{}, bool, error) {
	state, err := f.Load()
	if err != nil {
		return nil, false, err
	}

	val, ok := state[key]
	return val, ok, nil
}

// GetString returns a string value, or "" if the key doesn't exist or holds
// something else.
func (f *File) GetString(key string) (string, error) {
	val, ok, err := f.Get(key)
	if err != nil || !ok {
		return "", err
	}
	str, _ := val.(string)
	return str, nil
}

// Set sets a value and saves the file.
func (f *File) Set(key string, value interface{}) error {
	return f.update(func(s State) { s[key] = value })
}

// Delete removes a key and saves the file.
func (f *File) Delete(key string) error {
	return f.update(func(s State) { delete(s, key) })
}

func (f *File) update(fn func(State)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, err := f.load()
	if err != nil {
		return err
	}
	fn(state)
	return f.save(state)
}

// Theme returns the stored theme: dark only if the stored value is "dark",
// light otherwise, including when nothing is stored.
func (f *File) Theme() (string, error) {
	theme, err := f.GetString(KeyTheme)
	if err != nil {
		return models.ThemeLight, err
	}
	return models.NormalizeTheme(theme), nil
}

// SetTheme stores the theme.
func (f *File) SetTheme(theme string) error {
	return f.Set(KeyTheme, models.NormalizeTheme(theme))
}
