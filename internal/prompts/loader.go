// Package prompts holds the LLM prompt fragments used to build generation and
// edit requests. Fragments live in embedded JSON files keyed by name.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Generation is the fragment file used for page generation and edit passes.
const Generation = "generation.json"

//go:embed *.json
var promptFiles embed.FS

var (
	cache   = make(map[string]map[string]string)
	cacheMu sync.RWMutex
)

// Get returns the fragment stored under key in filename.
func Get(filename, key string) (string, error) {
	fragments, err := loadFile(filename)
	if err != nil {
		return "", err
	}

	fragment, ok := fragments[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return fragment, nil
}

// MustGet is Get for fragments that ship with the binary. It panics when the key is missing.
func MustGet(filename, key string) string {
	fragment, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return fragment
}

// Format substitutes {{.Key}} placeholders in a single pass, so placeholder-like
// text inside a substituted value is left alone. Unknown placeholders remain.
func Format(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{."+k+"}}", data[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Render is MustGet followed by Format.
func Render(filename, key string, data map[string]string) string {
	return Format(MustGet(filename, key), data)
}

func loadFile(filename string) (map[string]string, error) {
	cacheMu.RLock()
	if fragments, ok := cache[filename]; ok {
		cacheMu.RUnlock()
		return fragments, nil
	}
	cacheMu.RUnlock()

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	var fragments map[string]string
	if err := json.Unmarshal(data, &fragments); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	cacheMu.Lock()
	cache[filename] = fragments
	cacheMu.Unlock()

	return fragments, nil
}

// ClearCache drops parsed files. Tests use it to force a reload.
func ClearCache() {
	cacheMu.Lock()
	cache = make(map[string]map[string]string)
	cacheMu.Unlock()
}

// List returns the keys defined in filename, sorted.
func List(filename string) ([]string, error) {
	fragments, err := loadFile(filename)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(fragments))
	for key := range fragments {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
