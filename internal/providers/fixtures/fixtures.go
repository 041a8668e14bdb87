// Package fixtures embeds recorded backend responses shared by the adapter
// tests.
package fixtures

import (
	"embed"
	"encoding/json"
	"io/fs"
	"testing"
)

//go:embed testdata/*.json
var recorded embed.FS

// Bytes returns the recorded response body stored under name.
func Bytes(t testing.TB, name string) []byte {
	t.Helper()
	data, err := recorded.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("fixture %s: %v", name, err)
	}
	return data
}

// Decode unmarshals the recorded response stored under name into dest.
func Decode(t testing.TB, name string, dest any) {
	t.Helper()
	if err := json.Unmarshal(Bytes(t, name), dest); err != nil {
		t.Fatalf("fixture %s: decode: %v", name, err)
	}
}

// Names lists every recorded response.
func Names() ([]string, error) {
	return fs.Glob(recorded, "testdata/*.json")
}
