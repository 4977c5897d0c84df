package icons

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/holon-run/ltdi/pkg/protocol"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestBundledIcons(t *testing.T) {
	if len(Names()) != 11 {
		t.Fatalf("Names() = %v, want 11 icons", Names())
	}
	for _, name := range Names() {
		pair, ok := Resolve(protocol.NamedIcon(name))
		if !ok {
			t.Fatalf("Resolve(%q) not ok", name)
		}
		for _, img := range []Image{pair.Small, pair.Large} {
			data, err := img.Load()
			if err != nil {
				t.Fatalf("%s: Load() error = %v", img.Name, err)
			}
			if !bytes.HasPrefix(data, pngMagic) {
				t.Errorf("%s is not a PNG", img.Name)
			}
		}
		if pair.Glyph == "" {
			t.Errorf("%s has no glyph", name)
		}
	}
}

func TestResolveFiles(t *testing.T) {
	dir := t.TempDir()
	fg := filepath.Join(dir, "fg.png")
	dock := filepath.Join(dir, "dock.png")
	if err := os.WriteFile(fg, []byte("fg"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dock, []byte("dock"), 0o644); err != nil {
		t.Fatal(err)
	}

	pair, ok := Resolve(protocol.FileIcon(fg, dock))
	if !ok {
		t.Fatal("Resolve(pair) not ok")
	}
	if data, _ := pair.Small.Load(); string(data) != "fg" {
		t.Errorf("Small = %q", data)
	}
	if data, _ := pair.Large.Load(); string(data) != "dock" {
		t.Errorf("Large = %q", data)
	}

	pair, _ = Resolve(protocol.NamedIcon(fg))
	if data, _ := pair.Large.Load(); string(data) != "fg" {
		t.Errorf("single path should serve both images, Large = %q", data)
	}
}

func TestResolveNone(t *testing.T) {
	if _, ok := Resolve(nil); ok {
		t.Error("Resolve(nil) should not be ok")
	}
	if _, ok := Resolve(&protocol.Icon{}); ok {
		t.Error("Resolve(empty) should not be ok")
	}
}

func TestMissingFile(t *testing.T) {
	pair, _ := Resolve(protocol.NamedIcon(filepath.Join(t.TempDir(), "nope.png")))
	if _, err := pair.Small.Load(); err == nil {
		t.Error("Load() of a missing file should fail")
	}
}
