// Package icons resolves a dialog icon into the pair of images a renderer
// shows: a small one inside the dialog and a large one for the dock or
// taskbar.
package icons

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/holon-run/ltdi/pkg/protocol"
)

//go:embed images/*.png
var images embed.FS

var glyphs = map[string]string{
	"alert":    "!",
	"clock":    "◷",
	"cloud":    "☁",
	"error":    "✖",
	"find":     "⌕",
	"gear":     "⚙",
	"info":     "ℹ",
	"light":    "☼",
	"lock":     "⚿",
	"question": "?",
	"warning":  "⚠",
}

// Names lists the well-known icon names.
func Names() []string {
	names := make([]string, 0, len(glyphs))
	for name := range glyphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is a well-known icon.
func Known(name string) bool {
	_, ok := glyphs[name]
	return ok
}

// Image is either bundled data or a file on disk.
type Image struct {
	Name string
	data []byte
	path string
}

// Load returns the image bytes.
func (img Image) Load() ([]byte, error) {
	if img.data != nil {
		return img.data, nil
	}
	data, err := os.ReadFile(img.path)
	if err != nil {
		return nil, fmt.Errorf("failed to load icon %s: %w", img.path, err)
	}
	return data, nil
}

// Pair is the resolved icon.
type Pair struct {
	Small Image
	Large Image
	// Glyph stands in for the icon where images cannot be drawn.
	Glyph string
}

// Resolve maps a request icon to images. ok is false for no icon.
// A name that is not well known is taken as one image path used for both.
func Resolve(icon *protocol.Icon) (pair Pair, ok bool) {
	if icon == nil {
		return Pair{}, false
	}
	switch {
	case Known(icon.Name):
		return Pair{
			Small: bundled(icon.Name + "_small.png"),
			Large: bundled(icon.Name + "_large.png"),
			Glyph: glyphs[icon.Name],
		}, true
	case icon.Name != "":
		img := file(icon.Name)
		return Pair{Small: img, Large: img, Glyph: "*"}, true
	case icon.Foreground != "" || icon.Dock != "":
		return Pair{Small: file(icon.Foreground), Large: file(icon.Dock), Glyph: "*"}, true
	}
	return Pair{}, false
}

func bundled(name string) Image {
	// Names are fixed by the embed pattern; a read error cannot happen for
	// a known icon.
	data, _ := images.ReadFile(path.Join("images", name))
	return Image{Name: name, data: data}
}

func file(p string) Image {
	return Image{Name: path.Base(p), path: p}
}
