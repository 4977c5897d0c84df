package protocol

import (
	"encoding/json"
	"fmt"
)

// Icon decorates a dialog. On the wire it is either a string (a well-known
// icon name, or a single image path) or a [foreground, dock] pair of paths.
type Icon struct {
	Name       string
	Foreground string
	Dock       string
}

// NamedIcon returns an icon referring to a well-known name or a single image.
func NamedIcon(name string) *Icon {
	return &Icon{Name: name}
}

// FileIcon returns an icon built from two image files: one shown inside the
// dialog, one used for the dock or taskbar.
func FileIcon(foreground, dock string) *Icon {
	return &Icon{Foreground: foreground, Dock: dock}
}

func (i Icon) MarshalJSON() ([]byte, error) {
	if i.Name != "" {
		return json.Marshal(i.Name)
	}
	return json.Marshal([2]string{i.Foreground, i.Dock})
}

func (i *Icon) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*i = Icon{Name: name}
		return nil
	}
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("icon must be a name or a pair of paths: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("icon pair must have 2 paths, got %d", len(pair))
	}
	*i = Icon{Foreground: pair[0], Dock: pair[1]}
	return nil
}
