package dialog

import "github.com/holon-run/ltdi/pkg/protocol"

// Option adjusts how a dialog looks or where it appears. Offsets are in
// pixels from the named screen edge; Left and Right, or Top and Bottom,
// cannot be combined.
type Option func(*protocol.Request)

// WithTitle sets the window title.
func WithTitle(title string) Option {
	return func(r *protocol.Request) { r.Title = title }
}

// WithIcon shows a well-known icon (alert, clock, cloud, error, find, gear,
// info, light, lock, question, warning) or a single image path.
func WithIcon(name string) Option {
	return func(r *protocol.Request) { r.Icon = protocol.NamedIcon(name) }
}

// WithIconFiles shows foreground inside the dialog and uses dock as the
// application icon.
func WithIconFiles(foreground, dock string) Option {
	return func(r *protocol.Request) { r.Icon = protocol.FileIcon(foreground, dock) }
}

func Left(px int) Option {
	return func(r *protocol.Request) { r.Left = &px }
}

func Right(px int) Option {
	return func(r *protocol.Request) { r.Right = &px }
}

func Top(px int) Option {
	return func(r *protocol.Request) { r.Top = &px }
}

func Bottom(px int) Option {
	return func(r *protocol.Request) { r.Bottom = &px }
}

func MinWidth(px int) Option {
	return func(r *protocol.Request) { r.MinWidth = px }
}

func MinHeight(px int) Option {
	return func(r *protocol.Request) { r.MinHeight = px }
}

func build(fn protocol.Function, text string, opts []Option) *protocol.Request {
	req := &protocol.Request{Function: fn, Message: text}
	for _, opt := range opts {
		opt(req)
	}
	return req
}
