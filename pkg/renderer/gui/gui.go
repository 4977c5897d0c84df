//go:build !nogui

// Package gui renders dialogs as native windows with fyne, and uses the
// platform file choosers for the folder and file pickers.
package gui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"github.com/holon-run/ltdi/pkg/icons"
	ltdilog "github.com/holon-run/ltdi/pkg/log"
	"github.com/holon-run/ltdi/pkg/protocol"
	"github.com/holon-run/ltdi/pkg/renderer"
	"github.com/sqweek/dialog"
)

// Renderer shows one fyne window per dialog. A worker renders a single
// dialog, so each call owns the whole fyne application.
type Renderer struct{}

// New returns a GUI renderer.
func New() *Renderer {
	return &Renderer{}
}

func init() {
	renderer.Register(renderer.GUI, func() (renderer.Renderer, error) { return New(), nil })
}

func (r *Renderer) Name() string { return renderer.GUI }

func (r *Renderer) Probe(context.Context) error {
	if !renderer.HasDisplay() {
		return fmt.Errorf("%w: no display (DISPLAY and WAYLAND_DISPLAY are unset)", renderer.ErrUnavailable)
	}
	return nil
}

func (r *Renderer) Buttons(ctx context.Context, req *protocol.Request) (int, error) {
	if err := r.Probe(ctx); err != nil {
		return 0, err
	}
	selected := protocol.Cancelled
	win := newWindow(req)

	buttons := make([]fyne.CanvasObject, 0, len(req.Choices)+2)
	buttons = append(buttons, layout.NewSpacer())
	for i, choice := range req.Choices {
		b := widget.NewButton(choice, func() {
			selected = i
			win.app.Quit()
		})
		if i == 0 {
			b.Importance = widget.HighImportance
		}
		buttons = append(buttons, b)
	}
	buttons = append(buttons, layout.NewSpacer())

	win.show(messageLabel(req.Message), container.NewHBox(buttons...))
	return selected, nil
}

func (r *Renderer) Input(ctx context.Context, req *protocol.Request, fields []protocol.Field) ([]string, bool, error) {
	if err := r.Probe(ctx); err != nil {
		return nil, false, err
	}
	win := newWindow(req)
	entries := make([]*widget.Entry, len(fields))
	confirmed := false
	var values []string
	confirm := func() {
		values = make([]string, len(entries))
		for i, e := range entries {
			values[i] = e.Text
		}
		confirmed = true
		win.app.Quit()
	}

	form := container.New(layout.NewFormLayout())
	for i, f := range fields {
		e := widget.NewEntry()
		if f.Masked {
			e = widget.NewPasswordEntry()
		}
		e.SetText(f.Initial)
		e.OnSubmitted = func(string) { confirm() }
		entries[i] = e
		form.Add(widget.NewLabel(f.Label))
		form.Add(e)
	}

	ok := widget.NewButton("OK", confirm)
	ok.Importance = widget.HighImportance
	cancel := widget.NewButton("Cancel", win.app.Quit)

	win.show(messageLabel(req.Message), form, container.NewHBox(layout.NewSpacer(), ok, cancel))
	if !confirmed {
		return nil, false, nil
	}
	return values, true, nil
}

func (r *Renderer) Message(ctx context.Context, req *protocol.Request) error {
	if err := r.Probe(ctx); err != nil {
		return err
	}
	win := newWindow(req)
	go func() {
		<-ctx.Done()
		fyne.Do(win.app.Quit)
	}()
	win.show(messageLabel(req.Message))
	return nil
}

func (r *Renderer) PickFolder(ctx context.Context, req *protocol.Request) (string, error) {
	if err := r.Probe(ctx); err != nil {
		return "", err
	}
	path, err := dialog.Directory().
		Title(req.Title).
		SetStartDir(startDir(req.InitialFolder)).
		Browse()
	return chosen(path, err)
}

func (r *Renderer) PickFile(ctx context.Context, req *protocol.Request) (string, error) {
	if err := r.Probe(ctx); err != nil {
		return "", err
	}
	path, err := dialog.File().
		Title(req.Title).
		SetStartDir(startDir(req.InitialFolder)).
		Load()
	return chosen(path, err)
}

func chosen(path string, err error) (string, error) {
	if errors.Is(err, dialog.ErrCancelled) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("file chooser failed: %w", err)
	}
	return path, nil
}

func startDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}

type window struct {
	app fyne.App
	win fyne.Window
	req *protocol.Request
}

func newWindow(req *protocol.Request) *window {
	a := app.New()
	w := a.NewWindow(req.Title)
	w.SetCloseIntercept(a.Quit)
	return &window{app: a, win: w, req: req}
}

// show lays out the dialog and runs the application until it quits.
func (w *window) show(rows ...fyne.CanvasObject) {
	var objects []fyne.CanvasObject
	if pair, ok := icons.Resolve(w.req.Icon); ok {
		if img := loadImage(pair.Small); img != nil {
			objects = append(objects, img)
		}
		if res := loadResource(pair.Large); res != nil {
			w.app.SetIcon(res)
			w.win.SetIcon(res)
		}
	}
	objects = append(objects, rows...)

	content := container.NewPadded(container.NewVBox(objects...))
	w.win.SetContent(content)

	size := content.MinSize()
	size.Width = max(size.Width, float32(w.req.MinWidth))
	size.Height = max(size.Height, float32(w.req.MinHeight))
	w.win.Resize(size)
	w.win.SetFixedSize(true)
	// fyne has no window positioning, so offsets are ignored.
	w.win.CenterOnScreen()
	w.win.Show()
	w.app.Run()
}

func messageLabel(text string) fyne.CanvasObject {
	l := widget.NewLabel(text)
	l.Wrapping = fyne.TextWrapWord
	return l
}

func loadResource(img icons.Image) fyne.Resource {
	data, err := img.Load()
	if err != nil {
		ltdilog.Debug("icon not loaded", "icon", img.Name, "error", err)
		return nil
	}
	return fyne.NewStaticResource(img.Name, data)
}

func loadImage(img icons.Image) fyne.CanvasObject {
	res := loadResource(img)
	if res == nil {
		return nil
	}
	c := canvas.NewImageFromResource(res)
	c.FillMode = canvas.ImageFillOriginal
	return c
}
