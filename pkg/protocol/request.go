// Package protocol defines the wire format shared by the dialog caller and
// the worker process: a self-describing JSON request passed as a single
// argument, and a two-element JSON reply written to standard output.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Function names the dialog a worker is asked to render.
type Function string

const (
	FuncButtonDialog Function = "button_dialog"
	FuncInputDialog  Function = "input_dialog"
	FuncMessage      Function = "message"
	FuncGetFolder    Function = "get_folder"
	FuncGetFilename  Function = "get_filename"
	// FuncProbe asks the worker to report whether its renderer can run,
	// without showing anything.
	FuncProbe Function = "probe"
)

// Valid reports whether f is a known function.
func (f Function) Valid() bool {
	switch f {
	case FuncButtonDialog, FuncInputDialog, FuncMessage, FuncGetFolder, FuncGetFilename, FuncProbe:
		return true
	}
	return false
}

// Blocking reports whether the caller waits for a reply.
// Only message windows are fire-and-forget.
func (f Function) Blocking() bool {
	return f != FuncMessage
}

// Worker-side defaults for fields the caller omitted.
const (
	DefaultMinWidth      = 100
	DefaultInitialFolder = "."
	DefaultButtonMessage = "Please select an option"
)

// DefaultChoices are the buttons shown when a button dialog names none.
var DefaultChoices = []string{"OK", "Cancel"}

// Placement positions the dialog window on screen. Offsets are optional;
// a nil offset means "center on that axis".
type Placement struct {
	Left      *int `json:"left,omitempty"`
	Right     *int `json:"right,omitempty"`
	Top       *int `json:"top,omitempty"`
	Bottom    *int `json:"bottom,omitempty"`
	MinWidth  int  `json:"min_width,omitempty"`
	MinHeight int  `json:"min_height,omitempty"`
}

// Validate rejects mutually exclusive offsets.
func (p Placement) Validate() error {
	if p.Left != nil && p.Right != nil {
		return &Error{Kind: KindInvalidArgument, Detail: "'left' and 'right' cannot be both specified."}
	}
	if p.Top != nil && p.Bottom != nil {
		return &Error{Kind: KindInvalidArgument, Detail: "'top' and 'bottom' cannot be both specified."}
	}
	return nil
}

// Request is everything a worker needs to render one dialog.
// Fields are keyed by name on the wire so omitted fields take defaults.
type Request struct {
	Function      Function `json:"function"`
	Message       string   `json:"message,omitempty"`
	Title         string   `json:"title,omitempty"`
	Choices       []string `json:"choices,omitempty"`
	Labels        []string `json:"labels,omitempty"`
	InitialValues []string `json:"initial_values,omitempty"`
	Masked        []bool   `json:"masked,omitempty"`
	Icon          *Icon    `json:"icon,omitempty"`
	InitialFolder string   `json:"initial_folder,omitempty"`
	FlagFile      string   `json:"flagfile,omitempty"`
	Placement
}

// Validate checks the request for errors detectable without a worker.
func (r *Request) Validate() error {
	if !r.Function.Valid() {
		return &Error{Kind: KindInvalidArgument, Detail: fmt.Sprintf("unknown function %q", r.Function)}
	}
	if err := r.Placement.Validate(); err != nil {
		return err
	}
	switch r.Function {
	case FuncInputDialog:
		if _, err := r.Fields(); err != nil {
			return err
		}
	case FuncMessage:
		if r.FlagFile == "" {
			return &Error{Kind: KindInvalidArgument, Detail: "message requires a flag file"}
		}
	}
	return nil
}

// Fields returns the normalized input fields of an input_dialog request.
func (r *Request) Fields() ([]Field, error) {
	return Fields(r.Labels, r.InitialValues, r.Masked)
}

// Encode serializes the request into the single argument handed to a worker.
func Encode(r *Request) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s request: %w", r.Function, err)
	}
	return string(data), nil
}

// DecodeRequest parses a worker argument and fills in defaults for every
// field the caller omitted.
func DecodeRequest(payload string) (*Request, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, &Error{Kind: KindInvalidArgument, Detail: "empty request"}
	}
	var r Request
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, &Error{Kind: KindInvalidArgument, Detail: fmt.Sprintf("malformed request: %v", err)}
	}
	r.applyDefaults()
	return &r, nil
}

func (r *Request) applyDefaults() {
	if r.MinWidth <= 0 {
		r.MinWidth = DefaultMinWidth
	}
	if r.MinHeight < 0 {
		r.MinHeight = 0
	}
	if r.Function == FuncButtonDialog {
		if len(r.Choices) == 0 {
			r.Choices = append([]string(nil), DefaultChoices...)
		}
		if r.Message == "" {
			r.Message = DefaultButtonMessage
		}
	}
	if r.InitialFolder == "" && (r.Function == FuncGetFolder || r.Function == FuncGetFilename) {
		r.InitialFolder = DefaultInitialFolder
	}
}
