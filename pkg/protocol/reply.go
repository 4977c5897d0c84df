package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Cancelled is the value a blocking dialog reports when the user closed
// the window without confirming.
const Cancelled = -1

// Reply is the single result a worker emits for a blocking request.
type Reply struct {
	Kind   Kind
	Value  json.RawMessage
	Detail string
}

// OK builds a successful reply carrying v.
func OK(v any) (Reply, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to encode reply value: %w", err)
	}
	return Reply{Kind: KindOK, Value: data}, nil
}

// Fail builds a failure reply.
func Fail(kind Kind, detail string) Reply {
	return Reply{Kind: kind, Detail: detail}
}

// FailWith builds a failure reply from err, keeping its kind when err is a
// protocol error.
func FailWith(err error, fallback Kind) Reply {
	if perr, ok := err.(*Error); ok {
		return Fail(perr.Kind, perr.Detail)
	}
	return Fail(fallback, err.Error())
}

// Failed reports whether the reply is a failure.
func (r Reply) Failed() bool {
	return r.Kind != KindOK
}

// Err returns the failure as an error, or nil on success.
func (r Reply) Err() error {
	if !r.Failed() {
		return nil
	}
	return &Error{Kind: r.Kind, Detail: r.Detail}
}

// EncodeReply renders the explicit two-element form: ["", value] on
// success, [kind, detail] on failure.
func EncodeReply(r Reply) ([]byte, error) {
	var pair [2]json.RawMessage
	if r.Failed() {
		kind, _ := json.Marshal(string(r.Kind))
		detail, _ := json.Marshal(r.Detail)
		pair = [2]json.RawMessage{kind, detail}
	} else {
		value := r.Value
		if len(value) == 0 {
			value = json.RawMessage(`""`)
		}
		pair = [2]json.RawMessage{json.RawMessage(`""`), value}
	}
	return json.Marshal(pair)
}

// DecodeReply parses worker output. A two-element array whose first
// element is "" or a known failure kind is the explicit form; anything else
// that is valid JSON, including a bare pair of strings such as ["1", "2"],
// is a bare success value. Empty or unparsable output is ErrMalformedReply,
// never a cancellation.
func DecodeReply(data []byte) (Reply, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Reply{}, fmt.Errorf("%w: empty output", ErrMalformedReply)
	}
	if !json.Valid(data) {
		return Reply{}, fmt.Errorf("%w: %q", ErrMalformedReply, truncate(data, 120))
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err == nil && len(pair) == 2 {
		var kind string
		if err := json.Unmarshal(pair[0], &kind); err == nil {
			if kind == "" {
				return Reply{Kind: KindOK, Value: pair[1]}, nil
			}
			if k, ok := knownKind(kind); ok {
				var detail string
				if err := json.Unmarshal(pair[1], &detail); err != nil {
					detail = string(pair[1])
				}
				return Reply{Kind: k, Detail: detail}, nil
			}
		}
	}
	return Reply{Kind: KindOK, Value: json.RawMessage(data)}, nil
}

// Int decodes a button index.
func (r Reply) Int() (int, error) {
	var n int
	if r.isNull() {
		return 0, fmt.Errorf("%w: expected integer, got null", ErrMalformedReply)
	}
	if err := json.Unmarshal(r.Value, &n); err != nil {
		return 0, fmt.Errorf("%w: expected integer, got %s", ErrMalformedReply, r.Value)
	}
	return n, nil
}

// String decodes a text or path value.
func (r Reply) String() (string, error) {
	var s string
	if r.isNull() {
		return "", fmt.Errorf("%w: expected string, got null", ErrMalformedReply)
	}
	if err := json.Unmarshal(r.Value, &s); err != nil {
		return "", fmt.Errorf("%w: expected string, got %s", ErrMalformedReply, r.Value)
	}
	return s, nil
}

// Input decodes an input dialog value: a bare string for one field, a list
// of strings for several, or the cancellation sentinel.
func (r Reply) Input() (values []string, cancelled bool, err error) {
	if r.isNull() {
		return nil, false, fmt.Errorf("%w: expected text or list of text, got null", ErrMalformedReply)
	}
	var n int
	if json.Unmarshal(r.Value, &n) == nil {
		if n == Cancelled {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("%w: unexpected integer %d", ErrMalformedReply, n)
	}
	var s string
	if json.Unmarshal(r.Value, &s) == nil {
		return []string{s}, false, nil
	}
	if err := json.Unmarshal(r.Value, &values); err != nil {
		return nil, false, fmt.Errorf("%w: expected text or list of text, got %s", ErrMalformedReply, r.Value)
	}
	if values == nil {
		values = []string{}
	}
	return values, false, nil
}

func (r Reply) isNull() bool {
	v := bytes.TrimSpace(r.Value)
	return len(v) == 0 || bytes.Equal(v, []byte("null"))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
