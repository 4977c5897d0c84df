package protocol

import "fmt"

// Field is one labeled text entry of an input dialog.
type Field struct {
	Label   string
	Initial string
	Masked  bool
}

// Fields zips the parallel label/initial value/masked arrays into fields.
//
// The field count is the longest array (at least one). An empty array is
// filled with defaults; a non-empty array of any other length is a length
// mismatch.
func Fields(labels, initialValues []string, masked []bool) ([]Field, error) {
	n := max(1, len(labels), len(initialValues), len(masked))

	if (len(labels) != 0 && len(labels) != n) ||
		(len(initialValues) != 0 && len(initialValues) != n) ||
		(len(masked) != 0 && len(masked) != n) {
		return nil, &Error{
			Kind: KindLengthMismatch,
			Detail: fmt.Sprintf("Length mismatch between labels (%d), initial_values (%d) and masked (%d).",
				len(labels), len(initialValues), len(masked)),
		}
	}

	fields := make([]Field, n)
	for i := range fields {
		if len(labels) > 0 {
			fields[i].Label = labels[i]
		}
		if len(initialValues) > 0 {
			fields[i].Initial = initialValues[i]
		}
		if len(masked) > 0 {
			fields[i].Masked = masked[i]
		}
	}
	return fields, nil
}
