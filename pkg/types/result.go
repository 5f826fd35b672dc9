// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SubjectFailure records one subject whose transfer failed.
type SubjectFailure struct {
	// Subject is the subject identifier as given on input.
	Subject string `json:"subject" yaml:"subject"`

	// Dest is the per-subject destination directory.
	Dest string `json:"dest" yaml:"dest"`

	// Err is the error returned by the transfer mechanism.
	Err error `json:"-" yaml:"-"`
}

// BatchResult holds the outcome of a batch run.
type BatchResult struct {
	// Root is the absolute destination root.
	Root string `json:"root" yaml:"root"`

	Attempted int              `json:"attempted" yaml:"attempted"`
	Failures  []SubjectFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Failed returns the number of subjects that failed.
func (r BatchResult) Failed() int {
	return len(r.Failures)
}

// Succeeded returns the number of subjects fetched without error.
func (r BatchResult) Succeeded() int {
	return r.Attempted - len(r.Failures)
}

// HasFailures reports whether any subject failed.
func (r BatchResult) HasFailures() bool {
	return len(r.Failures) > 0
}
