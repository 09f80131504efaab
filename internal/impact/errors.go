package impact

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidBands is returned by NewBandScheme for an unusable band table
var ErrInvalidBands = errors.New("invalid band table")

// MappingError reports a malformed or incomplete comparison declaration.
// It is raised before any merge work begins.
type MappingError struct {
	Item   string `json:"item,omitempty"`
	Stage  int    `json:"stage,omitempty"`
	Reason string `json:"reason"`
}

// Error implements the error interface
func (e *MappingError) Error() string {
	var b strings.Builder
	b.WriteString("mapping")
	if e.Item != "" {
		fmt.Fprintf(&b, " item %q", e.Item)
	}
	if e.Stage != 0 {
		fmt.Fprintf(&b, " stage %d", e.Stage)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// MergeError reports a source that cannot be merged. No partial dataset is
// produced when one is returned.
type MergeError struct {
	Source string `json:"source,omitempty"`
	Item   string `json:"item,omitempty"`
	Stage  int    `json:"stage,omitempty"`
	Column string `json:"column,omitempty"`
	Reason string `json:"reason"`
}

// Error implements the error interface
func (e *MergeError) Error() string {
	var b strings.Builder
	b.WriteString("merge")
	if e.Source != "" {
		fmt.Fprintf(&b, " source %q", e.Source)
	}
	if e.Item != "" {
		fmt.Fprintf(&b, " item %q", e.Item)
	}
	if e.Stage != 0 {
		fmt.Fprintf(&b, " stage %d", e.Stage)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %q", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// QueryError reports an invalid breakdown or filter request
type QueryError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error implements the error interface
func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s: %s", e.Field, e.Reason)
}

// IsMappingError reports whether err wraps a MappingError
func IsMappingError(err error) bool {
	var me *MappingError
	return errors.As(err, &me)
}

// IsMergeError reports whether err wraps a MergeError
func IsMergeError(err error) bool {
	var me *MergeError
	return errors.As(err, &me)
}

// IsQueryError reports whether err wraps a QueryError
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
