package domain

import (
	"strings"
	"unicode/utf8"
)

// MaxTitleLength is the longest accepted title, in characters.
const MaxTitleLength = 255

// Title is a non-blank todo title of at most MaxTitleLength characters,
// stored exactly as given.
type Title struct {
	value string
}

// NewTitle validates s without altering it.
func NewTitle(s string) (Title, error) {
	switch {
	case strings.TrimSpace(s) == "":
		return Title{}, ErrTitleRequired
	case utf8.RuneCountInString(s) > MaxTitleLength:
		return Title{}, ErrTitleTooLong
	}
	return Title{value: s}, nil
}

// String returns the title value.
func (t Title) String() string {
	return t.value
}

// Contents is the validated, non-blank body of a todo.
type Contents struct {
	value string
}

// NewContents creates Contents, rejecting blank input.
// Surrounding whitespace is kept; only an all-blank body is rejected.
func NewContents(s string) (Contents, error) {
	if strings.TrimSpace(s) == "" {
		return Contents{}, ErrContentsRequired
	}
	return Contents{value: s}, nil
}

// String returns the contents value.
func (c Contents) String() string {
	return c.value
}
