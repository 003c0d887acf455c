package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NormalizeEmail is the canonical stored form (lower-cased).
func NormalizeEmail(e string) string { return strings.ToLower(e) }

// SameEmail compares identifiers case-insensitively.
func SameEmail(a, b string) bool { return NormalizeEmail(a) == NormalizeEmail(b) }

func NewOpID() string { return uuid.NewString() }
