package util

import (
	"errors"
	"strings"
	"unicode"
)

const maxFileNameLen = 255

// SanitizeFileName removes path separators and rejects traversal patterns,
// control characters and names longer than 255 bytes.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" || s == "." || len(s) > maxFileNameLen {
		return "", errors.New("invalid file name")
	}
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// BaseFileName returns the last element of a client-supplied path, treating
// both / and \ as separators.
func BaseFileName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}
