package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// CleanName trims name, collapses internal whitespace and composes it to NFC.
func CleanName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

// NameKey is the normalized name two references of kind collide on. Roles
// match exactly after whitespace cleanup; every other kind is case-folded.
func NameKey(kind Kind, name string) string {
	clean := CleanName(name)
	if kind == KindRole {
		return clean
	}
	return folder.String(clean)
}

// CreatorKey is the normalized name two creators collide on.
func CreatorKey(name string) string {
	return folder.String(CleanName(name))
}
