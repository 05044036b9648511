// Package idgen generates prefixed, URL-safe IDs for fields, streams and
// assignments using nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// ID prefixes, one per record kind.
const (
	FieldPrefix      = "fld-"
	StreamPrefix     = "str-"
	AssignmentPrefix = "asn-"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 12

// Field returns a new field ID.
func Field() (string, error) { return GenerateWithPrefix(FieldPrefix) }

// Stream returns a new stream ID.
func Stream() (string, error) { return GenerateWithPrefix(StreamPrefix) }

// Assignment returns a new assignment ID.
func Assignment() (string, error) { return GenerateWithPrefix(AssignmentPrefix) }

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
