// Package room holds the pieces shared by both game room implementations:
// the short shareable room code and the structural error taxonomy.
//
// The error split is deliberate: structural problems (missing room, wrong
// secret, both seats taken) surface to the caller, while gameplay-rule
// violations inside a mutator are silently absorbed and leave the room
// unchanged.
package room

import (
	"crypto/rand"
	"errors"
)

var (
	// ErrNotFound indicates the mutator targeted a room code nobody created.
	ErrNotFound = errors.New("room not found")
	// ErrFull indicates both seats are occupied by other identities.
	ErrFull = errors.New("room already has two players")
	// ErrBadSecret indicates the join secret did not match the room's.
	ErrBadSecret = errors.New("wrong room secret")
)

// codeAlphabet skips 0/O and 1/I so codes survive being read aloud.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// CodeLength is the length of a generated room code. Collisions are
// accepted at this scale, not guarded; Create still refuses to overwrite.
const CodeLength = 5

// NewCode returns a fresh human-shareable room code.
func NewCode() string {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failure is not recoverable
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
