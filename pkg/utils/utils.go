package utils

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// NoteIDAlphabet excludes look-alike glyphs (0/O, 1/l/I, o)
const NoteIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"

// NoteIDLength is the length of a note ID
const NoteIDLength = 8

// GenerateNoteID returns a random note ID drawn from NoteIDAlphabet
func GenerateNoteID() (string, error) {
	var b strings.Builder
	b.Grow(NoteIDLength)
	max := big.NewInt(int64(len(NoteIDAlphabet)))
	for i := 0; i < NoteIDLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(NoteIDAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// IsValidNoteID checks length and alphabet of a note ID
func IsValidNoteID(id string) bool {
	if len(id) != NoteIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(NoteIDAlphabet, id[i]) < 0 {
			return false
		}
	}
	return true
}

// IsValidNoteFilename checks if the filename is "<note id>.json"
func IsValidNoteFilename(filename string) bool {
	id, ok := strings.CutSuffix(filename, ".json")
	return ok && IsValidNoteID(id)
}

// GenerateSessionID generates a secure random session ID
func GenerateSessionID() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		// If random read fails, return an empty string for safety
		return ""
	}
	return base64.URLEncoding.EncodeToString(bytes)
}

// GenerateVisitorID returns an opaque id for wizard and viewer cookies
func GenerateVisitorID() string {
	return uuid.NewString()
}

// IsValidVisitorID reports whether s is a well-formed visitor id
func IsValidVisitorID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
