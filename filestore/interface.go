package filestore

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"os"
	"strings"
	"time"
)

const randIDLength = 12

var errUniqueIDNotGenerated = errors.New("Unique id does not exists after tried 50 times")

var idEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// FileStore defines the storage namespace for ephemeral source files
type FileStore interface {
	New(suffix string) (*os.File, error)     // New creates an empty file with a collision free name
	Remove(path string) error                // Remove deletes a file created by New
	List() ([]string, error)                 // List return all file paths in the namespace
	Sweep(maxAge time.Duration) (int, error) // Sweep removes files older than maxAge
	Dir() string                             // Dir is the directory holding the files
}

func generateID() (string, error) {
	b := make([]byte, randIDLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	// lower case keeps names valid module names for the interpreter
	return "src_" + strings.ToLower(idEncoding.EncodeToString(b)), nil
}
