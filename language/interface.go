package language

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/coderun/go-coderun/envexec"
)

// ErrMalformedInput is returned when a test input cannot be embedded into a
// source unit
var ErrMalformedInput = errors.New("malformed input")

// Language defines how a candidate program is turned into a source unit that
// evaluates one test input and prints its canonical form
type Language interface {
	Name() string         // Name of the language
	SourceSuffix() string // SourceSuffix is the file name suffix the interpreter expects
	Epilogue(input string) (string, error)
}

// BuildUnit appends the epilogue of input to code
func BuildUnit(l Language, code, input string) (envexec.SourceUnit, error) {
	e, err := l.Epilogue(input)
	if err != nil {
		return envexec.SourceUnit{}, err
	}
	return envexec.NewSourceUnit(code, e), nil
}

// ValidateInput rejects inputs that are empty or could not round trip
// through a source file
func ValidateInput(input string) error {
	switch {
	case strings.TrimSpace(input) == "":
		return errors.Join(ErrMalformedInput, errors.New("empty input"))
	case strings.IndexByte(input, 0) >= 0:
		return errors.Join(ErrMalformedInput, errors.New("input contains NUL byte"))
	case !utf8.ValidString(input):
		return errors.Join(ErrMalformedInput, errors.New("input is not valid UTF-8"))
	}
	return nil
}
