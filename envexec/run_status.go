package envexec

import (
	"fmt"
)

// Outcome defines the terminal classification of one execution
type Outcome int

// Defines execution outcomes
const (
	// not finished yet
	OutcomePending Outcome = iota

	// process exited on its own, regardless of exit status
	OutcomeCompleted

	// process was killed at the wall clock deadline
	OutcomeTimedOut

	// source storage / spawn failed or the caller cancelled
	OutcomeRunnerError
)

var outcomeToString = []string{
	"Pending",
	"Completed",
	"Timed Out",
	"Runner Error",
}

// stringToOutcome map quoted string to corresponding Outcome
var stringToOutcome = make(map[string]Outcome)

func (o Outcome) String() string {
	oi := int(o)
	if oi < 0 || oi >= len(outcomeToString) {
		return outcomeToString[0]
	}
	return outcomeToString[oi]
}

// Terminal reports whether no further transition may happen
func (o Outcome) Terminal() bool {
	return o == OutcomeCompleted || o == OutcomeTimedOut || o == OutcomeRunnerError
}

// MarshalJSON convert outcome into string
func (o Outcome) MarshalJSON() ([]byte, error) {
	return []byte("\"" + o.String() + "\""), nil
}

// UnmarshalJSON convert string into outcome
func (o *Outcome) UnmarshalJSON(b []byte) error {
	v, ok := stringToOutcome[string(b)]
	if !ok {
		return fmt.Errorf("invalid outcome: %s", b)
	}
	*o = v
	return nil
}

// StringToOutcome convert string to Outcome
func StringToOutcome(s string) (Outcome, error) {
	v, ok := stringToOutcome["\""+s+"\""]
	if !ok {
		return 0, fmt.Errorf("invalid string converting: %s", s)
	}
	return v, nil
}

func init() {
	for i, v := range outcomeToString {
		stringToOutcome["\""+v+"\""] = Outcome(i)
	}
}
