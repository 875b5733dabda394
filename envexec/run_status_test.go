package envexec

import (
	"encoding/json"
	"testing"
	"time"
)

func TestOutcomeJSON(t *testing.T) {
	for _, o := range []Outcome{OutcomePending, OutcomeCompleted, OutcomeTimedOut, OutcomeRunnerError} {
		b, err := json.Marshal(o)
		if err != nil {
			t.Fatal(err)
		}
		var got Outcome
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatal(err)
		}
		if got != o {
			t.Fatalf("round trip %v: got %v", o, got)
		}
	}
	var o Outcome
	if err := json.Unmarshal([]byte(`"Exploded"`), &o); err == nil {
		t.Fatal("expected error for unknown outcome")
	}
}

func TestOutcomeTerminal(t *testing.T) {
	if OutcomePending.Terminal() {
		t.Fatal("pending is not terminal")
	}
	if !OutcomeTimedOut.Terminal() || !OutcomeCompleted.Terminal() || !OutcomeRunnerError.Terminal() {
		t.Fatal("expected terminal outcomes")
	}
	if s, err := StringToOutcome("Timed Out"); err != nil || s != OutcomeTimedOut {
		t.Fatalf("unexpected %v %v", s, err)
	}
}

func TestResultJSONOmitsAbsentMeasurements(t *testing.T) {
	b, err := json.Marshal(timedOutResult())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"outcome":"Timed Out","stdout":"","stderr":"Execution timed out."}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}

	d, m := 1500*time.Millisecond, 2.5
	s := Result{Outcome: OutcomeCompleted, Runtime: &d, MemoryMB: &m}.String()
	if s == "" {
		t.Fatal("empty string")
	}
}
