package trace

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStop_BeforeStart(t *testing.T) {
	tr := New(nil)
	if _, err := tr.Stop(); err != ErrNotRecording {
		t.Fatalf("expected ErrNotRecording, got %v", err)
	}
	if tr.State() != StateIdle {
		t.Errorf("failed Stop must not change state, got %s", tr.State())
	}
}

func TestDedup(t *testing.T) {
	got := dedup([]string{"/b", "/a", "/b", "/a", "/c"})
	want := []string{"/a", "/b", "/c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:      "idle",
		StateRecording: "recording",
		StateStopped:   "stopped",
		State(99):      "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
