package cli

import (
	"slices"
	"testing"
)

func TestLogWriter(t *testing.T) {
	w := NewLogWriter(3)
	w.Write([]byte("one\ntwo\n"))
	w.Write([]byte("three\n"))
	w.Write([]byte("four"))
	w.Write([]byte("\n"))

	if got := w.Lines(); !slices.Equal(got, []string{"two", "three", "four"}) {
		t.Errorf("Lines got=%q", got)
	}
	if got := <-w.Channel(); got != "one" {
		t.Errorf("first notification got=%q", got)
	}
}
