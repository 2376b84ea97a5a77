package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type outputSample struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

func TestOutput(t *testing.T) {
	sample := outputSample{Name: "card0", Value: 48000}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Output(sample, OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
			t.Fatal(err)
		}
		var got outputSample
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got != sample {
			t.Errorf("got=%+v", got)
		}
		if !strings.Contains(buf.String(), "\n  \"name\"") {
			t.Errorf("default indent missing: %s", buf.String())
		}
	})

	t.Run("yaml default", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Output(sample, OutputOptions{Writer: &buf}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "name: card0") || !strings.Contains(buf.String(), "value: 48000") {
			t.Errorf("got=%s", buf.String())
		}
	})

	t.Run("raw", func(t *testing.T) {
		var buf bytes.Buffer
		Output("plain\n", OutputOptions{Format: FormatRaw, Writer: &buf})
		Output([]byte{0x01}, OutputOptions{Format: FormatRaw, Writer: &buf})
		if got := buf.String(); got != "plain\n\x01" {
			t.Errorf("got=%q", got)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if err := Output(sample, OutputOptions{Format: "table", Writer: &bytes.Buffer{}}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.json")
		if err := Output(sample, OutputOptions{Format: FormatJSON, File: path}); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `"card0"`) {
			t.Errorf("got=%s", data)
		}
	})
}
