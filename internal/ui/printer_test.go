package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainPrinterOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Header("Similar tags")
	p.Match("golang", 0.912, 7)
	p.Merge("golang", "go-lang", 0.956, 7, 2)
	p.KeyValue("tags", "42")
	p.Success("done")

	out := buf.String()
	assert.Contains(t, out, "Similar tags")
	assert.Contains(t, out, "golang")
	assert.Contains(t, out, "0.912")
	assert.Contains(t, out, "(7 notes)")
	assert.Contains(t, out, "go-lang -> golang")
	assert.Contains(t, out, "tags:")
	assert.Contains(t, out, "done")
	// Plain mode carries no escape sequences
	assert.NotContains(t, out, "\x1b[")
}

func TestPrinterQuietSuppressesAllButErrors(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)
	p.SetQuiet(true)

	p.Header("hidden")
	p.Line("hidden too")
	p.Warning("hidden warning")
	p.Error("still visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "still visible")
}

func TestPrinterWarningPrefix(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Warning("embedder unavailable, using static fallback")
	assert.True(t, strings.HasPrefix(buf.String(), "warning: "))
}

func TestIsTTYNonFile(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}
