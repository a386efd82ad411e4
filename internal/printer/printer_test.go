package printer

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Successf("created %d", 2)
	p.Errorf("failed %s", "T-1")
	p.Printf("  plain")

	out := buf.String()
	assert.Contains(t, out, "created 2\n")
	assert.Contains(t, out, "failed T-1\n")
	assert.Contains(t, out, "  plain\n")
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	ctx := NewContext(context.Background(), New(&buf))

	Ctx(ctx).Infof("hello")
	assert.Contains(t, buf.String(), "hello")

	assert.NotNil(t, Ctx(context.Background()))
}
