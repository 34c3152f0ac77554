package output

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func TestRenderer_Mode(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{"auto on terminal", ModeAuto, true, ModeTable},
		{"auto piped", ModeAuto, false, ModeJSON},
		{"empty is auto", "", false, ModeJSON},
		{"explicit yaml", ModeYAML, true, ModeYAML},
		{"explicit table piped", ModeTable, false, ModeTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(io.Discard, io.Discard, tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.Mode())
		})
	}
}

func TestRenderer_Render(t *testing.T) {
	v := payload{Name: "sales", Count: 3}
	tableFn := func(w io.Writer) error {
		Table(w, "Runs", table.Row{"Name", "Count"}, []table.Row{{v.Name, v.Count}})
		return nil
	}

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		r := NewRendererWithTTY(&out, io.Discard, false, ModeJSON)
		require.NoError(t, r.Render(v, tableFn))
		assert.JSONEq(t, `{"name":"sales","count":3}`, out.String())
	})

	t.Run("yaml", func(t *testing.T) {
		var out bytes.Buffer
		r := NewRendererWithTTY(&out, io.Discard, false, ModeYAML)
		require.NoError(t, r.Render(v, tableFn))
		assert.Equal(t, "name: sales\ncount: 3\n", out.String())
	})

	t.Run("table", func(t *testing.T) {
		var out bytes.Buffer
		r := NewRendererWithTTY(&out, io.Discard, true, ModeAuto)
		require.NoError(t, r.Render(v, tableFn))
		assert.Contains(t, out.String(), "Runs")
		assert.Contains(t, out.String(), "sales")
	})
}

func TestRenderer_WithMode(t *testing.T) {
	r := NewRendererWithTTY(io.Discard, io.Discard, true, ModeAuto)
	assert.Same(t, r, r.WithMode(""))
	assert.Equal(t, ModeYAML, r.WithMode(ModeYAML).Mode())
}

func TestContext(t *testing.T) {
	r := NewRendererWithTTY(io.Discard, io.Discard, false, ModeJSON)
	ctx := WithRenderer(context.Background(), r)
	assert.Same(t, r, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestErrorf(t *testing.T) {
	var errOut bytes.Buffer
	r := NewRendererWithTTY(io.Discard, &errOut, false, ModeJSON)
	r.Errorf("stage %s failed", "copy")
	assert.Equal(t, "stage copy failed\n", errOut.String())
}
