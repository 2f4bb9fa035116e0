package model

import (
	"strings"
	"testing"
)

// TestPageResultComputeHash tests SHA-256 hash computation.
func TestPageResultComputeHash(t *testing.T) {
	t.Parallel()

	t.Run("computes hash for non-empty markup", func(t *testing.T) {
		t.Parallel()

		p := &PageResult{HTML: "<html><body>hello</body></html>"}
		p.ComputeHash()

		if p.Hash == "" {
			t.Error("expected non-empty hash")
		}
		if len(p.Hash) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(p.Hash))
		}
	})

	t.Run("empty markup yields empty hash", func(t *testing.T) {
		t.Parallel()

		p := &PageResult{}
		p.ComputeHash()

		if p.Hash != "" {
			t.Errorf("expected empty hash, got %q", p.Hash)
		}
	})

	t.Run("same markup yields same hash", func(t *testing.T) {
		t.Parallel()

		a := &PageResult{HTML: "<p>x</p>"}
		b := &PageResult{HTML: "<p>x</p>"}
		a.ComputeHash()
		b.ComputeHash()

		if a.Hash != b.Hash {
			t.Errorf("hashes differ: %q vs %q", a.Hash, b.Hash)
		}
	})
}

// TestPageResultTruncate tests size limit enforcement.
func TestPageResultTruncate(t *testing.T) {
	t.Parallel()

	t.Run("truncates oversized text", func(t *testing.T) {
		t.Parallel()

		p := &PageResult{Text: strings.Repeat("a", MaxTextSize+100)}
		p.TruncateText()

		if len(p.Text) != MaxTextSize {
			t.Errorf("expected %d bytes, got %d", MaxTextSize, len(p.Text))
		}
	})

	t.Run("leaves small text untouched", func(t *testing.T) {
		t.Parallel()

		p := &PageResult{Text: "short"}
		p.TruncateText()

		if p.Text != "short" {
			t.Errorf("text changed: %q", p.Text)
		}
	})

	t.Run("truncates oversized markup", func(t *testing.T) {
		t.Parallel()

		p := &PageResult{HTML: strings.Repeat("b", MaxHTMLSize+1)}
		p.TruncateHTML()

		if len(p.HTML) != MaxHTMLSize {
			t.Errorf("expected %d bytes, got %d", MaxHTMLSize, len(p.HTML))
		}
	})
}

// TestAssetsEmpty tests the Assets emptiness check.
func TestAssetsEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		assets *Assets
		want   bool
	}{
		{name: "nil assets", assets: nil, want: true},
		{name: "zero value", assets: &Assets{}, want: true},
		{name: "css only", assets: &Assets{CSS: []string{"a.css"}}, want: false},
		{name: "js only", assets: &Assets{JS: []string{"a.js"}}, want: false},
		{name: "images only", assets: &Assets{Images: []string{"a.png"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.assets.Empty(); got != tt.want {
				t.Errorf("Empty() = %v, want %v", got, tt.want)
			}
		})
	}
}
