package render

import (
	"strings"
	"testing"
)

// TestParseHTML tests title, link, and asset extraction.
func TestParseHTML(t *testing.T) {
	t.Parallel()

	t.Run("extracts title", func(t *testing.T) {
		t.Parallel()

		markup := `<html><head><title> Welcome </title></head><body></body></html>`
		result, err := parseHTML("http://example.com/", strings.NewReader(markup))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}

		if result.title != "Welcome" {
			t.Errorf("title = %q, want %q", result.title, "Welcome")
		}
	})

	t.Run("extracts and resolves links with anchor text", func(t *testing.T) {
		t.Parallel()

		markup := `<html><body>
			<a href="/about">About us</a>
			<a href="post">Latest post</a>
			<a href="https://other.org/x">Elsewhere</a>
		</body></html>`

		result, err := parseHTML("http://example.com/blog/", strings.NewReader(markup))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}

		if len(result.links) != 3 {
			t.Fatalf("got %d links, want 3", len(result.links))
		}

		want := []struct{ url, text string }{
			{"http://example.com/about", "About us"},
			{"http://example.com/blog/post", "Latest post"},
			{"https://other.org/x", "Elsewhere"},
		}
		for i, w := range want {
			if result.links[i].URL != w.url {
				t.Errorf("link %d url = %q, want %q", i, result.links[i].URL, w.url)
			}
			if result.links[i].Text != w.text {
				t.Errorf("link %d text = %q, want %q", i, result.links[i].Text, w.text)
			}
		}
	})

	t.Run("drops pseudo links", func(t *testing.T) {
		t.Parallel()

		markup := `<html><body>
			<a href="javascript:void(0)">js</a>
			<a href="mailto:x@example.com">mail</a>
			<a href="tel:+123">phone</a>
			<a href="#">self</a>
			<a href="/real">real</a>
		</body></html>`

		result, err := parseHTML("http://example.com/", strings.NewReader(markup))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}

		if len(result.links) != 1 {
			t.Fatalf("got %d links, want 1: %+v", len(result.links), result.links)
		}
		if result.links[0].URL != "http://example.com/real" {
			t.Errorf("link = %q", result.links[0].URL)
		}
	})

	t.Run("extracts assets by kind", func(t *testing.T) {
		t.Parallel()

		markup := `<html><head>
			<link rel="stylesheet" href="/css/site.css">
			<link rel="icon" href="/favicon.ico">
			<script src="app.js"></script>
		</head><body>
			<img src="/img/logo.png" alt="logo">
		</body></html>`

		result, err := parseHTML("http://example.com/", strings.NewReader(markup))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}

		if len(result.assets.CSS) != 1 || result.assets.CSS[0] != "http://example.com/css/site.css" {
			t.Errorf("css = %v", result.assets.CSS)
		}
		if len(result.assets.JS) != 1 || result.assets.JS[0] != "http://example.com/app.js" {
			t.Errorf("js = %v", result.assets.JS)
		}
		if len(result.assets.Images) != 1 || result.assets.Images[0] != "http://example.com/img/logo.png" {
			t.Errorf("images = %v", result.assets.Images)
		}
	})

	t.Run("tolerates malformed markup", func(t *testing.T) {
		t.Parallel()

		markup := `<html><body><a href="/a">unclosed<p><a href="/b">second`
		result, err := parseHTML("http://example.com/", strings.NewReader(markup))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if len(result.links) != 2 {
			t.Errorf("got %d links, want 2", len(result.links))
		}
	})
}

// TestExtractText tests rendered text extraction.
func TestExtractText(t *testing.T) {
	t.Parallel()

	t.Run("removes scripts and styles", func(t *testing.T) {
		t.Parallel()

		markup := `<html><head><style>p { color: red }</style></head><body>
			<script>alert("hi")</script>
			<p>Visible   text</p>
			<noscript>fallback</noscript>
		</body></html>`

		text := extractText(markup)

		if strings.Contains(text, "alert") {
			t.Errorf("script content leaked into text: %q", text)
		}
		if strings.Contains(text, "color") {
			t.Errorf("style content leaked into text: %q", text)
		}
		if strings.Contains(text, "fallback") {
			t.Errorf("noscript content leaked into text: %q", text)
		}
		if !strings.Contains(text, "Visible text") {
			t.Errorf("expected collapsed visible text, got %q", text)
		}
	})

	t.Run("empty body yields empty text", func(t *testing.T) {
		t.Parallel()

		if text := extractText(`<html><body></body></html>`); text != "" {
			t.Errorf("got %q, want empty", text)
		}
	})
}
