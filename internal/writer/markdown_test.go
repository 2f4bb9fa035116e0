package writer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nabetama/webgrab/internal/model"
)

func testPage() *model.PageResult {
	return &model.PageResult{
		URL:   "http://example.com/blog/post",
		Title: "A Post",
		Text:  "Hello world",
		HTML:  "<html><head><title>A Post</title></head><body><p>Hello <b>world</b></p></body></html>",
		Links: []model.Link{
			{URL: "http://example.com/about", Text: "About"},
			{URL: "http://other.org/x", Text: "Other", External: true},
		},
		Assets: &model.Assets{
			CSS:    []string{"http://example.com/site.css"},
			Images: []string{"http://example.com/logo.png"},
		},
		StatusCode: 200,
		Hash:       "abc123",
		FetchedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Depth:      1,
	}
}

// TestMarkdownWriterSave tests page persistence layout and content.
func TestMarkdownWriterSave(t *testing.T) {
	t.Parallel()

	t.Run("writes markdown under domain directory", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		w := NewMarkdownWriter(dir)

		if err := w.Save(context.Background(), testPage()); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		path := filepath.Join(dir, "example.com", "blog-post.md")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("expected file at %s: %v", path, err)
		}

		content := string(data)
		for _, want := range []string{
			`url: "http://example.com/blog/post"`,
			"# A Post",
			"Hello **world**",
			"[About](http://example.com/about)",
			"[Other](http://other.org/x) (external)",
			"## Assets",
			"http://example.com/site.css",
		} {
			if !strings.Contains(content, want) {
				t.Errorf("output missing %q:\n%s", want, content)
			}
		}
	})

	t.Run("root url becomes index", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		w := NewMarkdownWriter(dir)

		page := testPage()
		page.URL = "http://example.com/"
		if err := w.Save(context.Background(), page); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		if _, err := os.Stat(filepath.Join(dir, "example.com", "index.md")); err != nil {
			t.Errorf("expected index.md: %v", err)
		}
	})

	t.Run("html sidecar when enabled", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		w := NewMarkdownWriter(dir, WithSaveHTML(true))

		if err := w.Save(context.Background(), testPage()); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(dir, "example.com", "blog-post.html"))
		if err != nil {
			t.Fatalf("expected html sidecar: %v", err)
		}
		if !strings.Contains(string(data), "<title>A Post</title>") {
			t.Error("sidecar does not contain raw markup")
		}
	})

	t.Run("no asset section without assets", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		w := NewMarkdownWriter(dir)

		page := testPage()
		page.Assets = nil
		if err := w.Save(context.Background(), page); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		data, _ := os.ReadFile(filepath.Join(dir, "example.com", "blog-post.md"))
		if strings.Contains(string(data), "## Assets") {
			t.Error("asset section written for page without assets")
		}
	})
}

// TestSlug tests file name derivation.
func TestSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "root", in: "http://example.com/", want: "index"},
		{name: "simple path", in: "http://example.com/about", want: "about"},
		{name: "nested path", in: "http://example.com/a/b/c", want: "a-b-c"},
		{name: "query folded in", in: "http://example.com/p?id=7", want: "p-id-7"},
		{name: "trailing slash", in: "http://example.com/docs/", want: "docs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := slug(tt.in); got != tt.want {
				t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// failSaver always fails; used to test Multi error joining.
type failSaver struct{ err error }

func (f *failSaver) Save(context.Context, *model.PageResult) error { return f.err }

// countSaver records how many pages it received.
type countSaver struct{ n int }

func (c *countSaver) Save(context.Context, *model.PageResult) error {
	c.n++
	return nil
}

// TestMulti tests fan-out to multiple writers.
func TestMulti(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		a, b := &countSaver{}, &countSaver{}
		m := NewMulti(a, b)

		if err := m.Save(context.Background(), testPage()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if a.n != 1 || b.n != 1 {
			t.Errorf("saver counts = %d, %d; want 1, 1", a.n, b.n)
		}
	})

	t.Run("continues past failing writer", func(t *testing.T) {
		t.Parallel()

		sentinel := errors.New("disk full")
		c := &countSaver{}
		m := NewMulti(&failSaver{err: sentinel}, c)

		err := m.Save(context.Background(), testPage())
		if !errors.Is(err, sentinel) {
			t.Errorf("expected joined error containing sentinel, got %v", err)
		}
		if c.n != 1 {
			t.Errorf("second writer not reached: n = %d", c.n)
		}
	})
}
