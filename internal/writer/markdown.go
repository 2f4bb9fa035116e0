package writer

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/nabetama/webgrab/internal/model"
)

// MarkdownWriter persists each crawled page as a Markdown file under
// <outputDir>/<domain>/. The file carries YAML frontmatter with the
// page's provenance, the markup converted to Markdown, and listings of
// the discovered links and collected assets.
type MarkdownWriter struct {
	// outputDir is the root directory for all mirrored sites.
	outputDir string

	// conv converts raw markup to Markdown.
	conv *converter.Converter

	// saveHTML additionally writes the raw markup as an .html sidecar.
	saveHTML bool
}

// MarkdownOption configures a MarkdownWriter.
type MarkdownOption func(*MarkdownWriter)

// WithSaveHTML enables raw-markup sidecar files next to each .md file.
func WithSaveHTML(save bool) MarkdownOption {
	return func(w *MarkdownWriter) {
		w.saveHTML = save
	}
}

// NewMarkdownWriter creates a writer rooted at outputDir.
func NewMarkdownWriter(outputDir string, opts ...MarkdownOption) *MarkdownWriter {
	w := &MarkdownWriter{
		outputDir: outputDir,
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Save writes one page to disk. The target directory is created on
// first use. Save never retries; the traversal controller logs failures
// and moves on.
func (w *MarkdownWriter) Save(ctx context.Context, page *model.PageResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Join(w.outputDir, domainDir(page.URL))
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	name := slug(page.URL)

	body, err := w.render(page)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, name+".md"), []byte(body), 0640); err != nil {
		return fmt.Errorf("write page file: %w", err)
	}

	if w.saveHTML {
		if err := os.WriteFile(filepath.Join(dir, name+".html"), []byte(page.HTML), 0640); err != nil {
			return fmt.Errorf("write html sidecar: %w", err)
		}
	}

	return nil
}

// render assembles the Markdown document for one page.
func (w *MarkdownWriter) render(page *model.PageResult) (string, error) {
	var sb strings.Builder

	// Frontmatter keeps provenance machine-readable.
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "url: %q\n", page.URL)
	fmt.Fprintf(&sb, "title: %q\n", page.Title)
	fmt.Fprintf(&sb, "fetched_at: %s\n", page.FetchedAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&sb, "hash: %s\n", page.Hash)
	fmt.Fprintf(&sb, "depth: %d\n", page.Depth)
	sb.WriteString("---\n\n")

	if page.Title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", page.Title)
	}

	md, err := w.conv.ConvertString(page.HTML)
	if err != nil {
		// Conversion failures fall back to the extracted text so the
		// page content is never lost entirely.
		md = page.Text
	}
	sb.WriteString(strings.TrimSpace(md))
	sb.WriteString("\n")

	if len(page.Links) > 0 {
		sb.WriteString("\n## Links\n\n")
		for _, link := range page.Links {
			text := link.Text
			if text == "" {
				text = link.URL
			}
			marker := ""
			if link.External {
				marker = " (external)"
			}
			fmt.Fprintf(&sb, "- [%s](%s)%s\n", text, link.URL, marker)
		}
	}

	if !page.Assets.Empty() {
		sb.WriteString("\n## Assets\n\n")
		writeAssetList(&sb, "Stylesheets", page.Assets.CSS)
		writeAssetList(&sb, "Scripts", page.Assets.JS)
		writeAssetList(&sb, "Images", page.Assets.Images)
	}

	return sb.String(), nil
}

// writeAssetList appends one asset category section.
func writeAssetList(sb *strings.Builder, heading string, urls []string) {
	if len(urls) == 0 {
		return
	}
	fmt.Fprintf(sb, "### %s\n\n", heading)
	for _, u := range urls {
		fmt.Fprintf(sb, "- %s\n", u)
	}
	sb.WriteString("\n")
}

// domainDir returns the per-site directory name for a page URL.
func domainDir(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return u.Hostname()
}

// slugReplacer maps characters that are unsafe in file names.
var slugReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"?", "-",
	"&", "-",
	"=", "-",
	"#", "-",
	"%", "-",
	" ", "-",
)

// slug derives a file name from a page URL. The root path becomes
// "index"; query parameters are folded into the name so distinct pages
// don't collide.
func slug(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "page"
	}

	s := strings.Trim(u.Path, "/")
	if u.RawQuery != "" {
		s += "-" + u.RawQuery
	}

	s = slugReplacer.Replace(s)
	s = strings.Trim(s, "-")

	if s == "" {
		return "index"
	}

	// Keep names comfortably inside filesystem limits.
	const maxSlugLen = 150
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}

	return s
}
