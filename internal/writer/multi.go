package writer

import (
	"context"
	"errors"

	"github.com/nabetama/webgrab/internal/model"
)

// Saver is the content writer capability consumed by the traversal
// controller: accept one page's extracted content and persist it.
type Saver interface {
	// Save persists a single page. Failures are logged by the caller
	// and never abort the crawl.
	Save(ctx context.Context, page *model.PageResult) error
}

// Multi fans one Save call out to several writers, so a page can land
// in the markdown mirror and the crawl database in the same cycle.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Saver interface writes pages, not
// raw bytes. Every writer is attempted even when an earlier one fails;
// the errors are joined so none is silently lost.
type Multi struct {
	writers []Saver
}

// NewMulti creates a Saver that writes to all provided writers.
func NewMulti(writers ...Saver) *Multi {
	return &Multi{writers: writers}
}

// Save persists the page with every configured writer.
func (m *Multi) Save(ctx context.Context, page *model.PageResult) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Save(ctx, page); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
