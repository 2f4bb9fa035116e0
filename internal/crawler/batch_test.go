package crawler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nabetama/webgrab/internal/model"
)

func batchFixture() (*fakeRenderer, func() *Crawler) {
	renderer := newFakeRenderer()
	renderer.addPage("http://one.example/", "One")
	renderer.addPage("http://two.example/", "Two")
	renderer.addPage("http://three.example/", "Three")

	factory := func() *Crawler {
		return New(renderer, &fakeWriter{}, WithDelay(0))
	}
	return renderer, factory
}

func TestBatchRunnerRun(t *testing.T) {
	t.Parallel()

	_, factory := batchFixture()
	br := NewBatchRunner(factory, WithConcurrency(2))

	seeds := []string{
		"http://one.example",
		"http://two.example",
		"http://three.example",
	}

	reports, err := br.Run(context.Background(), seeds)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(reports) != 3 {
		t.Fatalf("len(reports) = %d, want 3", len(reports))
	}
	for i, r := range reports {
		if r == nil {
			t.Fatalf("reports[%d] is nil", i)
		}
		if r.State != model.StateCompleted {
			t.Errorf("reports[%d].State = %q, want %q", i, r.State, model.StateCompleted)
		}
	}

	// Reports stay in seed order.
	if reports[0].BaseDomain != "one.example" {
		t.Errorf("reports[0].BaseDomain = %q, want one.example", reports[0].BaseDomain)
	}
	if reports[2].BaseDomain != "three.example" {
		t.Errorf("reports[2].BaseDomain = %q, want three.example", reports[2].BaseDomain)
	}
}

func TestBatchRunnerFailedSeedDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	_, factory := batchFixture()
	br := NewBatchRunner(factory)

	seeds := []string{
		"not-a-url",
		"http://two.example",
	}

	reports, err := br.Run(context.Background(), seeds)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if reports[0] != nil {
		t.Errorf("reports[0] = %+v, want nil for the failed seed", reports[0])
	}
	if reports[1] == nil || reports[1].State != model.StateCompleted {
		t.Errorf("reports[1] = %+v, want a completed report", reports[1])
	}
}

func TestBatchRunnerConcurrencyLimit(t *testing.T) {
	t.Parallel()

	renderer := newFakeRenderer()
	renderer.delay = 30 * time.Millisecond
	for _, d := range []string{"a", "b", "c", "d"} {
		renderer.addPage("http://"+d+".example/", d)
	}

	var active, peak atomic.Int32
	factory := func() *Crawler {
		return New(&gatedRenderer{inner: renderer, active: &active, peak: &peak}, &fakeWriter{}, WithDelay(0))
	}

	br := NewBatchRunner(factory, WithConcurrency(2))
	seeds := []string{"http://a.example", "http://b.example", "http://c.example", "http://d.example"}

	if _, err := br.Run(context.Background(), seeds); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrent crawls = %d, want at most 2", got)
	}
}

// gatedRenderer tracks how many renders run at once.
type gatedRenderer struct {
	inner  *fakeRenderer
	active *atomic.Int32
	peak   *atomic.Int32
}

func (g *gatedRenderer) Render(ctx context.Context, pageURL string) (*model.PageResult, error) {
	n := g.active.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	defer g.active.Add(-1)
	return g.inner.Render(ctx, pageURL)
}

func TestBatchRunnerRunWithCallback(t *testing.T) {
	t.Parallel()

	_, factory := batchFixture()
	br := NewBatchRunner(factory)

	seeds := []string{"http://one.example", "http://two.example"}

	var mu sync.Mutex
	got := make(map[int]*model.CrawlReport)

	err := br.RunWithCallback(context.Background(), seeds, func(r *model.CrawlReport, i int) {
		mu.Lock()
		got[i] = r
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("RunWithCallback() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("callback called %d times, want 2", len(got))
	}
	for i, r := range got {
		if r == nil || r.State != model.StateCompleted {
			t.Errorf("callback report %d = %+v, want completed", i, r)
		}
	}
}
