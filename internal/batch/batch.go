package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/manash/roomdesign/internal/editor"
	"github.com/manash/roomdesign/internal/image"
	"github.com/manash/roomdesign/internal/security"
	"github.com/manash/roomdesign/pkg/models"
)

var ErrNoChanges = errors.New("item has neither a style nor edits")

type Result struct {
	Index    int
	Photo    string
	Path     string
	Cost     float64
	Error    error
	Duration time.Duration
}

type Options struct {
	OutputDir    string
	DefaultStyle models.Style
	Parallel     int
	StopOnError  bool
	DelayMs      int
}

// Processor restyles many photos. Each item gets its own editor built from
// the shared editor config, so items never see each other's designs.
type Processor struct {
	editorCfg editor.Config
	saver     *image.Saver
	out       io.Writer
	err       io.Writer
	outMu     sync.Mutex
}

func NewProcessor(cfg *editor.Config, saver *image.Saver, out, errOut io.Writer) *Processor {
	p := &Processor{
		editorCfg: *cfg,
		saver:     saver,
		out:       out,
		err:       errOut,
	}
	p.editorCfg.Chat = nil
	return p
}

func (p *Processor) printf(format string, args ...interface{}) {
	p.outMu.Lock()
	fmt.Fprintf(p.out, format, args...)
	p.outMu.Unlock()
}

func (p *Processor) errorf(format string, args ...interface{}) {
	p.outMu.Lock()
	fmt.Fprintf(p.err, format, args...)
	p.outMu.Unlock()
}

func (p *Processor) Process(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	if opts.Parallel <= 1 {
		return p.processSequential(ctx, items, opts)
	}
	return p.processParallel(ctx, items, opts)
}

func (p *Processor) processSequential(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	total := len(items)

	for i, item := range items {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result := p.processItem(ctx, item, opts, i+1, total)
		results[i] = result

		if result.Error != nil && opts.StopOnError {
			return results, fmt.Errorf("stopped at item %d: %w", i+1, result.Error)
		}

		if opts.DelayMs > 0 && i < len(items)-1 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(time.Duration(opts.DelayMs) * time.Millisecond):
			}
		}
	}

	return results, nil
}

func (p *Processor) processParallel(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	total := len(items)

	type job struct {
		index int
		item  Item
	}

	jobs := make(chan job, len(items))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	workers := min(opts.Parallel, len(items))

	stopped := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return opts.StopOnError && firstErr != nil
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if stopped() {
					return
				}

				result := p.processItem(ctx, j.item, opts, j.index+1, total)

				mu.Lock()
				results[j.index] = result
				if result.Error != nil && opts.StopOnError && firstErr == nil {
					firstErr = result.Error
				}
				mu.Unlock()
			}
		}()
	}

	for i, item := range items {
		jobs <- job{index: i, item: item}
	}
	close(jobs)

	wg.Wait()

	if firstErr != nil {
		return results, fmt.Errorf("batch stopped due to error: %w", firstErr)
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	return results, nil
}

func (p *Processor) processItem(ctx context.Context, item Item, opts *Options, current, total int) Result {
	start := time.Now()
	result := Result{
		Index: item.Index,
		Photo: item.Photo,
	}
	fail := func(err error) Result {
		result.Error = err
		result.Duration = time.Since(start)
		p.errorf("       Error: %v\n", err)
		return result
	}

	p.printf("[%d/%d] Restyling: %s\n", current, total, filepath.Base(item.Photo))

	style := opts.DefaultStyle
	if item.Style != "" {
		parsed, err := models.ParseStyle(item.Style)
		if err != nil {
			return fail(err)
		}
		style = parsed
	}
	if style == "" && len(item.Edits) == 0 {
		return fail(ErrNoChanges)
	}

	cfg := p.editorCfg
	ed := editor.New(&cfg)
	if err := ed.UploadFile(ctx, item.Photo); err != nil {
		return fail(err)
	}

	if style != "" {
		if _, err := ed.SelectStyle(ctx, style); err != nil {
			return fail(fmt.Errorf("style %s: %w", style, err))
		}
	}
	for i, instruction := range item.Edits {
		if _, err := ed.SubmitEdit(ctx, instruction); err != nil {
			return fail(fmt.Errorf("edit %d: %w", i+1, err))
		}
	}

	room := ed.Room()
	result.Cost = room.Cost

	output := ""
	if item.Output != "" {
		output = security.WithImageExtension(item.Output, room.Current.Extension())
		if err := security.ValidateSavePath(output); err != nil {
			return fail(fmt.Errorf("invalid output %q: %w", item.Output, err))
		}
	} else {
		label := fmt.Sprintf("%03d-design", item.Index)
		output = image.GenerateFilename(item.Photo, label, room.Current.Extension())
	}
	output = filepath.Join(opts.OutputDir, output)

	path, err := p.saver.Save(room.Current, output, room.Name, "design")
	if err != nil {
		return fail(fmt.Errorf("save failed: %w", err))
	}

	result.Path = path
	result.Duration = time.Since(start)
	p.printf("       Saved: %s ($%.4f)\n", result.Path, result.Cost)

	return result
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func (p *Processor) PrintSummary(results []Result) {
	var successful, failed int
	var totalCost float64
	var errs []Result

	for _, r := range results {
		totalCost += r.Cost
		if r.Error != nil {
			failed++
			errs = append(errs, r)
		} else if r.Path != "" {
			successful++
		}
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Summary:")
	fmt.Fprintf(p.out, "  Successful: %d/%d rooms\n", successful, len(results))
	if failed > 0 {
		fmt.Fprintf(p.out, "  Failed: %d (see errors below)\n", failed)
	}
	fmt.Fprintf(p.out, "  Total cost: $%.4f\n", totalCost)

	if len(errs) > 0 {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, "Errors:")
		for _, e := range errs {
			fmt.Fprintf(p.out, "  [%d] %s: %v\n", e.Index, truncate(filepath.Base(e.Photo), 40), e.Error)
		}
	}
}
