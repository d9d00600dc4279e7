package main

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/wippyai/pdf-runtime/avail"
	"github.com/wippyai/pdf-runtime/document"
	"github.com/wippyai/pdf-runtime/engine"
	"github.com/wippyai/pdf-runtime/errors"
	"github.com/wippyai/pdf-runtime/native"
	"github.com/wippyai/pdf-runtime/render"
	"github.com/wippyai/pdf-runtime/sim"
	"github.com/wippyai/pdf-runtime/source"
)

type stage int

const (
	stageOpen stage = iota
	stageDownload
	stagePage
	stageRender
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageOpen:
		return "waiting for document"
	case stageDownload:
		return "downloading"
	case stagePage:
		return "waiting for page"
	case stageRender:
		return "rendering"
	case stageDone:
		return "done"
	}
	return "unknown"
}

type progressEvent struct {
	stage stage
	done  int64
	total int64
}

// input is an incremental source plus the transport step that honors the
// segments the engine requested.
type input struct {
	src   avail.IncrementalSource
	wait  func(context.Context) error
	stats func() TransferReport
	close func() error
}

func openInput(ctx context.Context, cfg Config, notify func(progressEvent)) (*input, error) {
	if cfg.remote() {
		h, err := source.NewHTTP(ctx, cfg.Input, source.WithChunkSize(cfg.ChunkSize))
		if err != nil {
			return nil, err
		}
		return &input{
			src: h,
			wait: func(ctx context.Context) error {
				n, err := h.Fetch(ctx)
				notify(progressEvent{stage: stageDownload, done: h.Fetched(), total: h.Size()})
				if err != nil {
					return err
				}
				if n == 0 && h.Pending() == 0 {
					return errors.NotReady(native.KindAvail, "no segments requested")
				}
				return nil
			},
			stats: func() TransferReport {
				return TransferReport{Requests: h.Requests(), Fetched: h.Fetched()}
			},
			close: func() error { return nil },
		}, nil
	}

	f, err := source.OpenFile(cfg.Input)
	if err != nil {
		return nil, err
	}
	return &input{
		src: f,
		wait: func(context.Context) error {
			return errors.NotReady(native.KindAvail, "local file is complete but the engine wants more data")
		},
		stats: func() TransferReport { return TransferReport{Fetched: f.Size()} },
		close: f.Close,
	}, nil
}

func openEngine(ctx context.Context, cfg Config) (native.Engine, func(), error) {
	if cfg.Engine == engineSim {
		return sim.New(), func() {}, nil
	}
	wasm, err := os.ReadFile(cfg.Engine)
	if err != nil {
		return nil, nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "read engine module")
	}
	e, err := engine.New(ctx, wasm, &engine.Config{
		Name:             filepath.Base(cfg.Engine),
		MemoryLimitPages: cfg.MemoryLimitPages,
		CacheDir:         cfg.CacheDir,
	})
	if err != nil {
		return nil, nil, err
	}
	return e, func() { _ = e.Close(context.Background()) }, nil
}

// run opens the input through an availability context, inspects one page
// and renders it progressively.
func run(ctx context.Context, cfg Config, notify func(progressEvent)) (*Report, error) {
	if notify == nil {
		notify = func(progressEvent) {}
	}
	flags, err := parseFlags(cfg.Flags)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	eng, closeEngine, err := openEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeEngine()

	stats := &resourceStats{}
	lib, err := document.NewLibrary(eng, document.WithObserver(stats))
	if err != nil {
		return nil, err
	}
	defer lib.Close()

	in, err := openInput(ctx, cfg, notify)
	if err != nil {
		return nil, err
	}
	defer in.close()

	ac, err := avail.New(lib, in.src)
	if err != nil {
		return nil, err
	}
	defer ac.Close()

	rep := &Report{Input: cfg.Input, Engine: cfg.Engine, Size: in.src.Size()}

	notify(progressEvent{stage: stageOpen})
	if err := avail.Poll(ctx, ac.IsDocumentAvailable, in.wait); err != nil {
		return nil, err
	}
	var doc *document.Document
	err = avail.Poll(ctx, func() (bool, error) {
		d, err := ac.TryOpenDocument(cfg.Password)
		doc = d
		return d != nil, err
	}, in.wait)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	if err := describeDocument(rep, ac, doc); err != nil {
		return nil, err
	}
	if cfg.Page >= rep.Pages {
		return nil, errors.OutOfBounds(errors.PhaseConfig, native.KindPage, cfg.Page, rep.Pages)
	}

	notify(progressEvent{stage: stagePage})
	err = avail.Poll(ctx, func() (bool, error) { return ac.IsPageAvailable(cfg.Page) }, in.wait)
	if err != nil {
		return nil, err
	}
	page, err := ac.LoadPage(doc, cfg.Page)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if rep.Page, err = describePage(page, cfg.TextPreview); err != nil {
		return nil, err
	}
	if rep.Render, err = renderPage(ctx, lib, page, cfg, flags, notify); err != nil {
		return nil, err
	}

	page.Close()
	doc.Close()
	ac.Close()
	rep.Transfer = in.stats()
	rep.Resources = stats.snapshot()
	notify(progressEvent{stage: stageDone})
	return rep, nil
}

func describeDocument(rep *Report, ac *avail.Context, doc *document.Document) error {
	var err error
	if rep.Pages, err = doc.PageCount(); err != nil {
		return err
	}
	if v, err := doc.FileVersion(); err == nil {
		rep.Version = v
	}
	lin, err := ac.Linearization()
	if err != nil {
		return err
	}
	rep.Linearization = lin.String()
	form, err := ac.FormStatus()
	if err != nil {
		return err
	}
	rep.Form = form.String()
	rep.FirstPage, err = ac.FirstPageNumber(doc)
	return err
}

func describePage(page *document.Page, preview int) (*PageReport, error) {
	w, h, err := page.Size()
	if err != nil {
		return nil, err
	}
	rot, err := page.Rotation()
	if err != nil {
		return nil, err
	}
	pr := &PageReport{
		Index:    page.Index(),
		Width:    w,
		Height:   h,
		Rotation: rot.Degrees(),
		Objects:  make(map[string]int),
	}

	objects, err := page.Objects()
	if err != nil {
		return nil, err
	}
	for _, o := range objects {
		t, err := o.Type()
		if err != nil {
			return nil, err
		}
		pr.Objects[t.String()]++
	}

	annots, err := page.Annotations()
	if err != nil {
		return nil, err
	}
	for _, a := range annots {
		sub, err := a.Subtype()
		if err != nil {
			return nil, err
		}
		r, err := a.Rect()
		if err != nil {
			return nil, err
		}
		pr.Annotations = append(pr.Annotations, AnnotReport{
			Subtype: sub.String(),
			Rect:    [4]float64{r.Left, r.Top, r.Right, r.Bottom},
		})
	}

	text, err := page.TextLayer()
	if err != nil {
		return nil, err
	}
	if pr.Chars, err = text.CharCount(); err != nil {
		return nil, err
	}
	if preview > 0 && pr.Chars > 0 {
		if pr.Text, err = text.TextRange(0, min(pr.Chars, preview)); err != nil {
			return nil, err
		}
	}
	return pr, nil
}

func renderPage(ctx context.Context, lib *document.Library, page *document.Page, cfg Config, flags native.RenderFlags, notify func(progressEvent)) (*RenderReport, error) {
	w, h, err := page.Size()
	if err != nil {
		return nil, err
	}
	bw := max(1, int(math.Round(w*cfg.Scale)))
	bh := max(1, int(math.Round(h*cfg.Scale)))

	bmp, err := render.NewBitmap(lib, bw, bh, true)
	if err != nil {
		return nil, err
	}
	defer bmp.Close()
	if err := bmp.Clear(color.White); err != nil {
		return nil, err
	}

	var pause func() native.PauseFunc
	if cfg.PauseEvery > 0 {
		pause = func() native.PauseFunc { return render.PauseEvery(cfg.PauseEvery) }
	}

	rr := &RenderReport{Width: bw, Height: bh}
	start := time.Now()
	st, err := render.Run(ctx, bmp, page, render.Options{Width: bw, Height: bh, Flags: flags}, pause,
		func(*render.Session) error {
			rr.Steps++
			notify(progressEvent{stage: stageRender, done: int64(rr.Steps)})
			return nil
		})
	if err != nil {
		return nil, err
	}
	rr.Steps++
	rr.Status = st.String()
	rr.DurationMS = time.Since(start).Milliseconds()

	if cfg.Thumbnail != "" && st == native.RenderDone {
		tw := max(1, cfg.ThumbnailWidth)
		img, err := bmp.Thumbnail(tw, max(1, tw*bh/bw))
		if err != nil {
			return nil, err
		}
		if err := writePNG(cfg.Thumbnail, img); err != nil {
			return nil, err
		}
		rr.Thumbnail = cfg.Thumbnail
	}
	return rr, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
