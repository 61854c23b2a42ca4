package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docanchor/internal/cfi"
	"github.com/dgallion1/docanchor/internal/chunker"
	"github.com/dgallion1/docanchor/internal/doctree"
	"github.com/dgallion1/docanchor/internal/library"
	"github.com/dgallion1/docanchor/internal/parser"
	"github.com/dgallion1/docanchor/internal/pathstore"
)

// SpineNodeIndex is the element index of the spine in a package document
// (metadata, manifest, spine), giving bases of the form /6/N.
const SpineNodeIndex = 2

// WorkerConfig tunes a Worker.
type WorkerConfig struct {
	Parser             parser.Options
	Chunk              chunker.Config
	MaxConcurrentStore int
}

// Worker processes a single document job.
type Worker struct {
	pathstore *pathstore.Client
	library   *library.Library
	log       *slog.Logger
	cfg       WorkerConfig
	backoff   func(attempt int) time.Duration
}

func NewWorker(ps *pathstore.Client, lib *library.Library, log *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.MaxConcurrentStore <= 0 {
		cfg.MaxConcurrentStore = 1
	}
	if cfg.Chunk.Ignore == nil {
		cfg.Chunk.Ignore = lib.Ignore()
	}
	return &Worker{
		pathstore: ps,
		library:   lib,
		log:       log,
		cfg:       cfg,
		backoff:   Backoff,
	}
}

// Process runs parse, dedup, index and store for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "user_id", job.UserID)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename, w.cfg.Parser)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	doc, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	job.releaseFile()
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	title := job.applyTitle(doc.Title)
	doc.Title = title

	hash := ContentHashHex([]byte(documentText(doc)))
	job.SetContentHash(hash)

	// Phase 1.5: Dedup
	if existing := w.findDuplicate(ctx, log, job.UserID, hash); existing != "" && existing != job.DocID {
		log.Info("duplicate document, skipping", "existing_doc_id", existing)
		job.MarkDuplicate(existing)
		return
	}

	// Phase 2: Index
	job.SetStatus(StatusIndexing, "indexing")
	base := cfi.ChapterBase(SpineNodeIndex, job.SpinePos, job.IDRef)
	idx := chunker.Build(doc, base, w.cfg.Chunk)
	job.SetTotalLocations(idx.Len())
	log.Info("indexed document", "locations", idx.Len(), "base", base.String())
	if idx.Len() == 0 {
		log.Warn("no locations produced")
		job.AddError("no addressable text")
		job.SetStatus(StatusFailed, "indexing")
		return
	}

	meta := library.Meta{
		DocID:       job.DocID,
		UserID:      job.UserID,
		Title:       title,
		Filename:    job.Filename,
		ContentHash: hash,
		Base:        base,
		CreatedAt:   job.CreatedAt,
	}
	w.library.Put(library.NewEntry(meta, doc, idx))

	// Phase 3: Store locations and metadata in pathstore.
	job.SetStatus(StatusStoring, "storing")
	stored, hadErrors := w.storeLocations(ctx, log, job, idx.Locations)
	log.Info("storage complete", "stored", stored, "total", idx.Len())

	err = retry(ctx, log, "put document", w.backoff, func() error {
		return w.pathstore.PutDocument(ctx, job.UserID, pathstore.DocumentMeta{
			DocID:       job.DocID,
			Filename:    job.Filename,
			Title:       title,
			ContentHash: hash,
			Base:        base.String(),
			Locations:   idx.Len(),
			CreatedAt:   job.CreatedAt.UTC(),
		})
	})
	if err != nil {
		log.Error("document write failed", "error", err)
		job.AddError(fmt.Sprintf("document: %s", err))
		hadErrors = true
	}

	switch {
	case hadErrors && stored == 0:
		w.library.Delete(job.UserID, job.DocID)
		job.SetStatus(StatusFailed, "storing")
	case hadErrors:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
}

// storeLocations writes each location with bounded concurrency and
// returns how many were stored.
func (w *Worker) storeLocations(ctx context.Context, log *slog.Logger, job *Job, locs []chunker.Location) (int, bool) {
	type storeResult struct {
		idx int
		err error
	}
	results := make(chan storeResult, len(locs))
	sem := make(chan struct{}, w.cfg.MaxConcurrentStore)

	for _, loc := range locs {
		sem <- struct{}{}
		go func(loc chunker.Location) {
			defer func() { <-sem }()
			key := pathstore.LocationKey(job.UserID, job.DocID, loc.Index)
			err := retry(ctx, log, "put location", w.backoff, func() error {
				return w.pathstore.PutNode(ctx, key, pathstore.NodeRequest{
					Value:      loc,
					MemoryType: "semantic",
					Salience:   0.2,
					Source:     "docanchor:" + job.DocID,
				})
			})
			results <- storeResult{idx: loc.Index, err: err}
		}(loc)
	}

	stored := 0
	hadErrors := false
	for range locs {
		r := <-results
		if r.err != nil {
			log.Error("location store failed", "location", r.idx, "error", r.err)
			job.AddError(fmt.Sprintf("location %d: %s", r.idx, r.err))
			hadErrors = true
			continue
		}
		stored++
		job.IncrLocationsStored()
	}
	return stored, hadErrors
}

// findDuplicate looks for a document of userID with the same content,
// first in memory and then in pathstore. Lookup failures are not fatal.
func (w *Worker) findDuplicate(ctx context.Context, log *slog.Logger, userID, hash string) string {
	if id := w.library.FindByHash(userID, hash); id != "" {
		return id
	}
	id, err := w.pathstore.FindByHash(ctx, userID, hash)
	if err != nil {
		log.Warn("dedup check failed, proceeding", "error", err)
		return ""
	}
	return id
}

// applyTitle keeps a title supplied at upload and otherwise adopts the
// parsed one.
func (j *Job) applyTitle(parsed string) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Title == "" {
		j.Title = parsed
	}
	return j.Title
}

// documentText is the text that identifies a document for dedup.
func documentText(doc *doctree.Document) string {
	if body := doc.Body(); body != nil {
		return body.Text()
	}
	return doc.Root().Text()
}
