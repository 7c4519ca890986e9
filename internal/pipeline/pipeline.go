// Package pipeline drives the batch run: list recordings, skip processed
// ones, analyze, adjust, write, record. Strictly one file at a time.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nwrslept/CallAnalyzer/internal/rules"
	"github.com/nwrslept/CallAnalyzer/internal/types"
)

// FileSource lists candidate recordings and downloads them to scratch space.
type FileSource interface {
	ListAudioFiles(ctx context.Context) ([]types.DriveFile, error)
	Download(ctx context.Context, fileID, name string) (string, error)
}

// DedupStore persists which file ids were already fully processed.
type DedupStore interface {
	Exists(ctx context.Context, fileID string) (bool, error)
	Record(ctx context.Context, fileID, fileName string, score int) error
}

// CallAnalyzer produces a normalized analysis for one downloaded file.
type CallAnalyzer interface {
	AnalyzeCall(audioPath string) (types.Analysis, error)
}

// RowWriter appends one evaluation row to the output sheet or workbook.
type RowWriter interface {
	Append(ctx context.Context, fileName string, a types.Analysis) error
}

// Summary counts per-file outcomes of one run.
type Summary struct {
	Skipped   int
	Succeeded int
	Failed    int
}

type Pipeline struct {
	source   FileSource
	store    DedupStore
	analyzer CallAnalyzer
	writer   RowWriter
	log      *logrus.Entry

	// pacing is the delay after every file, to stay under API rate limits.
	pacing time.Duration
	sleep  func(time.Duration)
}

func New(source FileSource, store DedupStore, analyzer CallAnalyzer, writer RowWriter, log *logrus.Entry) *Pipeline {
	return &Pipeline{
		source:   source,
		store:    store,
		analyzer: analyzer,
		writer:   writer,
		log:      log.WithField("component", "pipeline"),
		pacing:   time.Second,
		sleep:    time.Sleep,
	}
}

// Run processes every listed, not-yet-processed file exactly once, in
// listing order. A failure on one file never aborts the batch; only a
// failed listing (or a dedup read error, which would void the idempotence
// guarantee) is fatal.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	files, err := p.source.ListAudioFiles(ctx)
	if err != nil {
		return sum, fmt.Errorf("list audio files: %w", err)
	}
	if len(files) == 0 {
		p.log.Info("no files found")
		return sum, nil
	}
	p.log.WithField("count", len(files)).Info("files found, checking database")

	for i, file := range files {
		log := p.log.WithFields(logrus.Fields{
			"file":     file.Name,
			"file_id":  file.ID,
			"progress": fmt.Sprintf("%d/%d", i+1, len(files)),
		})

		done, err := p.store.Exists(ctx, file.ID)
		if err != nil {
			// Cannot trust the dedup guarantee anymore; stop the batch.
			return sum, fmt.Errorf("dedup lookup for %s: %w", file.ID, err)
		}
		if done {
			log.Info("skip: already processed")
			sum.Skipped++
			p.sleep(p.pacing)
			continue
		}

		if err := p.processOne(ctx, file, log); err != nil {
			log.WithField("error", err.Error()).Error("processing failed")
			sum.Failed++
		} else {
			sum.Succeeded++
		}
		p.sleep(p.pacing)
	}

	p.log.WithFields(logrus.Fields{
		"succeeded": sum.Succeeded,
		"skipped":   sum.Skipped,
		"failed":    sum.Failed,
	}).Info("run finished")
	return sum, nil
}

// processOne runs download -> analyze -> adjust -> write -> record for a
// single file. The local download is removed on every exit path, and the
// dedup record is only written after the row landed.
func (p *Pipeline) processOne(ctx context.Context, file types.DriveFile, log *logrus.Entry) error {
	log.Info("processing")

	localPath, err := p.source.Download(ctx, file.ID, file.Name)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer p.removeLocal(localPath, log)

	result, err := p.analyzer.AnalyzeCall(localPath)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	result = rules.Adjust(result)

	if err := p.writer.Append(ctx, file.Name, result); err != nil {
		return fmt.Errorf("write row: %w", err)
	}

	if err := p.store.Record(ctx, file.ID, file.Name, int(result.ManagerScore)); err != nil {
		return fmt.Errorf("record processed: %w", err)
	}

	log.WithField("score", int(result.ManagerScore)).Info("done")
	return nil
}

func (p *Pipeline) removeLocal(path string, log *logrus.Entry) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.WithField("error", err.Error()).Warn("could not remove local file")
	}
}
