// Package listener watches an inbox directory and processes dropped bills.
package listener

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"fuelbill/internal/config"
	"fuelbill/internal/logging"
	"fuelbill/internal/pipeline"
	"fuelbill/internal/storage"
)

const (
	doneDir   = "done"
	failedDir = "failed"
	outDir    = "out"

	lastCycleKey = "watcher.lastCycleAt"
)

// Processor is the part of the pipeline the watcher drives.
type Processor interface {
	ProcessFile(ctx context.Context, inputPath, outputPath string, override *config.RuntimeOverride) (pipeline.ProcessResult, error)
}

type Service struct {
	db        *storage.DB
	cfg       config.Config
	processor Processor
	log       *logrus.Logger
}

// NewService builds a watcher. db may be nil, which disables duplicate
// detection across cycles.
func NewService(db *storage.DB, cfg config.Config, processor Processor) *Service {
	return &Service{db: db, cfg: cfg, processor: processor, log: logging.Discard()}
}

func (s *Service) SetLogger(log *logrus.Logger) {
	if log != nil {
		s.log = log
	}
}

type CycleResult struct {
	Seen       int
	Processed  int
	Duplicates int
	Failed     int
}

// Run performs a cycle right away and then on every schedule tick until
// ctx is done. Overlapping ticks are skipped.
func (s *Service) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.cfg.WatchSchedule, func() { s.tick(ctx) }); err != nil {
		return eris.Wrapf(err, "invalid watch schedule %q", s.cfg.WatchSchedule)
	}

	s.tick(ctx)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Service) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := s.RunCycle(ctx)
	if err != nil {
		s.log.WithError(err).Error("watch cycle failed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"seen":       res.Seen,
		"processed":  res.Processed,
		"duplicates": res.Duplicates,
		"failed":     res.Failed,
	}).Info("watch cycle done")
}

// RunCycle processes every supported file currently in the inbox.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult
	inbox := s.cfg.WatchInboxDir
	if err := os.MkdirAll(inbox, 0o755); err != nil {
		return res, eris.Wrapf(err, "create inbox %s", inbox)
	}
	entries, err := os.ReadDir(inbox)
	if err != nil {
		return res, eris.Wrapf(err, "list inbox %s", inbox)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		name := entry.Name()
		if !entry.Type().IsRegular() || ignoredName(name) || !pipeline.SupportedExtension(name) {
			continue
		}
		res.Seen++
		path := filepath.Join(inbox, name)
		log := s.log.WithField("file", name)

		blob, err := os.ReadFile(path)
		if err != nil {
			log.WithError(err).Warn("cannot read inbox file")
			res.Failed++
			continue
		}
		if s.db != nil {
			seen, err := s.db.HasProcessed(pipeline.ContentHash(blob))
			if err != nil {
				return res, err
			}
			if seen {
				log.Info("already processed, moving to done")
				res.Duplicates++
				s.move(path, doneDir, log)
				continue
			}
		}

		output := pipeline.DefaultOutputPath(path, s.outputDir())
		if _, err := s.processor.ProcessFile(ctx, path, output, nil); err != nil {
			log.WithError(err).Warn("bill failed")
			res.Failed++
			s.move(path, failedDir, log)
			continue
		}
		res.Processed++
		s.move(path, doneDir, log)
	}

	if s.db != nil {
		if err := s.db.SetMetadata(lastCycleKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
			s.log.WithError(err).Warn("cannot record watch cycle")
		}
	}
	return res, nil
}

// outputDir keeps results out of the inbox so they are never picked up as
// input.
func (s *Service) outputDir() string {
	if strings.TrimSpace(s.cfg.OutputDir) != "" {
		return s.cfg.OutputDir
	}
	return filepath.Join(s.cfg.WatchInboxDir, outDir)
}

func (s *Service) move(path, sub string, log *logrus.Entry) {
	dir := filepath.Join(filepath.Dir(path), sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.WithError(err).Warn("cannot create archive dir")
		return
	}
	if err := os.Rename(path, uniquePath(filepath.Join(dir, filepath.Base(path)))); err != nil {
		log.WithError(err).Warn("cannot archive inbox file")
	}
}

func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return stem + "_" + time.Now().Format("20060102150405.000000000") + ext
}

// ignoredName skips hidden files and office lock files.
func ignoredName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$")
}
