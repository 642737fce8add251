package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"fuelbill/internal"
	"fuelbill/internal/config"
	"fuelbill/internal/contract"
	"fuelbill/internal/logging"
	"fuelbill/internal/storage"
)

// ErrNoValidRows is returned when filtering leaves nothing to bill.
var ErrNoValidRows = eris.New("no valid rows")

// minResolvedFields is how many fields a usable layout resolves.
const minResolvedFields = 4

type ProcessingService struct {
	db       *storage.DB
	cfg      config.Config
	rules    *config.Rules
	matcher  HeaderMatcher
	enricher *contract.Enricher
	log      *logrus.Logger
}

// NewProcessingService wires one bill pipeline. db may be nil, in which
// case runs are not journaled.
func NewProcessingService(db *storage.DB, cfg config.Config, rules *config.Rules, lookup contract.Lookuper) *ProcessingService {
	return &ProcessingService{
		db:       db,
		cfg:      cfg,
		rules:    rules,
		matcher:  NewHeaderMatcher(cfg.ColumnMatcher, cfg.ColumnMatchMaxDistance),
		enricher: contract.NewEnricher(lookup, cfg.LookupConcurrency),
		log:      logging.Discard(),
	}
}

func (s *ProcessingService) SetLogger(log *logrus.Logger) {
	if log == nil {
		return
	}
	s.log = log
	s.enricher.SetLogger(log)
}

type ProcessResult struct {
	RunID          string
	InputPath      string
	OutputPath     string
	InputHash      string
	HeaderRow      int
	Headers        []string
	Columns        internal.ColumnMap
	TotalRows      int
	ValidRows      int
	MergedLegs     int
	FilteredRoutes int
	ContractHits   int
	Rows           []internal.OutputRow
}

// Counts is the summary stored in the run journal.
func (r ProcessResult) Counts() map[string]int {
	return map[string]int{
		"total":          r.TotalRows,
		"valid":          r.ValidRows,
		"merged":         r.MergedLegs,
		"filteredRoutes": r.FilteredRoutes,
		"emitted":        len(r.Rows),
		"contracts":      r.ContractHits,
	}
}

// ProcessFile turns one bill into a settlement sheet. An empty outputPath
// writes next to the input, or into OUTPUT_DIR when configured.
func (s *ProcessingService) ProcessFile(ctx context.Context, inputPath, outputPath string, override *config.RuntimeOverride) (ProcessResult, error) {
	started := time.Now()
	timings := map[string]float64{}
	res := ProcessResult{RunID: uuid.NewString(), InputPath: inputPath, OutputPath: outputPath}
	if strings.TrimSpace(res.OutputPath) == "" {
		res.OutputPath = DefaultOutputPath(inputPath, s.cfg.OutputDir)
	}
	log := s.log.WithFields(logrus.Fields{"run": res.RunID, "input": filepath.Base(inputPath)})

	res, err := s.process(ctx, res, override, timings, log)
	timings["totalMs"] = msSince(started)
	s.journal(res, err, started, timings, log)
	if err != nil {
		return res, err
	}
	log.WithFields(logrus.Fields{
		"rows":      len(res.Rows),
		"contracts": res.ContractHits,
		"output":    res.OutputPath,
	}).Info("bill processed")
	return res, nil
}

func (s *ProcessingService) process(ctx context.Context, res ProcessResult, override *config.RuntimeOverride, timings map[string]float64, log *logrus.Entry) (ProcessResult, error) {
	step := time.Now()
	if !SupportedExtension(res.InputPath) {
		return res, eris.Wrapf(ErrUnsupportedFormat, "extension %q", filepath.Ext(res.InputPath))
	}
	blob, err := os.ReadFile(res.InputPath)
	if err != nil {
		return res, eris.Wrapf(err, "read input %s", res.InputPath)
	}
	res.InputHash = ContentHash(blob)
	grid, err := ParseGrid(filepath.Ext(res.InputPath), blob)
	if err != nil {
		return res, eris.Wrapf(err, "parse %s", res.InputPath)
	}
	timings["readMs"] = msSince(step)

	step = time.Now()
	res.HeaderRow = s.headerRow(grid, override, log)
	res.Headers = HeaderTexts(grid, res.HeaderRow)
	res.Columns = s.columns(res.Headers, override, log)
	log.WithFields(logrus.Fields{"headerRow": res.HeaderRow + 1, "columns": ColumnMapNames(res.Columns)}).Info("layout resolved")
	if len(res.Columns) < minResolvedFields {
		log.WithField("headers", nonEmpty(res.Headers)).Warn("not every required column was recognised")
	}

	rows := DataRows(grid, res.HeaderRow)
	res.TotalRows = len(rows)
	rows = FilterRows(rows, res.Columns)
	res.ValidRows = len(rows)
	if len(rows) == 0 {
		return res, ErrNoValidRows
	}
	rows, res.MergedLegs = MergeItineraries(rows, res.Columns)
	timings["layoutMs"] = msSince(step)

	step = time.Now()
	policy := RoutePolicy{MajorAirports: s.rules.MajorAirportsByAirline, AllowedRoutes: s.rules.RouteFilters}
	rowRules := RowRules{DateFormats: s.rules.DateFormats, CityCodes: s.rules.CityCodes}
	canonical := make([]internal.CanonicalRow, 0, len(rows))
	for _, row := range rows {
		c := NormalizeRow(row, res.Columns, rowRules)
		if c.FuelPrice == nil {
			if cell, ok := row.Get(res.Columns, internal.FieldFuelPrice); ok && row.Leg == nil {
				log.WithFields(logrus.Fields{"row": row.RowNumber, "value": cell.String()}).Warn("fuel price not recognised")
			}
		}
		if c.Origin == nil || c.Destination == nil {
			log.WithField("row", row.RowNumber).Debug("route not resolved")
		}
		if !policy.Eligible(c) {
			res.FilteredRoutes++
			log.WithFields(logrus.Fields{
				"row":   row.RowNumber,
				"route": *c.Origin + "-" + *c.Destination,
			}).Info("route filtered")
			continue
		}
		canonical = append(canonical, c)
	}
	timings["normalizeMs"] = msSince(step)

	step = time.Now()
	contracts := s.enricher.Enrich(ctx, canonical)
	timings["enrichMs"] = msSince(step)

	res.Rows = make([]internal.OutputRow, 0, len(canonical))
	for i, c := range canonical {
		if contracts[i] != nil {
			res.ContractHits++
		}
		res.Rows = append(res.Rows, AssembleRow(c, contracts[i], s.rules))
	}

	step = time.Now()
	if err := ExportRowsToXLSX(res.Rows, res.OutputPath); err != nil {
		return res, err
	}
	timings["exportMs"] = msSince(step)
	return res, nil
}

func (s *ProcessingService) headerRow(grid internal.Grid, override *config.RuntimeOverride, log *logrus.Entry) int {
	if override != nil && override.HeaderRow != nil {
		hr := *override.HeaderRow
		if hr >= 0 && hr < len(grid) {
			return hr
		}
		log.WithField("headerRow", hr).Warn("header row override out of range, detecting instead")
	}
	return LocateHeader(grid)
}

func (s *ProcessingService) columns(headers []string, override *config.RuntimeOverride, log *logrus.Entry) internal.ColumnMap {
	if override != nil && len(override.Columns) > 0 {
		columns, warnings := ResolveOverrideColumns(headers, override.Columns)
		for _, w := range warnings {
			log.Warn(w)
		}
		return columns
	}
	return ResolveColumns(headers, s.rules.ColumnMappings, s.matcher)
}

func (s *ProcessingService) journal(res ProcessResult, runErr error, started time.Time, timings map[string]float64, log *logrus.Entry) {
	if s.db == nil {
		return
	}
	run := internal.RunRecord{
		ID:          res.RunID,
		InputPath:   res.InputPath,
		OutputPath:  res.OutputPath,
		InputHash:   res.InputHash,
		HeaderRow:   res.HeaderRow,
		ColumnMap:   ColumnMapNames(res.Columns),
		Counts:      res.Counts(),
		Status:      internal.RunOK,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		DurationsMs: timings,
	}
	if runErr != nil {
		run.Status = internal.RunFailed
		run.Error = runErr.Error()
		run.OutputPath = ""
	}
	if err := s.db.InsertRun(run); err != nil {
		log.WithError(err).Warn("journal write failed")
	}
}

// ContentHash identifies input content independently of its file name.
func ContentHash(blob []byte) string {
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
