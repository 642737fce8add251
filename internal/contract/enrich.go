package contract

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"fuelbill/internal"
	"fuelbill/internal/logging"
)

// Lookuper resolves one contract number.
type Lookuper interface {
	Lookup(ctx context.Context, req Request) (string, error)
}

// Enricher attaches contract numbers to canonical rows. Failed lookups
// leave the row without a contract and never stop the batch.
type Enricher struct {
	lookup      Lookuper
	concurrency int
	log         *logrus.Logger
}

func NewEnricher(lookup Lookuper, concurrency int) *Enricher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Enricher{lookup: lookup, concurrency: concurrency, log: logging.Discard()}
}

func (e *Enricher) SetLogger(log *logrus.Logger) {
	if log != nil {
		e.log = log
	}
}

// Enrich returns one contract number per row, in row order. Rows that are
// not enrichable are not looked up.
func (e *Enricher) Enrich(ctx context.Context, rows []internal.CanonicalRow) []*string {
	out := make([]*string, len(rows))
	if e.lookup == nil {
		return out
	}
	if c, ok := e.lookup.(*Client); ok && !c.Configured() {
		e.log.Warn("contract lookup url not configured, contract numbers left empty")
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, row := range rows {
		i, row := i, row
		if !row.Enrichable() {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			req := RequestFor(row)
			fields := logrus.Fields{
				"row":         row.RowNumber,
				"origin":      req.Origin,
				"destination": req.Destination,
				"date":        req.StdStr,
				"airline":     req.AirCode,
			}
			no, err := e.lookup.Lookup(gctx, req)
			switch {
			case err == nil:
				out[i] = &no
			case eris.Is(err, ErrNoContract):
				e.log.WithFields(fields).Info("no contract found")
			default:
				e.log.WithFields(fields).WithError(err).Warn("contract lookup failed")
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
