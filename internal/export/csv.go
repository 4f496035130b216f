// Package export writes option chain history as CSV files.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	apperrors "mcxdesk/internal/errors"
	"mcxdesk/internal/logging"
	"mcxdesk/internal/models"
	"mcxdesk/pkg/utils"
)

// SourceLabel is written into every row's Data Source column.
const SourceLabel = "MCX Live API"

const timestampLayout = "2006-01-02 15:04:05"

// Batch is one export request.
type Batch struct {
	Instrument string
	Expiry     string
	Underlying float64
	Records    []models.OptionRecord
	Auto       bool
}

// Row is one CSV line. Column order follows field order.
type Row struct {
	Commodity       string `csv:"Commodity"`
	Expiry          string `csv:"Expiry"`
	UnderlyingPrice string `csv:"Underlying Price"`
	StrikePrice     string `csv:"Strike Price"`
	PEOI            string `csv:"PE OI"`
	PEVolume        string `csv:"PE Volume"`
	PELTP           string `csv:"PE LTP"`
	PEAbsChange     string `csv:"PE Abs Change"`
	PEPctChange     string `csv:"PE % Change"`
	PEBid           string `csv:"PE Bid"`
	PEAsk           string `csv:"PE Ask"`
	PETurnover      string `csv:"PE Turnover"`
	CEBid           string `csv:"CE Bid"`
	CEAsk           string `csv:"CE Ask"`
	CEAbsChange     string `csv:"CE Abs Change"`
	CEPctChange     string `csv:"CE % Change"`
	CELTP           string `csv:"CE LTP"`
	CEVolume        string `csv:"CE Volume"`
	CEOI            string `csv:"CE OI"`
	CETurnover      string `csv:"CE Turnover"`
	Timestamp       string `csv:"Timestamp"`
	DataSource      string `csv:"Data Source"`
}

// Rows formats a batch. Row i is stamped i minutes before now.
func Rows(b Batch, now time.Time) []*Row {
	rows := make([]*Row, 0, len(b.Records))
	for i, r := range b.Records {
		rows = append(rows, &Row{
			Commodity:       b.Instrument,
			Expiry:          b.Expiry,
			UnderlyingPrice: utils.FormatFixed2(b.Underlying),
			StrikePrice:     utils.FormatStrike(r.Strike),
			PEOI:            utils.FormatCount(r.Put.OI),
			PEVolume:        utils.FormatCount(r.Put.Volume),
			PELTP:           utils.FormatFixed2(r.Put.LTP),
			PEAbsChange:     utils.FormatFixed2(r.Put.AbsChange),
			PEPctChange:     utils.FormatFixed2(r.Put.PctChange),
			PEBid:           utils.FormatFixed2(r.Put.Bid),
			PEAsk:           utils.FormatFixed2(r.Put.Ask),
			PETurnover:      utils.FormatFixed2(r.Put.Turnover),
			CEBid:           utils.FormatFixed2(r.Call.Bid),
			CEAsk:           utils.FormatFixed2(r.Call.Ask),
			CEAbsChange:     utils.FormatFixed2(r.Call.AbsChange),
			CEPctChange:     utils.FormatFixed2(r.Call.PctChange),
			CELTP:           utils.FormatFixed2(r.Call.LTP),
			CEVolume:        utils.FormatCount(r.Call.Volume),
			CEOI:            utils.FormatCount(r.Call.OI),
			CETurnover:      utils.FormatFixed2(r.Call.Turnover),
			Timestamp:       now.Add(-time.Duration(i) * time.Minute).Format(timestampLayout),
			DataSource:      SourceLabel,
		})
	}
	return rows
}

// FileName returns MCX_<instrument>_<expiry>_<date>_<HHMMSS>.csv, with an
// MCX_AUTO_ prefix for automatic exports.
func FileName(b Batch, now time.Time) string {
	prefix := "MCX"
	if b.Auto {
		prefix = "MCX_AUTO"
	}
	return fmt.Sprintf("%s_%s_%s_%s_%s.csv", prefix, b.Instrument, b.Expiry,
		now.Format("2006-01-02"), now.Format("150405"))
}

// CSVExporter writes batches into a directory.
type CSVExporter struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time
}

// NewCSVExporter creates an exporter rooted at dir.
func NewCSVExporter(dir string, logger zerolog.Logger) *CSVExporter {
	return &CSVExporter{
		dir:    dir,
		logger: logging.WithComponent(logger, "export"),
		now:    time.Now,
	}
}

// Dir returns the output directory.
func (e *CSVExporter) Dir() string {
	return e.dir
}

// Export writes the batch and returns the file path.
func (e *CSVExporter) Export(ctx context.Context, b Batch) (string, error) {
	if len(b.Records) == 0 {
		return "", apperrors.ErrNothingToExport
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	now := e.now()
	path := filepath.Join(e.dir, FileName(b, now))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	rows := Rows(b, now)
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return "", fmt.Errorf("writing csv: %w", err)
	}

	logging.LogExport(e.logger, path, len(rows), b.Auto)
	return path, nil
}
