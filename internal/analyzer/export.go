package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/adapter/storage"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

// Metric names of exported records.
const (
	MetricCapacity   = "capacity_gw"
	MetricEnergy     = "energy_twh"
	MetricCarbonCost = "carbon_cost_dollar_per_tco2"
	MetricLCOE       = "lcoe_dollar_per_mwh"
	MetricEmissions  = "emissions_mt_co2"
	MetricReduction  = "reduction_pct"
)

// Record is one long-format value of a report.
type Record struct {
	Report   string  `parquet:"name=report, type=BYTE_ARRAY, convertedtype=UTF8"`
	Scenario string  `parquet:"name=scenario, type=BYTE_ARRAY, convertedtype=UTF8"`
	Period   int32   `parquet:"name=period, type=INT32"`
	Category string  `parquet:"name=category, type=BYTE_ARRAY, convertedtype=UTF8"`
	Metric   string  `parquet:"name=metric, type=BYTE_ARRAY, convertedtype=UTF8"`
	Value    float64 `parquet:"name=value, type=DOUBLE"`
}

// NewRecord builds a Record.
func NewRecord(report, scenario string, period int, category, metric string, value float64) Record {
	return Record{
		Report:   report,
		Scenario: scenario,
		Period:   int32(period),
		Category: category,
		Metric:   metric,
		Value:    value,
	}
}

// WriteTable writes t as CSV to name in the workspace.
func WriteTable(ctx context.Context, ws storage.Workspace, name string, t *table.Table) error {
	w, err := ws.Create(ctx, name)
	if err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to create '%s'", name, err)
	}
	if err := t.WriteTo(w); err != nil {
		w.Close()
		return exception.NewBatchErrorf(moduleName, "failed to write '%s'", name, err)
	}
	if err := w.Close(); err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to close '%s'", name, err)
	}
	logger.Debugf("Wrote %s (%d rows).", name, t.Len())
	return nil
}

// ParquetExporter writes report records as one Parquet file each.
type ParquetExporter struct {
	ws          storage.Workspace
	compression parquet.CompressionCodec
}

// NewParquetExporter creates an exporter writing into ws. compression is
// SNAPPY (the default when empty), GZIP or NONE.
func NewParquetExporter(ws storage.Workspace, compression string) (*ParquetExporter, error) {
	codec, err := compressionCodec(compression)
	if err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "invalid parquet compression '%s'", compression, err)
	}
	return &ParquetExporter{ws: ws, compression: codec}, nil
}

// Export writes records to name. The whole file is encoded in memory
// and then copied to the workspace.
func (e *ParquetExporter) Export(ctx context.Context, name string, records []Record) (err error) {
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(Record), 1)
	if err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to create parquet writer for '%s'", name, err)
	}
	pw.CompressionType = e.compression
	for _, r := range records {
		if err := pw.Write(r); err != nil {
			return exception.NewBatchErrorf(moduleName, "failed to encode a record of '%s'", name, err)
		}
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = exception.NewBatchErrorf(moduleName, "parquet writer panicked while finishing '%s': %s", name, fmt.Sprint(r))
			}
		}()
		if stopErr := pw.WriteStop(); stopErr != nil {
			err = exception.NewBatchErrorf(moduleName, "failed to finish '%s'", name, stopErr)
		}
	}()
	if err != nil {
		return err
	}

	w, err := e.ws.Create(ctx, name)
	if err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to create '%s'", name, err)
	}
	if _, err := io.Copy(w, buf); err != nil {
		w.Close()
		return exception.NewBatchErrorf(moduleName, "failed to write '%s'", name, err)
	}
	if err := w.Close(); err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to close '%s'", name, err)
	}
	logger.Infof("Exported %d records to %s.", len(records), name)
	return nil
}

func compressionCodec(s string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(s) {
	case "SNAPPY", "":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", s)
	}
}
