// Package analysis provides the tasklets of the result analysis job. They
// read solved scenario directories and write report tables as CSV and
// long-format Parquet.
package analysis

import (
	"context"
	"path"

	storage "github.com/tigerroll/switchprep/pkg/batch/adapter/storage"
	exception "github.com/tigerroll/switchprep/pkg/batch/support/util/exception"

	"github.com/tigerroll/switchprep/internal/analyzer"
	"github.com/tigerroll/switchprep/internal/step/common"
	"github.com/tigerroll/switchprep/internal/table"
)

// DefaultOutputDir receives every report.
const DefaultOutputDir = "analysis"

// OutputConfig is shared by every analysis tasklet.
type OutputConfig struct {
	OutputDir   string `yaml:"output_dir"`
	Compression string `yaml:"compression"`
	// Parquet switches the long-format export on.
	Parquet bool `yaml:"parquet"`
}

func defaultOutput() OutputConfig {
	return OutputConfig{OutputDir: DefaultOutputDir, Compression: "SNAPPY", Parquet: true}
}

// reporter writes the reports of one tasklet.
type reporter struct {
	ws       storage.Workspace
	dir      string
	exporter *analyzer.ParquetExporter
	base     *common.Base
}

func newReporter(ws storage.Workspace, cfg OutputConfig, base *common.Base) (*reporter, error) {
	r := &reporter{ws: ws, dir: cfg.OutputDir, base: base}
	if cfg.Parquet {
		e, err := analyzer.NewParquetExporter(ws, cfg.Compression)
		if err != nil {
			return nil, err
		}
		r.exporter = e
	}
	return r, nil
}

// write saves name.csv and, when enabled, name.parquet.
func (r *reporter) write(ctx context.Context, name string, t *table.Table, records []analyzer.Record) error {
	csvName := path.Join(r.dir, name+".csv")
	if err := analyzer.WriteTable(ctx, r.ws, csvName, t); err != nil {
		return err
	}
	r.base.Wrote(csvName)
	r.base.Counted("", map[string]int{csvName: t.Len()})
	if r.exporter == nil || len(records) == 0 {
		return nil
	}
	pqName := path.Join(r.dir, name+".parquet")
	if err := r.exporter.Export(ctx, pqName, records); err != nil {
		return err
	}
	r.base.Wrote(pqName)
	r.base.Counted("", map[string]int{pqName: len(records)})
	return nil
}

// group resolves a scenario group directory in the workspace.
func group(ws storage.Workspace, name string) (string, error) {
	p, err := ws.Path(name)
	if err != nil {
		return "", exception.NewBatchErrorf("analysis", "invalid scenario group '%s'", name, err)
	}
	return p, nil
}
