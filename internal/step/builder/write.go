package builder

import (
	"context"

	config "github.com/tigerroll/switchprep/pkg/batch/core/config"

	"github.com/tigerroll/switchprep/internal/builder/inputdir"
	"github.com/tigerroll/switchprep/internal/builder/timeline"
	"github.com/tigerroll/switchprep/internal/step/common"
	"github.com/tigerroll/switchprep/internal/table"
)

// writeTable writes name.csv to dir and records it as an output of b.
func writeTable(b *common.Base, dir *inputdir.Dir, name string, t *table.Table) error {
	if err := dir.Write(name, t); err != nil {
		return err
	}
	b.Wrote(dir.File(name + ".csv"))
	return nil
}

// verifyPeriodHours checks that the timeseries of dir represent the full
// length of every period.
func verifyPeriodHours(dir *inputdir.Dir, study *config.StudyConfig) error {
	periods, err := dir.Read("periods")
	if err != nil {
		return err
	}
	ts, err := dir.Read("timeseries")
	if err != nil {
		return err
	}
	tp, err := dir.Read("timepoints")
	if err != nil {
		return err
	}
	st, err := timeline.FromTables(periods, ts, tp)
	if err != nil {
		return err
	}
	return st.VerifyPeriodHours(study.HoursPerYear, study.PeriodHoursTolerance)
}

// copyFiles copies files within dir, pairwise from src to dst.
func copyFiles(ctx context.Context, b *common.Base, dir *inputdir.Dir, pairs ...[2]string) error {
	for _, p := range pairs {
		if err := dir.CopyFile(ctx, p[0], p[1]); err != nil {
			return err
		}
		b.Wrote(dir.File(p[1]))
	}
	return nil
}
