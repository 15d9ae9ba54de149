package timeline_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/switchprep/internal/builder/timeline"
	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

func parse(t *testing.T, csv string) *table.Table {
	t.Helper()
	tbl, err := table.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}

// Two sample days of 12 two-hour timepoints, each standing for half of a
// 10-year period: 2 * 1825 * 24 = 87600 hours.
const (
	periodsCSV    = "INVESTMENT_PERIOD,period_start,period_end\n2028,2028,2037\n"
	timeseriesCSV = "TIMESERIES,ts_period,ts_duration_of_tp,ts_num_tps,ts_scale_to_period\n" +
		"2030.01.15,2028,2,12,1825\n2030.07.15,2028,2,12,1825\n"
)

func timepoints() string {
	var b strings.Builder
	b.WriteString("timepoint_id,timestamp,timeseries\n")
	for _, ts := range []string{"2030.01.15", "2030.07.15"} {
		for h := 0; h < 24; h += 2 {
			fmt.Fprintf(&b, "%s.%02d,%s,%s\n", ts, h, strings.ReplaceAll(ts, ".", "-"), ts)
		}
	}
	return b.String()
}

func TestLoadAndVerify(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"periods.csv":    periodsCSV,
		"timeseries.csv": timeseriesCSV,
		"timepoints.csv": timepoints(),
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	s, err := timeline.Load(dir)
	require.NoError(t, err)
	require.NoError(t, s.Verify())
	assert.Len(t, s.TimepointIDs(), 24)
	assert.Equal(t, 87600.0, s.PeriodHours()[2028])
	assert.Equal(t, 3650.0, s.PeriodWeights()[2028])
	require.NoError(t, s.VerifyPeriodHours(8760, 1e-9))

	p, ok := s.PeriodOfTimepoint("2030.07.15.22")
	require.True(t, ok)
	assert.Equal(t, 2028, p)
	assert.Equal(t, []string{"2030.01.15", "2030.07.15"}, s.TimeseriesInPeriod(2028))
}

func TestVerify_Membership(t *testing.T) {
	s, err := timeline.FromTables(
		parse(t, periodsCSV),
		parse(t, timeseriesCSV+"2040.01.15,2038,2,12,10\n"),
		parse(t, "timepoint_id,timestamp,timeseries\na,x,2030.01.15\na,x,2030.01.15\nb,x,nowhere\n"))
	require.NoError(t, err)

	err = s.Verify()
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrInvariantViolation))
	assert.Contains(t, err.Error(), "unknown period 2038")
	assert.Contains(t, err.Error(), "timepoint 'a' is listed more than once")
	assert.Contains(t, err.Error(), "unknown timeseries 'nowhere'")
}

func TestVerifyTotals(t *testing.T) {
	require.NoError(t, timeline.VerifyTotals("weights", map[int]float64{2028: 3650}, map[int]float64{2028: 3650 + 1e-9}, 1e-9))
	err := timeline.VerifyTotals("weights", map[int]float64{2028: 3650}, map[int]float64{2028: 3700, 2038: 1}, 1e-9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "period 2038")
}
