package table_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadWrite_RoundTripKeepsCells(t *testing.T) {
	dir := t.TempDir()
	src := "period,carbon_cap_tco2_per_yr,carbon_cost_dollar_per_tco2\n2028,1000.50,.\n2033,.,10\n"
	path := writeFile(t, dir, "carbon_policies.csv", src)

	tbl, err := table.Read(path)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.True(t, tbl.IsNull(0, "carbon_cost_dollar_per_tco2"))

	v, ok := tbl.Float(0, "carbon_cap_tco2_per_yr")
	require.True(t, ok)
	assert.Equal(t, 1000.5, v)

	out := filepath.Join(dir, "nested", "out.csv")
	require.NoError(t, tbl.Write(out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, src, string(data))
}

func TestRead_MissingFile(t *testing.T) {
	_, err := table.Read(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrMissingInput))

	_, ok, err := table.ReadOptional(filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParse_RaggedRowIsSchemaMismatch(t *testing.T) {
	_, err := table.Parse(strings.NewReader("a,b\n1,2\n3\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrSchemaMismatch))
}

func TestFloats(t *testing.T) {
	tbl, err := table.Parse(strings.NewReader("x,name\n1,a\n.,b\n2.5,c\n"))
	require.NoError(t, err)

	xs, err := tbl.Floats("x")
	require.NoError(t, err)
	assert.Equal(t, 1.0, xs[0])
	assert.True(t, math.IsNaN(xs[1]))
	assert.Equal(t, 2.5, xs[2])

	_, err = tbl.Floats("name")
	assert.True(t, errors.Is(err, exception.ErrSchemaMismatch))
	_, err = tbl.Floats("missing")
	assert.True(t, errors.Is(err, exception.ErrSchemaMismatch))
}

func TestColumn_UpperCaseFallback(t *testing.T) {
	tbl := table.New("TIMESERIES", "hydro_min_flow_mw")
	tbl.Append(map[string]string{"TIMESERIES": "2030.01", "hydro_min_flow_mw": "3"})

	name, ok := tbl.Column("timeseries")
	require.True(t, ok)
	assert.Equal(t, "TIMESERIES", name)
	assert.Equal(t, "2030.01", tbl.Get(0, "timeseries"))
}

func TestSetFloat_Formatting(t *testing.T) {
	tbl := table.New("a")
	tbl.Append(map[string]string{})
	assert.Equal(t, table.Null, tbl.Get(0, "a"))

	tbl.SetFloat(0, "a", 2048)
	assert.Equal(t, "2048", tbl.Get(0, "a"))
	tbl.SetFloat(0, "a", 0.1+0.2)
	assert.Equal(t, "0.30000000000000004", tbl.Get(0, "a"))
	tbl.SetFloat(0, "a", math.NaN())
	assert.Equal(t, ".", tbl.Get(0, "a"))

	tbl.SetFloat(0, "b", 1)
	assert.Equal(t, []string{"a", "b"}, tbl.Header())
}

func TestConcatAndCrossJoin(t *testing.T) {
	a := table.New("GENERATION_PROJECT", "gen_tech")
	a.Append(map[string]string{"GENERATION_PROJECT": "p1", "gen_tech": "Coal"})
	b := table.New("GENERATION_PROJECT", "gen_ccs_capture_efficiency")
	b.Append(map[string]string{"GENERATION_PROJECT": "p1_CCS", "gen_ccs_capture_efficiency": "0.9"})

	c := table.Concat(a, b)
	assert.Equal(t, []string{"GENERATION_PROJECT", "gen_tech", "gen_ccs_capture_efficiency"}, c.Header())
	assert.Equal(t, ".", c.Get(0, "gen_ccs_capture_efficiency"))
	assert.Equal(t, ".", c.Get(1, "gen_tech"))

	years := table.New("build_year")
	years.Append(map[string]string{"build_year": "2028"})
	years.Append(map[string]string{"build_year": "2038"})
	j := c.CrossJoin(years)
	assert.Equal(t, 4, j.Len())
	assert.Equal(t, "p1", j.Get(1, "GENERATION_PROJECT"))
	assert.Equal(t, "2038", j.Get(1, "build_year"))
}

func TestSortByAllColumns_NumericAwareNullsLast(t *testing.T) {
	tbl, err := table.Parse(strings.NewReader("zone,period,v\nb,2028,1\na,10,.\na,9,5\na,10,2\n"))
	require.NoError(t, err)
	tbl.SortByAllColumns()

	var got []string
	for i := 0; i < tbl.Len(); i++ {
		got = append(got, tbl.Get(i, "zone")+"/"+tbl.Get(i, "period")+"/"+tbl.Get(i, "v"))
	}
	assert.Equal(t, []string{"a/9/5", "a/10/2", "a/10/.", "b/2028/1"}, got)
}

func TestFilterCloneDrop(t *testing.T) {
	tbl, err := table.Parse(strings.NewReader("p,x\n2028,1\n2033,2\n"))
	require.NoError(t, err)

	f := tbl.Filter(func(i int) bool { return tbl.Get(i, "p") == "2033" })
	require.Equal(t, 1, f.Len())
	f.Set(0, "x", "9")
	assert.Equal(t, "2", tbl.Get(1, "x"))

	c := tbl.Clone()
	c.DropColumn("x")
	assert.Equal(t, []string{"p"}, c.Header())
	assert.Equal(t, []string{"p", "x"}, tbl.Header())
}

func TestParseBool(t *testing.T) {
	assert.True(t, table.ParseBool("1", false))
	assert.True(t, table.ParseBool("True", false))
	assert.False(t, table.ParseBool("0", true))
	assert.True(t, table.ParseBool(".", true))
}
