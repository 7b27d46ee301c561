package analysis

import (
	"bytes"
	"encoding/base64"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var csvRows = []string{
	"Group;Concentration (g/L);Temp (°F);Score;LocaleNumber;Category;Note",
	"A;0,5;70;10,0;1.000,0;alpha;first",
	"A;0,6;71;11,0;1.100,0;alpha;second",
	"A;0,55;69;9,5;0.900,0;beta;third",
	"B;0,7;75;10,5;1.050,0;alpha;fourth",
	"B;0,65;74;9,8;0.980,0;beta;fifth",
	"B;0,68;73;10,2;1.020,0;alpha;sixth",
	"A;0,52;68;8,8;0.880,0;gamma;seventh",
	"B;0,75;76;9,7;0.970,0;beta;eighth",
	"A;3,0;95;50,0;5.000,0;alpha;ninth",
	"B;0,66;72;10,1;1.010,0;gamma;tenth",
}

// Expected values for the first nine rows under ',' decimal / '.' thousands.
var (
	wantConcentration = []float64{0.5, 0.6, 0.55, 0.7, 0.65, 0.68, 0.52, 0.75, 3.0}
	wantTemp          = []float64{70, 71, 69, 75, 74, 73, 68, 76, 95}
	wantScore         = []float64{10, 11, 9.5, 10.5, 9.8, 10.2, 8.8, 9.7, 50}
	wantLocale        = []float64{1000, 1100, 900, 1050, 980, 1020, 880, 970, 5000}
)

const xlsxFixtureBase64 = `
UEsDBBQAAAAIAMEwN1vYAxPv/wAAALYCAAATABwAW0NvbnRlbnRfVHlwZXNdLnhtbFVUCQADyjjSaMo40mh1eAsAAQQAAAAABAAAAAC1ks1OwzAQhO95CsvX
Kt60B4RQkh74OQKH8gDG3iRW/CfbLeHtcVIEEqIIpHJaWTOz32jlejsZTQ4YonK2oWtWUYJWOKls39Cn3V15SbdtUe9ePUaSvTY2dEjJXwFEMaDhkTmPNiud
C4an/Aw9eC5G3iNsquoChLMJbSrTvIO2BSH1DXZ8rxO5nbJyRAfUkZLro3fGNZR7r5XgKetwsPILqHyHsJxcPHFQPq6ygcIpyCyeZnxGH/JFgpJIHnlI99xk
I0waXlwYn50b2c97vunquk4JlE7sTY6w6ANyGQfEZDRbJjNc2dWvKiz+CMtYn7nLx/6/V9n8d5Ualm/YFm9QSwMECgAAAAAAxDA3WwAAAAAAAAAAAAAAAAMA
HAB4bC9VVAkAA9A40mjyONJodXgLAAEEAAAAAAQAAAAAUEsDBBQAAAAIAMQwN1tM2kS6xQAAAEkBAAAPABwAeGwvd29ya2Jvb2sueG1sVVQJAAPQONJo0DjS
aHV4CwABBAAAAAAEAAAAAI1Qu27DMAzc/RUC90aOhyIwZGcJAnhvP0CxaVuIRRqk+vj8qjEMZOjQ7Y7k3ZF05++4mE8UDUwNHA8lGKSeh0BTA+9v15cTnNvC
fbHcb8x3k8dJG5hTWmtrtZ8xej3wipQ7I0v0KVOZrK6CftAZMcXFVmX5aqMPBJtDLf/x4HEMPV64/4hIaTMRXHzKy+ocVoW2MMY9QvQX7sSQj9hANxELgnnU
uiHfB0bqkIF0wxHsH5KLT/5JUD0Jqk3g7J7n7P6WtvgBUEsDBAoAAAAAANIwN1sAAAAAAAAAAAAAAAAOABwAeGwvd29ya3NoZWV0cy9VVAkAA+s40mjyONJo
dXgLAAEEAAAAAAQAAAAAUEsDBBQAAAAIANIwN1u3fFZsqwIAAIASAAAYABwAeGwvd29ya3NoZWV0cy9zaGVldDIueG1sVVQJAAPrONJo6zjSaHV4CwABBAAA
AAAEAAAAAJ3YT26bQBiH4X1OgVilkguD/wEVJkoMzibKJukBJngMqGYGDeMkvVXP0JN1nEhVQ/r7QCxx/BDsV9/gIbl6bY7Os9BdreTGDTzmOkIWal/LcuN+
f9x9jdyr9CJ5UfpHVwlhHPt+2W3cypj2m+93RSUa3nmqFdL+5aB0w4091KXftVrw/Rtqjv6csbXf8Fq66YXjJG8vZ9zw85E91urF0fb/u+/H9pXifHwduI7Z
uLU81lI8GO2mSd2liUlvtTq1iW/SxD+/4Bcf3Q1yWyULIY3mxn5e57L0777gs2zRWR5F0zqXv3/tCJwh/FAoLbDLkbtTBT+K+1PzJDTmO/jJuRGl0j8xvUX0
Xpn/XHDi22gf8837+ebgjNdEOmTYbEWkQipkRCKEAjYjWA6Zxxgpd0jyY1txogxyh1p3ZlSaRT/NYkIaZNhsTaRBKgyINAgFAZkGMi8YSIPkUBrkOlEouR/V
Ztlvs5zQBhk7NtTcILaOiTgIxdSI5vAKvXigDZJPwlBpEDNVrceVWfXLrMApb4gyyLBZSIRBKiS+4gyhgFw8c8g8tqLLIDk0Ncgd1EmbalSbdb/NekIbZOyK
Rk0NYuGSiINQPIuINvAKvTii2yA5MDWIHerDyDJhv0w4oQwytgzxdW0RCxdEGYTs2MyJNJB5bE6nQXJobJDr6teRbaJ+m2jCvQYZu8oQ39cWMSpohlBETg28
Qi8amBokS940VBrkOvFsNxzj4sT9OPGEwUHG3m6oJQ2xkPhplyEUU7e2HF6hF4d0HCQHljTERF1WI9ME7NPWlE2YHIgW1OfeQhZTvwagom/qOXaDGxxIh1Y2
CGU9dnqCz08P0I6Wmh+I7J2H2uZAFxJrYgaVvfcQ+6McO4/R29cdpENLHIRmYIVL/H+e9yT+34dJ6cUfUEsDBBQAAAAIAMcwN1sqMey0swAAAPgAAAAYABwA
eGwvd29ya3NoZWV0cy9zaGVldDEueG1sVVQJAAPWONJo1jjSaHV4CwABBAAAAAAEAAAAAE2P3WrDMAxG7/MURverkl6MUhyXwegLrHsA46iNqf+QxbLHr5OO
0cvzSfoO0qffGNQPcfU5jTDselCUXJ58uo3wfTm/HeBkOr1kvteZSFTbT3WEWaQcEaubKdq6y4VSm1wzRysN+Ya1MNlpO4oB933/jtH6BKZTSm/xpxW7UmPO
i+Lmhye3xK38MYCSEXwKPtGXMBjtq9FiSrCO5hwmYo1iNK4xur82bHWbBl88Gv+fMN0DUEsDBAoAAAAAAMYwN1sAAAAAAAAAAAAAAAAJABwAeGwvX3JlbHMv
VVQJAAPTONJo8jjSaHV4CwABBAAAAAAEAAAAAFBLAwQUAAAACADGMDdbCmPblLYAAACtAQAAGgAcAHhsL19yZWxzL3dvcmtib29rLnhtbC5yZWxzVVQJAAPT
ONJo0zjSaHV4CwABBAAAAAAEAAAAAL2QSwrCMBBA9z1FmL2dtgsRadqNCN1KPUBIpx/aJiGJv9sbBMWCgitXw/zePCYvr/PEzmTdoBWHNE6AkZK6GVTH4Vjv
Vxsoiyg/0CR8GHH9YBwLO8px6L03W0Qne5qFi7UhFTqttrPwIbUdGiFH0RFmSbJG+86AImJsgWVVw8FWTQqsvhn6Ba/bdpC00/I0k/IfruBF29H1RD5Ahe3I
c3iVHD5CGgcq4Fef7M8+2dMnx8XXi+gOUEsDBAoAAAAAAMMwN1sAAAAAAAAAAAAAAAAGABwAX3JlbHMvVVQJAAPNONJo8jjSaHV4CwABBAAAAAAEAAAAAFBL
AwQUAAAACADDMDdbDxvLDKoAAAAcAQAACwAcAF9yZWxzLy5yZWxzVVQJAAPNONJozTjSaHV4CwABBAAAAAAEAAAAAI3PsQ6CMBAG4J2naG6XgoMxxsJiTFgN
PkAtRyHQXtNWxbe3oxgHx8v9913+Y72YmT3Qh5GsgDIvgKFV1I1WC7i2580e6io7XnCWMUXCMLrA0o0NAoYY3YHzoAY0MuTk0KZNT97ImEavuZNqkhr5tih2
3H8aUGWMrVjWdAJ805XA2pfDf3jq+1HhidTdoI0/vnwlkiy9xihgmfmT/HQjmvKEAk8d+apklb0BUEsBAh4DFAAAAAgAwTA3W9gDE+//AAAAtgIAABMAGAAA
AAAAAQAAAKSBAAAAAFtDb250ZW50X1R5cGVzXS54bWxVVAUAA8o40mh1eAsAAQQAAAAABAAAAABQSwECHgMKAAAAAADEMDdbAAAAAAAAAAAAAAAAAwAYAAAA
AAAAABAA7UFMAQAAeGwvVVQFAAPQONJodXgLAAEEAAAAAAQAAAAAUEsBAh4DFAAAAAgAxDA3W0zaRLrFAAAASQEAAA8AGAAAAAAAAQAAAKSBiQEAAHhsL3dv
cmtib29rLnhtbFVUBQAD0DjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAwoAAAAAANIwN1sAAAAAAAAAAAAAAAAOABgAAAAAAAAAEADtQZcCAAB4bC93b3Jrc2hl
ZXRzL1VUBQAD6zjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAxQAAAAIANIwN1u3fFZsqwIAAIASAAAYABgAAAAAAAEAAACkgd8CAAB4bC93b3Jrc2hlZXRzL3No
ZWV0Mi54bWxVVAUAA+s40mh1eAsAAQQAAAAABAAAAABQSwECHgMUAAAACADHMDdbKjHstLMAAAD4AAAAGAAYAAAAAAABAAAApIHcBQAAeGwvd29ya3NoZWV0
cy9zaGVldDEueG1sVVQFAAPWONJodXgLAAEEAAAAAAQAAAAAUEsBAh4DCgAAAAAAxjA3WwAAAAAAAAAAAAAAAAkAGAAAAAAAAAAQAO1B4QYAAHhsL19yZWxz
L1VUBQAD0zjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAxQAAAAIAMYwN1sKY9uUtgAAAK0BAAAaABgAAAAAAAEAAACkgSQHAAB4bC9fcmVscy93b3JrYm9vay54
bWwucmVsc1VUBQAD0zjSaHV4CwABBAAAAAAEAAAAAFBLAQIeAwoAAAAAAMMwN1sAAAAAAAAAAAAAAAAGABgAAAAAAAAAEADtQS4IAABfcmVscy9VVAUAA804
0mh1eAsAAQQAAAAABAAAAABQSwECHgMUAAAACADDMDdbDxvLDKoAAAAcAQAACwAYAAAAAAABAAAApIFuCAAAX3JlbHMvLnJlbHNVVAUAA8040mh1eAsAAQQA
AAAABAAAAABQSwUGAAAAAAoACgBTAwAAXQkAAAAA
`

func localeOptions() Options {
	opt := DefaultOptions()
	opt.MaxRows = 9
	opt.DecimalSeparator = ','
	opt.ThousandsSeparator = '.'
	return opt
}

func TestLoadCSVLocaleAndTruncation(t *testing.T) {
	opt := localeOptions()
	opt.Delimiter = ';'
	ds, err := Load("metrics.csv", strings.NewReader(strings.Join(csvRows, "\n")), opt)
	require.NoError(t, err)
	assertDataset(t, ds, "metrics.csv")
}

func TestLoadXLSXSheetSelection(t *testing.T) {
	data := xlsxFixture(t)

	opt := localeOptions()
	opt.SheetName = "Data"
	byName, err := Load("analysis_dataset.xlsx", bytes.NewReader(data), opt)
	require.NoError(t, err)
	assertDataset(t, byName, "analysis_dataset.xlsx")

	opt = localeOptions()
	opt.SheetIndex = 2
	byIndex, err := Load("analysis_dataset.xlsx", bytes.NewReader(data), opt)
	require.NoError(t, err)
	assertDataset(t, byIndex, "analysis_dataset.xlsx")

	// The first sheet in workbook order only holds a placeholder header.
	first, err := LoadXLSX("analysis_dataset.xlsx", data, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, first.Rows)
	_, err = first.RequireNumeric()
	assert.ErrorIs(t, err, ErrTooFewNumeric)

	opt = DefaultOptions()
	opt.SheetName = "Missing"
	_, err = LoadXLSX("analysis_dataset.xlsx", data, opt)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, err.Error(), "Ignore, Data")
}

func TestLoadCSVStripsByteOrderMark(t *testing.T) {
	ds, err := Load("bom.csv", strings.NewReader("\ufeffA,B\n1,2\n2,3\n"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, ds.NumericColumns())
	_, ok := ds.Column("A")
	assert.True(t, ok)
}

func TestLoadWrongContentForExtension(t *testing.T) {
	_, err := Load("table.xlsx", strings.NewReader("a,b\n1,2\n"), DefaultOptions())
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "table.xlsx", fe.Name)
	assert.True(t, IsUserError(err))

	_, err = Load("empty.csv", strings.NewReader(""), DefaultOptions())
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = Load("quote.csv", strings.NewReader("a,b\n\"1,2\n"), DefaultOptions())
	require.ErrorAs(t, err, &fe)
}

func TestMissingTokensAndKinds(t *testing.T) {
	src := "id,height,weight,label,\n" +
		"1,170,NA,x,\n" +
		"2,,65,y,\n" +
		"3,182,#N/A,z,\n" +
		"4,165,58,-,\n" +
		"5,null,70\n"
	ds, err := Load("people.csv", strings.NewReader(src), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, ds.Rows)
	assert.Equal(t, []string{"id", "height", "weight"}, ds.NumericColumns())

	h, ok := ds.Column("height")
	require.True(t, ok)
	assert.Equal(t, 2, h.Missing)
	assert.True(t, math.IsNaN(h.Values[1]))
	assert.True(t, math.IsNaN(h.Values[4]))
	assert.Equal(t, 182.0, h.Values[2])

	w, _ := ds.Column("weight")
	assert.Equal(t, 2, w.Missing)

	label, _ := ds.Column("label")
	assert.Equal(t, KindText, label.Kind)
	assert.Equal(t, 2, label.Missing, "'-' and the padded short row")

	unnamed, ok := ds.Column("Unnamed: 4")
	require.True(t, ok, "blank header gets a placeholder name")
	assert.Equal(t, KindText, unnamed.Kind, "all-missing column is not numeric")
}

func TestParseNumericLocales(t *testing.T) {
	comma := Options{DecimalSeparator: ',', ThousandsSeparator: '.'}
	space := Options{DecimalSeparator: ',', ThousandsSeparator: ' '}
	dot := Options{ThousandsSeparator: ','}
	cases := []struct {
		in   string
		opt  Options
		want float64
		ok   bool
	}{
		{"1.5", Options{}, 1.5, true},
		{"-2e3", Options{}, -2000, true},
		{"1,5", Options{}, 0, false},
		{"1.234,5", comma, 1234.5, true},
		{"1.5", Options{DecimalSeparator: ','}, 0, false},
		{"1\u00A0234,5", space, 1234.5, true},
		{"12,345.6", dot, 12345.6, true},
		{"Inf", Options{}, 0, false},
		{"abc", Options{}, 0, false},
	}
	for _, tc := range cases {
		got, ok := parseNumeric(tc.in, tc.opt)
		assert.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 1e-9, tc.in)
		}
	}
}

func TestSelectPair(t *testing.T) {
	ds, err := Load("pair.csv", strings.NewReader("a,b,c\n1,2,x\n2,4,y\n3,7,z\n"), DefaultOptions())
	require.NoError(t, err)

	xs, ys, err := ds.SelectPair("a", "b")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, xs)
	assert.Equal(t, []float64{2, 4, 7}, ys)

	xs, ys, err = ds.SelectPair("a", "a")
	require.NoError(t, err, "the same column may be chosen twice")
	assert.Equal(t, xs, ys)

	_, _, err = ds.SelectPair("a", "c")
	assert.ErrorIs(t, err, ErrUnknownColumn)
	_, _, err = ds.SelectPair("a", "nope")
	assert.ErrorIs(t, err, ErrUnknownColumn)

	one, err := Load("one.tsv", strings.NewReader("a\tb\n1\tx\n"), DefaultOptions())
	require.NoError(t, err)
	_, _, err = one.SelectPair("a", "a")
	assert.ErrorIs(t, err, ErrTooFewNumeric)
	assert.EqualError(t, err, "select columns one.tsv: dataset must contain numeric columns")
}

func assertDataset(t *testing.T, ds *Dataset, name string) {
	t.Helper()
	assert.Equal(t, name, ds.Name)
	assert.Equal(t, 9, ds.Rows)
	assert.True(t, ds.Truncated)

	numeric, err := ds.RequireNumeric()
	require.NoError(t, err)
	assert.Equal(t, []string{"Concentration (g/L)", "Temp (°F)", "Score", "LocaleNumber"}, numeric)

	for col, want := range map[string][]float64{
		"Concentration (g/L)": wantConcentration,
		"Temp (°F)":           wantTemp,
		"Score":               wantScore,
		"LocaleNumber":        wantLocale,
	} {
		c, ok := ds.Column(col)
		require.True(t, ok, col)
		assert.InDeltaSlice(t, want, c.Values, 1e-9, col)
	}

	group, _ := ds.Column("Group")
	assert.Equal(t, KindText, group.Kind)
	assert.Equal(t, []string{"A", "A", "A", "B", "B", "B", "A", "B", "A"}, group.Raw)

	xs, ys, err := ds.SelectPair("Score", "LocaleNumber")
	require.NoError(t, err)
	res, err := Correlate(xs, ys, Pearson)
	require.NoError(t, err)
	assert.InDelta(t, correlation(wantScore, wantLocale), res.R, 1e-9)
}

func xlsxFixture(t *testing.T) []byte {
	t.Helper()
	raw := strings.ReplaceAll(strings.TrimSpace(xlsxFixtureBase64), "\n", "")
	data, err := base64.StdEncoding.DecodeString(raw)
	require.NoError(t, err, "decode xlsx fixture")
	return data
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// correlation is a direct Pearson formula used to cross-check the library path.
func correlation(a, b []float64) float64 {
	ma := mean(a)
	mb := mean(b)
	var num, da2, db2 float64
	for i := range a {
		da := a[i] - ma
		db := b[i] - mb
		num += da * db
		da2 += da * da
		db2 += db * db
	}
	return num / math.Sqrt(da2*db2)
}
