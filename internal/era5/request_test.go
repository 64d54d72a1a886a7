package era5

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slpYAML = `
dataset: reanalysis-era5-single-levels
variables: ["mean_sea_level_pressure"]
years: ["1979"]
area: {north: 20, west: -165, south: -60, east: -12}
grid: {lat: 0.5, lon: 0.5}
`

func TestLoadRequest_SingleLevelsDefaults(t *testing.T) {
	req, err := LoadRequest(strings.NewReader(slpYAML))
	require.NoError(t, err)

	assert.Equal(t, "reanalysis", req.ProductType)
	assert.Equal(t, "netcdf", req.Format)
	assert.Len(t, req.Months, 12)
	assert.Len(t, req.Days, 31)
	assert.Equal(t, []string{"00:00", "06:00", "12:00", "18:00"}, req.Times)

	in := req.Inputs()
	assert.Equal(t, []string{"reanalysis"}, in["product_type"])
	assert.Equal(t, []string{"mean_sea_level_pressure"}, in["variable"])
	assert.Equal(t, []float64{20, -165, -60, -12}, in["area"])
	assert.Equal(t, []float64{0.5, 0.5}, in["grid"])
	assert.Equal(t, "netcdf", in["data_format"])
	assert.NotContains(t, in, "pressure_level")
}

func TestLoadRequest_UnknownField(t *testing.T) {
	_, err := LoadRequest(strings.NewReader(slpYAML + "colour: blue\n"))
	assert.Error(t, err)
}

func TestLoadRequest_Complete(t *testing.T) {
	doc := `
dataset: reanalysis-era5-complete
area: {north: 60, west: -150, south: 10, east: -100}
grid: {lat: 0.25, lon: 0.25}
mars:
  param: 129/130/131/132/133/152
  levelist: 1/to/137
  date: 20180706/to/20180707
  time: 00/to/23/by/3
`
	req, err := LoadRequest(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "grib", req.Format)

	in := req.Inputs()
	assert.Equal(t, "ea", in["class"])
	assert.Equal(t, "ml", in["levtype"])
	assert.Equal(t, "60/-150/10/-100", in["area"])
	assert.Equal(t, "0.25/0.25", in["grid"])
	assert.Equal(t, "1/to/137", in["levelist"])
}

func TestRequest_Validate(t *testing.T) {
	good := Request{
		Dataset:        DatasetPressureLevels,
		Variables:      []string{"geopotential"},
		PressureLevels: []string{"500"},
		Years:          []string{"2009"},
	}.WithDefaults()
	require.NoError(t, good.Validate())

	cases := map[string]func(r *Request){
		"unknown dataset":    func(r *Request) { r.Dataset = "reanalysis-era6" },
		"no variables":       func(r *Request) { r.Variables = nil },
		"no pressure levels": func(r *Request) { r.PressureLevels = nil },
		"bad year":           func(r *Request) { r.Years = []string{"09"} },
		"bad month":          func(r *Request) { r.Months = []string{"13"} },
		"bad day":            func(r *Request) { r.Days = []string{"00"} },
		"bad time":           func(r *Request) { r.Times = []string{"6:00"} },
		"bad format":         func(r *Request) { r.Format = "csv" },
		"inverted area":      func(r *Request) { r.Area = &Area{North: -10, South: 10} },
		"latitude off globe": func(r *Request) { r.Area = &Area{North: 95, South: 10} },
		"non-positive grid":  func(r *Request) { r.Grid = &Grid{Lat: 0, Lon: 1} },
		"missing years":      func(r *Request) { r.Years = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := good
			mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))
		})
	}
}

func TestRequest_SingleLevelsRejectsPressureLevels(t *testing.T) {
	r := Request{
		Dataset:        DatasetSingleLevels,
		Variables:      []string{"2m_temperature"},
		PressureLevels: []string{"850"},
		Years:          []string{"2000"},
	}.WithDefaults()
	assert.ErrorIs(t, r.Validate(), ErrInvalidRequest)
}

func TestCalendarHelpers(t *testing.T) {
	assert.Equal(t, "01", AllMonths()[0])
	assert.Equal(t, "12", AllMonths()[11])
	assert.Equal(t, "31", AllDays()[30])
	assert.Equal(t, []string{"00:00", "03:00", "06:00", "09:00", "12:00", "15:00", "18:00", "21:00"}, SynopticTimes(3))
	assert.Equal(t, []string{"00:00"}, SynopticTimes(0))

	d1 := time.Date(2018, 7, 6, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2018, 7, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "20180706/to/20180707", MARSDateRange(d1, d2))
	assert.Equal(t, "00/to/23/by/3", MARSTimeRange(0, 23, 3))
}
