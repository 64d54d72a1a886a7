// Package era5 builds ERA5 reanalysis retrieval requests and submits them to
// the Copernicus Climate Data Store (CDS) retrieve API.
package era5

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DatasetSingleLevels   = "reanalysis-era5-single-levels"
	DatasetPressureLevels = "reanalysis-era5-pressure-levels"
	DatasetComplete       = "reanalysis-era5-complete"
)

var ErrInvalidRequest = errors.New("era5: invalid request")

// Area is a bounding box in degrees.
type Area struct {
	North float64 `yaml:"north"`
	West  float64 `yaml:"west"`
	South float64 `yaml:"south"`
	East  float64 `yaml:"east"`
}

func (a Area) Validate() error {
	if a.North < -90 || a.North > 90 || a.South < -90 || a.South > 90 {
		return fmt.Errorf("area latitude out of range [-90, 90]: %w", ErrInvalidRequest)
	}
	if a.North < a.South {
		return fmt.Errorf("area north %v below south %v: %w", a.North, a.South, ErrInvalidRequest)
	}
	if a.West < -360 || a.West > 360 || a.East < -360 || a.East > 360 {
		return fmt.Errorf("area longitude out of range: %w", ErrInvalidRequest)
	}
	return nil
}

// List returns [N, W, S, E], the order CDS expects.
func (a Area) List() []float64 {
	return []float64{a.North, a.West, a.South, a.East}
}

// MARS returns "N/W/S/E".
func (a Area) MARS() string {
	return strings.Join([]string{ftoa(a.North), ftoa(a.West), ftoa(a.South), ftoa(a.East)}, "/")
}

// Grid is the output resolution in degrees.
type Grid struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

func (g Grid) Validate() error {
	if g.Lat <= 0 || g.Lon <= 0 {
		return fmt.Errorf("grid spacing must be positive: %w", ErrInvalidRequest)
	}
	return nil
}

// MARSKeys are the fields of a reanalysis-era5-complete (MARS) request.
type MARSKeys struct {
	Class   string `yaml:"class"`
	Expver  string `yaml:"expver"`
	Stream  string `yaml:"stream"`
	Type    string `yaml:"type"`
	Param   string `yaml:"param"`
	LevType string `yaml:"levtype"`
	LevList string `yaml:"levelist"`
	Date    string `yaml:"date"`
	Time    string `yaml:"time"`
}

// Request describes one ERA5 retrieval. Which fields apply depends on Dataset.
type Request struct {
	Dataset        string   `yaml:"dataset"`
	ProductType    string   `yaml:"product_type"`
	Variables      []string `yaml:"variables"`
	PressureLevels []string `yaml:"pressure_levels"`
	Years          []string `yaml:"years"`
	Months         []string `yaml:"months"`
	Days           []string `yaml:"days"`
	Times          []string `yaml:"times"`
	Date           string   `yaml:"date"`
	Area           *Area    `yaml:"area"`
	Grid           *Grid    `yaml:"grid"`
	Format         string   `yaml:"format"`
	MARS           MARSKeys `yaml:"mars"`
}

// LoadRequest decodes a YAML request description, fills defaults and validates it.
func LoadRequest(r io.Reader) (Request, error) {
	var req Request
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// WithDefaults returns a copy with the defaults the CDS web form would apply.
func (r Request) WithDefaults() Request {
	switch r.Dataset {
	case DatasetSingleLevels, DatasetPressureLevels:
		if r.ProductType == "" {
			r.ProductType = "reanalysis"
		}
		if r.Format == "" {
			r.Format = "netcdf"
		}
		if len(r.Months) == 0 && r.Date == "" {
			r.Months = AllMonths()
		}
		if len(r.Days) == 0 && r.Date == "" {
			r.Days = AllDays()
		}
		if len(r.Times) == 0 {
			r.Times = SynopticTimes(6)
		}
	case DatasetComplete:
		m := &r.MARS
		if m.Class == "" {
			m.Class = "ea"
		}
		if m.Expver == "" {
			m.Expver = "1"
		}
		if m.Stream == "" {
			m.Stream = "oper"
		}
		if m.Type == "" {
			m.Type = "an"
		}
		if m.LevType == "" {
			m.LevType = "ml"
		}
		if r.Format == "" {
			r.Format = "grib"
		}
	}
	return r
}

func (r Request) Validate() error {
	if r.Area != nil {
		if err := r.Area.Validate(); err != nil {
			return err
		}
	}
	if r.Grid != nil {
		if err := r.Grid.Validate(); err != nil {
			return err
		}
	}
	switch r.Format {
	case "netcdf", "grib", "":
	default:
		return fmt.Errorf("format %q: %w", r.Format, ErrInvalidRequest)
	}

	switch r.Dataset {
	case DatasetSingleLevels, DatasetPressureLevels:
		if len(r.Variables) == 0 {
			return fmt.Errorf("%s: at least one variable required: %w", r.Dataset, ErrInvalidRequest)
		}
		if r.Dataset == DatasetPressureLevels && len(r.PressureLevels) == 0 {
			return fmt.Errorf("%s: pressure_levels required: %w", r.Dataset, ErrInvalidRequest)
		}
		if r.Dataset == DatasetSingleLevels && len(r.PressureLevels) > 0 {
			return fmt.Errorf("%s: pressure_levels not allowed: %w", r.Dataset, ErrInvalidRequest)
		}
		if r.Date == "" && len(r.Years) == 0 {
			return fmt.Errorf("%s: years or date required: %w", r.Dataset, ErrInvalidRequest)
		}
		for _, y := range r.Years {
			if _, err := strconv.Atoi(y); err != nil || len(y) != 4 {
				return fmt.Errorf("year %q: %w", y, ErrInvalidRequest)
			}
		}
		if err := checkRange("month", r.Months, 1, 12); err != nil {
			return err
		}
		if err := checkRange("day", r.Days, 1, 31); err != nil {
			return err
		}
		for _, t := range r.Times {
			if !validTime(t) {
				return fmt.Errorf("time %q: %w", t, ErrInvalidRequest)
			}
		}
	case DatasetComplete:
		if r.MARS.Param == "" || r.MARS.Date == "" || r.MARS.Time == "" {
			return fmt.Errorf("%s: mars param, date and time required: %w", r.Dataset, ErrInvalidRequest)
		}
		if r.MARS.LevType != "sfc" && r.MARS.LevList == "" {
			return fmt.Errorf("%s: levelist required for levtype %q: %w", r.Dataset, r.MARS.LevType, ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("unknown dataset %q: %w", r.Dataset, ErrInvalidRequest)
	}
	return nil
}

// Inputs renders the request as the CDS "inputs" document.
func (r Request) Inputs() map[string]any {
	in := map[string]any{}
	switch r.Dataset {
	case DatasetComplete:
		m := r.MARS
		in["class"] = m.Class
		in["expver"] = m.Expver
		in["stream"] = m.Stream
		in["type"] = m.Type
		in["param"] = m.Param
		in["levtype"] = m.LevType
		if m.LevList != "" {
			in["levelist"] = m.LevList
		}
		in["date"] = m.Date
		in["time"] = m.Time
		if r.Area != nil {
			in["area"] = r.Area.MARS()
		}
		if r.Grid != nil {
			in["grid"] = ftoa(r.Grid.Lat) + "/" + ftoa(r.Grid.Lon)
		}
	default:
		in["product_type"] = []string{r.ProductType}
		in["variable"] = r.Variables
		if len(r.PressureLevels) > 0 {
			in["pressure_level"] = r.PressureLevels
		}
		if r.Date != "" {
			in["date"] = r.Date
		} else {
			in["year"] = r.Years
			in["month"] = r.Months
			in["day"] = r.Days
		}
		in["time"] = r.Times
		if r.Area != nil {
			in["area"] = r.Area.List()
		}
		if r.Grid != nil {
			in["grid"] = []float64{r.Grid.Lat, r.Grid.Lon}
		}
	}
	if r.Format != "" {
		in["data_format"] = r.Format
	}
	return in
}

func checkRange(name string, vals []string, lo, hi int) error {
	for _, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil || n < lo || n > hi {
			return fmt.Errorf("%s %q: %w", name, v, ErrInvalidRequest)
		}
	}
	return nil
}

func validTime(t string) bool {
	hh, mm, ok := strings.Cut(t, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return false
	}
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	return err1 == nil && err2 == nil && h >= 0 && h < 24 && m >= 0 && m < 60
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
