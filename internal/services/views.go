package services

import (
	"net/http"
	"strings"

	apierrors "petrodash/internal/errors"
	"petrodash/internal/series"
)

// Built-in view names
const (
	ViewFuturesSpreads      = "futures-spreads"
	ViewPipelineTransit     = "pipeline-transit"
	ViewTerminalInventories = "terminal-inventories"
	ViewNominationSchedules = "nomination-schedules"
)

// FilterSpec describes one query filter a view accepts
type FilterSpec struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Options []string `json:"options,omitempty"`
	Default string   `json:"default,omitempty"`
	// Rule is a validator tag for free-form values; Options take precedence
	Rule string `json:"-"`
}

// tag returns the validator tag for the filter's value
func (f FilterSpec) tag() string {
	if len(f.Options) > 0 {
		return "oneof=" + strings.Join(f.Options, " ")
	}
	return f.Rule
}

// ViewSpec declares how a dashboard view is fetched and shaped
type ViewSpec struct {
	Name          string       `json:"name"`
	Title         string       `json:"title"`
	Unit          string       `json:"unit"`
	Endpoint      string       `json:"endpoint"`
	Filters       []FilterSpec `json:"filters"`
	AverageYears  int          `json:"average_years,omitempty"`
	ApplyTariff   bool         `json:"apply_tariff,omitempty"`
	FlagHolidays  bool         `json:"flag_holidays,omitempty"`
	DefaultWindow int          `json:"default_window"`
	// ExcludeNames lists extra non-year series kept out of the envelope
	ExcludeNames []string `json:"-"`
}

// Exclusion is the envelope rule for the view
func (v ViewSpec) Exclusion() series.Exclusion {
	return series.AggregateExclusion().WithNames(v.ExcludeNames...)
}

var products = []string{"RBOB", "ULSD", "JET"}

// DefaultViews is the catalog served by the dashboard
func DefaultViews() []ViewSpec {
	return []ViewSpec{
		{
			Name:     ViewFuturesSpreads,
			Title:    "Futures Calendar Spreads",
			Unit:     "cents/gal",
			Endpoint: "futures/spreads",
			Filters: []FilterSpec{
				{Name: "product", Label: "Product", Options: products, Default: "RBOB"},
				{Name: "spread", Label: "Spread", Options: []string{"M1-M2", "M1-M3", "M2-M3"}, Default: "M1-M2"},
			},
			AverageYears:  5,
			ApplyTariff:   true,
			DefaultWindow: 30,
		},
		{
			Name:     ViewPipelineTransit,
			Title:    "Pipeline Transit Times",
			Unit:     "days",
			Endpoint: "pipeline/transit",
			Filters: []FilterSpec{
				{Name: "line", Label: "Line", Options: []string{"1", "2", "3"}, Default: "1"},
				{Name: "origin", Label: "Origin", Options: []string{"HTN", "PAS", "LKC"}, Default: "HTN"},
				{Name: "destination", Label: "Destination", Options: []string{"GBJ", "ATJ", "LNJ"}, Default: "LNJ"},
			},
			AverageYears:  3,
			DefaultWindow: 60,
		},
		{
			Name:     ViewTerminalInventories,
			Title:    "Terminal Inventories",
			Unit:     "kbbl",
			Endpoint: "inventories/terminals",
			Filters: []FilterSpec{
				{Name: "region", Label: "Region", Options: []string{"gulf-coast", "east-coast", "midwest"}, Default: "gulf-coast"},
				{Name: "product", Label: "Product", Options: products, Default: "ULSD"},
			},
			AverageYears:  5,
			DefaultWindow: 52,
			ExcludeNames:  []string{"CAPACITY"},
		},
		{
			Name:     ViewNominationSchedules,
			Title:    "Nomination Schedules",
			Unit:     "cycle day",
			Endpoint: "nominations/schedule",
			Filters: []FilterSpec{
				{Name: "line", Label: "Line", Options: []string{"1", "2", "3"}, Default: "1"},
				{Name: "cycle", Label: "Cycle", Rule: "omitempty,numeric,min=1,max=2"},
			},
			FlagHolidays:  true,
			DefaultWindow: 30,
		},
	}
}

// Catalog is an ordered, name-indexed set of views
type Catalog struct {
	views []ViewSpec
	index map[string]int
}

// NewCatalog indexes views by name; later duplicates replace earlier ones
func NewCatalog(views []ViewSpec) *Catalog {
	c := &Catalog{index: make(map[string]int, len(views))}
	for _, v := range views {
		if i, ok := c.index[v.Name]; ok {
			c.views[i] = v
			continue
		}
		c.index[v.Name] = len(c.views)
		c.views = append(c.views, v)
	}
	return c
}

// List returns every view in catalog order
func (c *Catalog) List() []ViewSpec {
	out := make([]ViewSpec, len(c.views))
	copy(out, c.views)
	return out
}

// Get returns the named view
func (c *Catalog) Get(name string) (ViewSpec, error) {
	i, ok := c.index[name]
	if !ok {
		return ViewSpec{}, ErrViewNotFound(name)
	}
	return c.views[i], nil
}

// ErrViewNotFound reports an unknown view name
func ErrViewNotFound(name string) *apierrors.APIError {
	return apierrors.NewWithDetails(http.StatusNotFound, "VIEW_NOT_FOUND", "view "+name+" does not exist", map[string]string{"view": name})
}
