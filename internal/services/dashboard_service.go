package services

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"petrodash/internal/config"
	apierrors "petrodash/internal/errors"
	"petrodash/internal/fetch"
	"petrodash/internal/infrastructure"
	"petrodash/internal/preferences"
	"petrodash/internal/series"
	"petrodash/internal/upstream"
	"petrodash/internal/validation"
)

// overviewConcurrency bounds simultaneous upstream fetches for the overview
const overviewConcurrency = 4

// DashboardService turns upstream series into chart and table payloads
type DashboardService struct {
	catalog  *Catalog
	source   SeriesSource
	prefs    preferences.Store
	registry *fetch.Registry
	validate *validation.Validator
	logger   *slog.Logger
	metrics  *infrastructure.BusinessMetrics
	now      func() time.Time
}

// NewDashboardService creates a dashboard service
func NewDashboardService(catalog *Catalog, source SeriesSource, prefs preferences.Store, registry *fetch.Registry, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = fetch.NewRegistry(logger, metrics)
	}
	return &DashboardService{
		catalog:  catalog,
		source:   source,
		prefs:    prefs,
		registry: registry,
		validate: validation.New(),
		logger:   logger.With(slog.String("service", "dashboard")),
		metrics:  metrics,
		now:      time.Now,
	}
}

// Views lists the catalog
func (s *DashboardService) Views() []ViewSpec {
	return s.catalog.List()
}

// ChartQuery selects a chart
type ChartQuery struct {
	UserID  string
	View    string
	Filters map[string]string
	// Window is the number of positions to show: 0 uses the view default,
	// negative shows the whole axis
	Window int
	// Anchor names the series whose observations define the window;
	// empty means the latest year
	Anchor string
}

// Dataset is one line on a chart
type Dataset struct {
	Label     string     `json:"label"`
	Data      []*float64 `json:"data"`
	Aggregate bool       `json:"aggregate,omitempty"`
}

// Chart is the payload for one rendered chart
type Chart struct {
	View           string            `json:"view"`
	Title          string            `json:"title"`
	Unit           string            `json:"unit"`
	Filters        map[string]string `json:"filters"`
	Labels         []series.DateKey  `json:"labels"`
	Datasets       []Dataset         `json:"datasets"`
	Min            []*float64        `json:"min"`
	Max            []*float64        `json:"max"`
	Anchor         string            `json:"anchor,omitempty"`
	Window         int               `json:"window"`
	TotalPositions int               `json:"total_positions"`
	Adjustment     float64           `json:"adjustment,omitempty"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// Chart builds the chart payload for q
func (s *DashboardService) Chart(ctx context.Context, q ChartQuery) (*Chart, error) {
	spec, err := s.catalog.Get(q.View)
	if err != nil {
		return nil, err
	}
	filters, err := s.ResolveFilters(spec, q.Filters)
	if err != nil {
		return nil, err
	}

	frame, adjustment, err := s.load(ctx, spec, q.UserID, filters)
	if err != nil {
		return nil, err
	}

	anchor := q.Anchor
	if anchor == "" {
		anchor = latestYearName(frame)
	}
	window := q.Window
	switch {
	case window == 0:
		window = spec.DefaultWindow
	case window > config.MaxChartWindow:
		window = config.MaxChartWindow
	}

	shown := frame
	if window > 0 {
		shown = frame.Recent(anchor, window)
	}
	return s.chartFromFrame(spec, filters, shown, anchor, window, len(frame.Axis), adjustment), nil
}

func (s *DashboardService) chartFromFrame(spec ViewSpec, filters map[string]string, frame series.Frame, anchor string, window, total int, adjustment float64) *Chart {
	c := &Chart{
		View:           spec.Name,
		Title:          spec.Title,
		Unit:           spec.Unit,
		Filters:        filters,
		Labels:         frame.Axis,
		Datasets:       make([]Dataset, 0, len(frame.Series)),
		Min:            make([]*float64, len(frame.Envelope)),
		Max:            make([]*float64, len(frame.Envelope)),
		Anchor:         anchor,
		Window:         window,
		TotalPositions: total,
		Adjustment:     adjustment,
		GeneratedAt:    s.now().UTC(),
	}
	for _, ds := range frame.Series {
		c.Datasets = append(c.Datasets, Dataset{Label: ds.Name, Data: ds.Values, Aggregate: ds.Aggregate})
	}
	for i, b := range frame.Envelope {
		c.Min[i], c.Max[i] = b.Min, b.Max
	}
	return c
}

// TableQuery selects one page of a view's table
type TableQuery struct {
	UserID   string
	View     string
	Filters  map[string]string
	Page     int
	PageSize int
}

// TableRow is a table line with its holiday flag
type TableRow struct {
	series.Row
	Holiday string `json:"holiday,omitempty"`
}

// Table is one page of a view's data, newest date first
type Table struct {
	View       string            `json:"view"`
	Filters    map[string]string `json:"filters"`
	Columns    []string          `json:"columns"`
	Rows       []TableRow        `json:"rows"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalRows  int               `json:"total_rows"`
	TotalPages int               `json:"total_pages"`
}

// Table builds a paginated table for q. Views that flag holidays mark rows
// falling on a holiday in the user's calendar for the latest year shown.
func (s *DashboardService) Table(ctx context.Context, q TableQuery) (*Table, error) {
	spec, err := s.catalog.Get(q.View)
	if err != nil {
		return nil, err
	}
	filters, err := s.ResolveFilters(spec, q.Filters)
	if err != nil {
		return nil, err
	}
	frame, _, err := s.load(ctx, spec, q.UserID, filters)
	if err != nil {
		return nil, err
	}

	size := q.PageSize
	if size > config.MaxPageSize {
		size = config.MaxPageSize
	}
	page := series.Paginate(frame.Rows(), q.Page, size)

	var holidays map[series.DateKey]string
	if spec.FlagHolidays && q.UserID != "" {
		if year, ok := latestYear(frame); ok {
			prefs, err := s.prefs.Get(ctx, q.UserID)
			if err != nil {
				s.logger.WarnContext(ctx, "holiday calendar unavailable, rows left unflagged",
					slog.String("view", spec.Name),
					slog.String("error", err.Error()))
			} else {
				holidays = prefs.HolidaysIn(year)
			}
		}
	}

	t := &Table{
		View:       spec.Name,
		Filters:    filters,
		Columns:    make([]string, 0, len(frame.Series)),
		Rows:       make([]TableRow, len(page.Rows)),
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalRows:  page.TotalRows,
		TotalPages: page.TotalPages,
	}
	for _, ds := range frame.Series {
		t.Columns = append(t.Columns, ds.Name)
	}
	for i, row := range page.Rows {
		t.Rows[i] = TableRow{Row: row, Holiday: holidays[row.Date]}
	}
	return t, nil
}

// Frame returns the full aligned frame for a view together with the
// filters it was fetched with, used by exports
func (s *DashboardService) Frame(ctx context.Context, userID, view string, filters map[string]string) (ViewSpec, map[string]string, series.Frame, error) {
	spec, err := s.catalog.Get(view)
	if err != nil {
		return ViewSpec{}, nil, series.Frame{}, err
	}
	resolved, err := s.ResolveFilters(spec, filters)
	if err != nil {
		return ViewSpec{}, nil, series.Frame{}, err
	}
	frame, _, err := s.load(ctx, spec, userID, resolved)
	return spec, resolved, frame, err
}

// OverviewEntry is one view's result in the overview; a failed view carries
// its error and does not affect the others
type OverviewEntry struct {
	View  string `json:"view"`
	Chart *Chart `json:"chart,omitempty"`
	Error string `json:"error,omitempty"`
}

// Overview fetches the default chart of every named view concurrently
func (s *DashboardService) Overview(ctx context.Context, userID string, views []string) ([]OverviewEntry, error) {
	if len(views) == 0 {
		for _, v := range s.catalog.List() {
			views = append(views, v.Name)
		}
	}
	for _, name := range views {
		if _, err := s.catalog.Get(name); err != nil {
			return nil, err
		}
	}

	entries := make([]OverviewEntry, len(views))
	var g errgroup.Group
	g.SetLimit(overviewConcurrency)
	for i, name := range views {
		g.Go(func() error {
			entries[i].View = name
			chart, err := s.Chart(ctx, ChartQuery{UserID: userID, View: name})
			if err != nil {
				entries[i].Error = err.Error()
				return nil
			}
			entries[i].Chart = chart
			return nil
		})
	}
	g.Wait()
	return entries, nil
}

// State returns the last applied result for a user's view
func (s *DashboardService) State(userID, view string) (fetch.State, error) {
	if _, err := s.catalog.Get(view); err != nil {
		return fetch.State{}, err
	}
	st, ok := s.registry.Snapshot(fetch.Key(view, userID))
	if !ok {
		return fetch.State{}, apierrors.NotFoundError("state for view " + view)
	}
	return st, nil
}

// ResolveFilters applies defaults and validates the filters for spec.
// Unknown filter names are rejected.
func (s *DashboardService) ResolveFilters(spec ViewSpec, given map[string]string) (map[string]string, error) {
	known := make(map[string]bool, len(spec.Filters))
	for _, f := range spec.Filters {
		known[f.Name] = true
	}
	var unknown []apierrors.ValidationError
	for name := range given {
		if !known[name] {
			unknown = append(unknown, apierrors.ValidationError{Field: name, Message: name + " is not a filter of " + spec.Name})
		}
	}
	if len(unknown) > 0 {
		sort.Slice(unknown, func(i, j int) bool { return unknown[i].Field < unknown[j].Field })
		return nil, apierrors.NewValidationErrors(unknown)
	}

	out := make(map[string]string, len(spec.Filters))
	for _, f := range spec.Filters {
		value, ok := given[f.Name]
		if !ok || value == "" {
			value = f.Default
		}
		if tag := f.tag(); tag != "" && value != "" {
			if err := s.validate.Var(f.Name, value, tag); err != nil {
				return nil, err
			}
		}
		if value != "" {
			out[f.Name] = value
		}
	}
	return out, nil
}

// load fetches and aligns a view through the registry so that only the
// newest request per user and view updates the shared state
func (s *DashboardService) load(ctx context.Context, spec ViewSpec, userID string, filters map[string]string) (series.Frame, float64, error) {
	adjustment := 0.0
	if spec.ApplyTariff && userID != "" {
		prefs, err := s.prefs.Get(ctx, userID)
		if err != nil {
			s.logger.WarnContext(ctx, "tariff constant unavailable, showing unadjusted values",
				slog.String("view", spec.Name),
				slog.String("error", err.Error()))
		} else {
			adjustment = prefs.TariffConstant
		}
	}

	loader := func(ctx context.Context) (series.Frame, error) {
		raw, err := s.source.FetchSeries(ctx, spec.Endpoint, upstream.EncodeFilters(filters))
		if err != nil {
			return series.Frame{}, err
		}
		parsed, failures := series.FromRaw(raw, s.logger)
		parsed = derive(spec, parsed, adjustment)
		frame := series.Align(parsed, spec.Exclusion())
		s.metrics.RecordAlignment(ctx, spec.Name, len(frame.Axis), len(failures))
		return frame, nil
	}

	frame, err := s.registry.Load(ctx, fetch.Key(spec.Name, userID), spec.Name, filters, loader)
	if err == fetch.ErrSuperseded {
		// a newer request owns the shared state; this caller's frame is still valid
		s.logger.DebugContext(ctx, "request superseded", slog.String("view", spec.Name))
		err = nil
	}
	if err != nil {
		s.logger.WarnContext(ctx, "view load failed",
			slog.String("view", spec.Name),
			slog.String("error", err.Error()))
		return series.Frame{}, 0, err
	}
	return frame, adjustment, nil
}

// derive synthesizes the N-year average when upstream did not provide one,
// then applies the tariff adjustment to the years and the average alike.
// Series named in ExcludeNames keep their upstream values.
func derive(spec ViewSpec, parsed []series.NamedSeries, adjustment float64) []series.NamedSeries {
	parsed = withAverage(spec, parsed)
	if adjustment == 0 {
		return parsed
	}
	fixed := series.ExcludeNames(spec.ExcludeNames...)
	for i, s := range parsed {
		if !fixed.Excludes(s.Name) {
			parsed[i] = series.Adjust(s, adjustment)
		}
	}
	return parsed
}

func withAverage(spec ViewSpec, parsed []series.NamedSeries) []series.NamedSeries {
	if spec.AverageYears <= 0 {
		return parsed
	}
	name := series.AverageName(spec.AverageYears)
	if _, exists := series.Find(parsed, name); exists {
		return parsed
	}
	latest, ok := series.LatestYear(parsed)
	if !ok {
		return parsed
	}
	members := series.PriorYears(parsed, latest, spec.AverageYears)
	if len(members) == 0 {
		return parsed
	}
	return append(parsed, series.Average(name, members))
}

func latestYear(frame series.Frame) (int, bool) {
	latest, found := 0, false
	for _, s := range frame.Series {
		year, err := strconv.Atoi(s.Name)
		if err != nil {
			continue
		}
		if !found || year > latest {
			latest, found = year, true
		}
	}
	return latest, found
}

func latestYearName(frame series.Frame) string {
	if year, ok := latestYear(frame); ok {
		return strconv.Itoa(year)
	}
	return ""
}
