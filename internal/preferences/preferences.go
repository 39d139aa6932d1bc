package preferences

import (
	"context"
	"slices"
	"strings"
	"time"

	"petrodash/internal/series"
)

// HolidayLayout is the wire format of Holiday.Date
const HolidayLayout = "2006-01-02"

// Holiday is one non-trading day in a user's calendar
type Holiday struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Name string `json:"name,omitempty" validate:"max=100"`
}

// Time parses the holiday date
func (h Holiday) Time() (time.Time, error) {
	return time.Parse(HolidayLayout, h.Date)
}

// Preferences is everything a user can customize
type Preferences struct {
	Holidays       []Holiday `json:"holidays" validate:"max=400,dive"`
	TariffConstant float64   `json:"tariff_constant" validate:"gte=-1000,lte=1000"`
}

// Store reads and writes preferences for a user. Get on a user that never
// saved anything returns zero Preferences and no error.
type Store interface {
	Get(ctx context.Context, userID string) (Preferences, error)
	Set(ctx context.Context, userID string, prefs Preferences) error
}

// Clone returns a deep copy
func (p Preferences) Clone() Preferences {
	out := p
	out.Holidays = slices.Clone(p.Holidays)
	if out.Holidays == nil {
		out.Holidays = []Holiday{}
	}
	return out
}

// AddHoliday inserts h, replacing any holiday on the same date, and keeps the
// calendar sorted by date
func (p *Preferences) AddHoliday(h Holiday) {
	h.Name = strings.TrimSpace(h.Name)
	for i := range p.Holidays {
		if p.Holidays[i].Date == h.Date {
			p.Holidays[i] = h
			return
		}
	}
	p.Holidays = append(p.Holidays, h)
	slices.SortFunc(p.Holidays, func(a, b Holiday) int { return strings.Compare(a.Date, b.Date) })
}

// RemoveHoliday deletes the holiday on date and reports whether one existed
func (p *Preferences) RemoveHoliday(date string) bool {
	before := len(p.Holidays)
	p.Holidays = slices.DeleteFunc(p.Holidays, func(h Holiday) bool { return h.Date == date })
	return len(p.Holidays) != before
}

// HolidaysIn returns the holidays falling in year keyed by calendar day.
// Entries that do not parse, or land on Feb 29, are skipped.
func (p Preferences) HolidaysIn(year int) map[series.DateKey]string {
	out := make(map[series.DateKey]string)
	for _, h := range p.Holidays {
		t, err := h.Time()
		if err != nil || t.Year() != year {
			continue
		}
		k, err := series.NewDateKey(t.Month(), t.Day())
		if err != nil {
			continue
		}
		name := h.Name
		if name == "" {
			name = "Holiday"
		}
		out[k] = name
	}
	return out
}
