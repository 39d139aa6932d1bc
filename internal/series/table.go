package series

// DefaultPageSize is used when a caller asks for a non-positive page size
const DefaultPageSize = 25

// Row is one table line: a date and the value of every series on it
type Row struct {
	Date   DateKey             `json:"date"`
	Values map[string]*float64 `json:"values"`
	Low    *float64            `json:"low,omitempty"`
	High   *float64            `json:"high,omitempty"`
}

// Page is one slice of a paginated table
type Page struct {
	Rows       []Row `json:"rows"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalRows  int   `json:"total_rows"`
	TotalPages int   `json:"total_pages"`
}

// Rows lays the frame out as table rows, most recent first
func (f Frame) Rows() []Row {
	rows := make([]Row, len(f.Axis))
	for j := range f.Axis {
		i := len(f.Axis) - 1 - j
		row := Row{Date: f.Axis[i], Values: make(map[string]*float64, len(f.Series))}
		for _, s := range f.Series {
			row.Values[s.Name] = s.Values[i]
		}
		if i < len(f.Envelope) {
			row.Low, row.High = f.Envelope[i].Min, f.Envelope[i].Max
		}
		rows[j] = row
	}
	return rows
}

// Paginate returns the 1-based page of rows. Pages past the end are empty but
// still report totals.
func Paginate(rows []Row, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	total := len(rows)
	p := Page{
		Rows:       []Row{},
		Page:       page,
		PageSize:   size,
		TotalRows:  total,
		TotalPages: (total + size - 1) / size,
	}

	start := (page - 1) * size
	if start >= total {
		return p
	}
	end := min(start+size, total)
	p.Rows = rows[start:end]
	return p
}
