package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Report is an in-memory report ready to be rendered.
type Report struct {
	Metadata Metadata    `json:"metadata"`
	Summary  Summary     `json:"summary"`
	Data     []Row       `json:"data"`
	Charts   []ChartSpec `json:"charts,omitempty"`
}

// Metadata describes a generated report.
type Metadata struct {
	Title        string     `json:"title"`
	ReportType   string     `json:"reportType"`
	GeneratedAt  time.Time  `json:"generatedAt"`
	DateRange    *DateRange `json:"dateRange,omitempty"`
	TotalRecords int        `json:"totalRecords"`
}

// DateRange is the inclusive period a report covers.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// String renders the range for display.
func (d *DateRange) String() string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("%s - %s", d.StartDate, d.EndDate)
}

// Summary holds the report aggregations in display order.
type Summary struct {
	Aggregations Row `json:"aggregations"`
}

// ChartSpec describes chart data attached to a report.
type ChartSpec struct {
	Type   string    `json:"type"`
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Cell is one key/value pair of a row.
type Cell struct {
	Key   string
	Value interface{}
}

// Row is an ordered record; column order follows cell order.
type Row []Cell

// Get returns the value stored under key.
func (r Row) Get(key string) (interface{}, bool) {
	for _, cell := range r {
		if cell.Key == key {
			return cell.Value, true
		}
	}
	return nil, false
}

// Keys lists the row keys in order.
func (r Row) Keys() []string {
	keys := make([]string, len(r))
	for i, cell := range r {
		keys[i] = cell.Key
	}
	return keys
}

// MarshalJSON encodes the row as a JSON object preserving key order.
func (r Row) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, cell := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cell.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(cell.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", cell.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Columns returns the data columns derived from the first row.
func (r Report) Columns() []string {
	if len(r.Data) == 0 {
		return nil
	}
	return r.Data[0].Keys()
}

// FormatHeader turns a camelCase or snake_case key into "Title Case With Spaces".
func FormatHeader(key string) string {
	var b strings.Builder
	runes := []rune(key)
	for i, ch := range runes {
		if ch == '_' || ch == '-' {
			b.WriteRune(' ')
			continue
		}
		if i > 0 && unicode.IsUpper(ch) {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				b.WriteRune(' ')
			}
		}
		b.WriteRune(ch)
	}
	words := strings.Fields(b.String())
	for i, word := range words {
		r := []rune(word)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FormatValue renders a cell value according to its column header.
func FormatValue(header string, value interface{}) string {
	if value == nil {
		return ""
	}
	lower := strings.ToLower(header)

	if num, ok := toFloat(value); ok {
		switch {
		case strings.Contains(lower, "percentage"):
			return fmt.Sprintf("%.2f%%", num)
		case strings.Contains(lower, "amount") || strings.Contains(lower, "fee"):
			return fmt.Sprintf("$%.2f", num)
		}
	}

	switch v := value.(type) {
	case string:
		if strings.Contains(lower, "date") {
			return formatDateString(v)
		}
		return v
	case time.Time:
		if strings.Contains(lower, "date") {
			return v.Format("1/2/2006")
		}
		return v.Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return ""
		}
		return FormatValue(header, *v)
	case *string:
		if v == nil {
			return ""
		}
		return FormatValue(header, *v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

func formatDateString(raw string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("1/2/2006")
		}
	}
	return raw
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
