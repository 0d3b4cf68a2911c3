package market

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// BarFeed yields SyncedBars one at a time. Implementations must be
// deterministic and return (ok=false, err=nil) at EOF.
type BarFeed interface {
	Next() (b SyncedBar, ok bool, err error)
	Close() error
}

// SliceFeed replays a pre-materialized bar slice. Used by tests and by
// the JSON dataset loader.
type SliceFeed struct {
	bars []SyncedBar
	idx  int
}

func NewSliceFeed(bars []SyncedBar) *SliceFeed {
	return &SliceFeed{bars: bars}
}

func (f *SliceFeed) Next() (SyncedBar, bool, error) {
	if f.idx >= len(f.bars) {
		return SyncedBar{}, false, nil
	}
	b := f.bars[f.idx]
	f.idx++
	return b, true, nil
}

func (f *SliceFeed) Close() error { return nil }

// Dataset is the on-disk input document: synchronized bars plus the
// optional contract list and expiry date used for strike selection and
// days-to-expiry.
type Dataset struct {
	Bars      []SyncedBar
	Contracts []Contract
	Expiry    string // YYYY-MM-DD, empty when unknown
}

// rawBar is the wire form of a SyncedBar: candles as positional arrays
// [ts, open, high, low, close, volume(, open_interest)].
type rawBar struct {
	Timestamp  int64     `json:"timestamp"`
	Underlying []float64 `json:"underlying"`
	Option     []float64 `json:"option"`
}

type rawDataset struct {
	Bars      []rawBar   `json:"bars"`
	Contracts []Contract `json:"contracts,omitempty"`
	Expiry    string     `json:"expiry,omitempty"`
}

// LoadDataset reads a JSON dataset. Both a full document
// {"bars": [...], "contracts": [...], "expiry": "..."} and a bare
// top-level bar array are accepted.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var raw rawDataset
	if err := json.Unmarshal(data, &raw); err != nil {
		var bare []rawBar
		if err2 := json.Unmarshal(data, &bare); err2 != nil {
			return nil, fmt.Errorf("parse dataset %s: %w", path, err)
		}
		raw.Bars = bare
	}

	ds := &Dataset{
		Contracts: raw.Contracts,
		Expiry:    raw.Expiry,
		Bars:      make([]SyncedBar, 0, len(raw.Bars)),
	}
	for i, rb := range raw.Bars {
		b, err := rb.toBar()
		if err != nil {
			return nil, fmt.Errorf("dataset %s bar %d: %w", path, i, err)
		}
		ds.Bars = append(ds.Bars, b)
	}
	return ds, nil
}

func (rb rawBar) toBar() (SyncedBar, error) {
	u, err := candleFromRow(rb.Underlying)
	if err != nil {
		return SyncedBar{}, fmt.Errorf("underlying: %w", err)
	}
	o, err := candleFromRow(rb.Option)
	if err != nil {
		return SyncedBar{}, fmt.Errorf("option: %w", err)
	}
	t := FromEpochMillis(rb.Timestamp)
	u.Time = t
	o.Time = t
	return SyncedBar{Time: t, Underlying: u, Option: o}, nil
}

func candleFromRow(row []float64) (Candle, error) {
	if len(row) < 6 {
		return Candle{}, fmt.Errorf("need [ts,o,h,l,c,v], got %d fields", len(row))
	}
	c := Candle{
		Open:   row[1],
		High:   row[2],
		Low:    row[3],
		Close:  row[4],
		Volume: row[5],
	}
	if len(row) > 6 {
		c.OpenInterest = row[6]
	}
	return c, nil
}

// CSVBarsFeed reads synchronized bars from CSV rows:
//
//	timestamp_ms,u_open,u_high,u_low,u_close,u_volume,o_open,o_high,o_low,o_close,o_volume
//
// A single header row starting with "timestamp" is allowed. Empty and
// short rows are skipped.
type CSVBarsFeed struct {
	f *os.File
	r *csv.Reader

	sawFirst bool
}

func NewCSVBarsFeed(path string) (*CSVBarsFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	return &CSVBarsFeed{f: f, r: r}, nil
}

func (f *CSVBarsFeed) Close() error {
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

func (f *CSVBarsFeed) Next() (SyncedBar, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return SyncedBar{}, false, nil
		}
		if err != nil {
			return SyncedBar{}, false, err
		}
		if len(row) == 0 {
			continue
		}

		// Allow a single header row.
		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "timestamp") ||
				strings.EqualFold(strings.TrimSpace(row[0]), "timestamp_ms") {
				continue
			}
		}

		b, ok, err := parseBarRow(row)
		if err != nil {
			return SyncedBar{}, false, err
		}
		if !ok {
			continue
		}
		return b, true, nil
	}
}

func parseBarRow(row []string) (SyncedBar, bool, error) {
	if len(row) < 11 {
		return SyncedBar{}, false, nil
	}

	ms, err := strconv.ParseInt(strings.TrimSpace(row[0]), 10, 64)
	if err != nil {
		return SyncedBar{}, false, fmt.Errorf("bad timestamp %q: %w", row[0], err)
	}

	vals := make([]float64, 10)
	for i := 0; i < 10; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return SyncedBar{}, false, fmt.Errorf("bad field %q: %w", row[i+1], err)
		}
		vals[i] = v
	}

	t := FromEpochMillis(ms)
	u := Candle{Time: t, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]}
	o := Candle{Time: t, Open: vals[5], High: vals[6], Low: vals[7], Close: vals[8], Volume: vals[9]}
	return SyncedBar{Time: t, Underlying: u, Option: o}, true, nil
}
