package common

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

// EarliestDate is the first date with fill archives in the source bucket.
const EarliestDate = "20250727"

// Partition identifies one date+hour unit of upstream data, the atomic unit
// of fetch and load work. Immutable once constructed.
type Partition struct {
	Date string // YYYYMMDD
	Hour int    // 0-23
}

// ID returns the partition identifier used as the idempotency key in the
// progress ledger, e.g. "20250727/3".
func (p Partition) ID() string {
	return fmt.Sprintf("%s/%d", p.Date, p.Hour)
}

// RawKey returns the object key of the raw compressed partition.
func (p Partition) RawKey(prefix string) string {
	return fmt.Sprintf("%s/%s/%d.lz4", prefix, p.Date, p.Hour)
}

// ParquetKey returns the object key of the derived normalized file. Derived
// files mirror the raw layout with a parquet extension.
func (p Partition) ParquetKey(prefix string) string {
	return fmt.Sprintf("%s/%s/%d.parquet", prefix, p.Date, p.Hour)
}

func (p Partition) Validate() error {
	if !ValidDate(p.Date) {
		return fmt.Errorf("invalid partition date %q", p.Date)
	}
	if p.Hour < 0 || p.Hour > 23 {
		return fmt.Errorf("invalid partition hour %d", p.Hour)
	}
	return nil
}

// ParsePartitionID parses an identifier of the form "YYYYMMDD/H".
func ParsePartitionID(id string) (Partition, error) {
	parts := strings.Split(id, "/")
	if len(parts) != 2 {
		return Partition{}, fmt.Errorf("invalid partition id %q", id)
	}
	hour, err := strconv.Atoi(parts[1])
	if err != nil {
		return Partition{}, fmt.Errorf("invalid partition id %q: %w", id, err)
	}
	p := Partition{Date: parts[0], Hour: hour}
	if err := p.Validate(); err != nil {
		return Partition{}, err
	}
	return p, nil
}

// PartitionFromKey extracts the partition from an object key or file path of
// the form <anything>/<date>/<hour>.<ext>.
func PartitionFromKey(key string) (Partition, error) {
	dir, file := path.Split(strings.ReplaceAll(key, "\\", "/"))
	date := path.Base(strings.TrimSuffix(dir, "/"))
	stem := strings.TrimSuffix(file, path.Ext(file))
	hour, err := strconv.Atoi(stem)
	if err != nil {
		return Partition{}, fmt.Errorf("cannot parse partition from key %q: %w", key, err)
	}
	p := Partition{Date: date, Hour: hour}
	if err := p.Validate(); err != nil {
		return Partition{}, fmt.Errorf("cannot parse partition from key %q: %w", key, err)
	}
	return p, nil
}

// SortPartitions orders partitions by date, then hour.
func SortPartitions(parts []Partition) {
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].Date != parts[j].Date {
			return parts[i].Date < parts[j].Date
		}
		return parts[i].Hour < parts[j].Hour
	})
}

// ValidDate reports whether s is an 8-digit calendar date string.
func ValidDate(s string) bool {
	if len(s) != 8 {
		return false
	}
	_, err := time.Parse("20060102", s)
	return err == nil
}

// DateRange returns every date from start to end inclusive, both YYYYMMDD.
func DateRange(start, end string) ([]string, error) {
	from, err := time.Parse("20060102", start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	to, err := time.Parse("20060102", end)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("end date %s before start date %s", end, start)
	}

	var dates []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("20060102"))
	}
	return dates, nil
}

// ParseHours parses an hour selection: a range "0-7", a list "0,12,23" or a
// single hour "5".
func ParseHours(s string) ([]int, error) {
	var hours []int
	switch {
	case strings.Contains(s, "-"):
		parts := strings.SplitN(s, "-", 2)
		start, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid hour range %q: %w", s, err)
		}
		end, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid hour range %q: %w", s, err)
		}
		if end < start {
			return nil, fmt.Errorf("invalid hour range %q", s)
		}
		for h := start; h <= end; h++ {
			hours = append(hours, h)
		}
	case strings.Contains(s, ","):
		for _, part := range strings.Split(s, ",") {
			h, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, fmt.Errorf("invalid hour list %q: %w", s, err)
			}
			hours = append(hours, h)
		}
	default:
		h, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid hour %q: %w", s, err)
		}
		hours = append(hours, h)
	}

	for _, h := range hours {
		if h < 0 || h > 23 {
			return nil, fmt.Errorf("hour %d out of range", h)
		}
	}
	return hours, nil
}
