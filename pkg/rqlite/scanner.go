package rqlite

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// timeLayout is fixed-width UTC so stored timestamps compare correctly as TEXT.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by hand or by older tooling.
		if t2, err2 := time.Parse(time.RFC3339Nano, s); err2 == nil {
			return t2.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// intColumn scans integer columns from both drivers. rqlite returns JSON numbers as
// float64, which database/sql cannot assign to an int64 once they pass 1e6.
type intColumn struct {
	Int64 int64
	Valid bool
}

func (c *intColumn) Scan(src any) error {
	c.Int64, c.Valid = 0, false
	switch v := src.(type) {
	case nil:
		return nil
	case int64:
		c.Int64 = v
	case float64:
		if v != math.Trunc(v) {
			return fmt.Errorf("non-integer value %v", v)
		}
		c.Int64 = int64(v)
	case bool:
		if v {
			c.Int64 = 1
		}
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return err
		}
		c.Int64 = n
	case []byte:
		return c.Scan(string(v))
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse integer %q: %w", v, err)
		}
		c.Int64 = n
	default:
		return fmt.Errorf("unsupported integer column type %T", src)
	}
	c.Valid = true
	return nil
}

func (c intColumn) Value() (driver.Value, error) {
	if !c.Valid {
		return nil, nil
	}
	return c.Int64, nil
}

func nullableInt(p *int64) intColumn {
	if p == nil {
		return intColumn{}
	}
	return intColumn{Int64: *p, Valid: true}
}

func (c intColumn) ptr() *int64 {
	if !c.Valid {
		return nil
	}
	v := c.Int64
	return &v
}
