package domain

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DateLayout es el formato con el que se persiste CreatedDate.
const DateLayout = "2006-01-02"

// Date es una fecha de calendario sin hora ni zona.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf devuelve la fecha de calendario de t vista en loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate interpreta una fecha con formato YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t, time.UTC), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero indica si la fecha no ha sido asignada.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time devuelve la medianoche UTC de la fecha.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Value permite usar Date como argumento en database/sql.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan acepta tanto time.Time (Postgres DATE) como texto (SQLite).
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v, time.UTC)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}
