package control

import (
	"fmt"
	"time"
)

// Date is the calendar date a DateEdit holds. The zero Date means no date
// has been entered.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) IsZero() bool { return d == Date{} }

// ToTime returns midnight UTC of the date, or the zero time for the zero Date.
func (d Date) ToTime() time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// DateTime is the timestamp a DateTimeEdit holds, at second precision.
type DateTime struct {
	Date
	Hour, Minute, Second int
}

// DateTimeOf converts t to UTC and drops sub-second precision.
func DateTimeOf(t time.Time) DateTime {
	if t.IsZero() {
		return DateTime{}
	}
	t = t.UTC()
	return DateTime{
		Date:   DateOf(t),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

func (d DateTime) IsZero() bool { return d == DateTime{} }

func (d DateTime) ToTime() time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	return time.Date(d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second, 0, time.UTC)
}

func (d DateTime) String() string {
	if d.IsZero() {
		return ""
	}
	return d.ToTime().Format(time.RFC3339)
}

// DateEdit is a calendar date input.
type DateEdit struct {
	name string
	date Date
}

func NewDateEdit(name string) *DateEdit { return &DateEdit{name: name} }

func (c *DateEdit) Kind() Kind     { return KindDateEdit }
func (c *DateEdit) Name() string   { return c.name }
func (c *DateEdit) Date() Date     { return c.date }
func (c *DateEdit) SetDate(d Date) { c.date = d }

// DateTimeEdit is a date and time input.
type DateTimeEdit struct {
	name  string
	value DateTime
}

func NewDateTimeEdit(name string) *DateTimeEdit { return &DateTimeEdit{name: name} }

func (c *DateTimeEdit) Kind() Kind             { return KindDateTimeEdit }
func (c *DateTimeEdit) Name() string           { return c.name }
func (c *DateTimeEdit) DateTime() DateTime     { return c.value }
func (c *DateTimeEdit) SetDateTime(d DateTime) { c.value = d }
