package filter

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/fintrackhq/fintrack/internal/errs"
)

// ListFilters is the validated form of list query parameters. Pointer fields
// distinguish "absent" from zero.
type ListFilters struct {
	Limit     *int
	Page      *int
	NextToken string
	StartDate *int64
	EndDate   *int64
}

// Policy bounds what the validator accepts. MaxLimit 0 means unbounded.
// DefaultLimit 0 means an absent limit stays absent (no truncation).
type Policy struct {
	MaxLimit     int
	DefaultLimit int
}

// Validate parses and checks list query parameters. It stops at the first
// violated field and returns an error wrapping errs.ErrInvalid that names
// that field.
func Validate(q url.Values, p Policy) (ListFilters, error) {
	var f ListFilters

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return ListFilters{}, fmt.Errorf("%w: limit must be a positive integer", errs.ErrInvalid)
		}
		if p.MaxLimit > 0 && n > p.MaxLimit {
			return ListFilters{}, fmt.Errorf("%w: limit must not exceed %d", errs.ErrInvalid, p.MaxLimit)
		}
		f.Limit = &n
	} else if p.DefaultLimit > 0 {
		n := p.DefaultLimit
		f.Limit = &n
	}

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return ListFilters{}, fmt.Errorf("%w: page must be a positive integer", errs.ErrInvalid)
		}
		f.Page = &n
	}

	f.NextToken = q.Get("nextToken")

	if raw := q.Get("startDate"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ListFilters{}, fmt.Errorf("%w: startDate must be epoch millis", errs.ErrInvalid)
		}
		f.StartDate = &ms
	}
	if raw := q.Get("endDate"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ListFilters{}, fmt.Errorf("%w: endDate must be epoch millis", errs.ErrInvalid)
		}
		f.EndDate = &ms
	}
	if f.StartDate != nil && f.EndDate != nil && *f.StartDate > *f.EndDate {
		return ListFilters{}, fmt.Errorf("%w: startDate must not be after endDate", errs.ErrInvalid)
	}

	return f, nil
}
