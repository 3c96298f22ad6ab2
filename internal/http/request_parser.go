// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Month and year defaults are resolved here, at the boundary, so the
// aggregation code only ever sees explicit periods.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finanzas/internal/core"
)

// maxBodyBytes bounds JSON bodies; raw statements are the largest payload.
const maxBodyBytes = 10 << 20

// PeriodParams holds a profile and a resolved year/month.
type PeriodParams struct {
	ProfileID string
	Year      int
	Month     int
}

// ParsePeriodParams reads profileId, year and month from query, using now
// for missing values. withMonth=false ignores month entirely.
func ParsePeriodParams(query url.Values, now time.Time, withMonth bool) (PeriodParams, error) {
	params := PeriodParams{
		ProfileID: sanitizeInput(query.Get("profileId")),
		Year:      now.Year(),
	}
	if params.ProfileID == "" {
		return PeriodParams{}, core.ErrEmptyProfile
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return PeriodParams{}, fmt.Errorf("%w: %q", core.ErrInvalidYear, v)
		}
		params.Year = y
	}
	if err := core.ValidateYear(params.Year); err != nil {
		return PeriodParams{}, err
	}

	if !withMonth {
		return params, nil
	}
	params.Month = int(now.Month())
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return PeriodParams{}, fmt.Errorf("%w: %q", core.ErrInvalidMonth, v)
		}
		params.Month = m
	}
	if err := core.ValidateMonth(params.Month); err != nil {
		return PeriodParams{}, err
	}
	return params, nil
}

// ParseTransactionFilter reads an optional month/year filter. A month
// without a year refers to the current year.
func ParseTransactionFilter(query url.Values, now time.Time) (core.TransactionFilter, error) {
	f := core.TransactionFilter{ProfileID: sanitizeInput(query.Get("profileId"))}
	if f.ProfileID == "" {
		return f, core.ErrEmptyProfile
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("%w: %q", core.ErrInvalidYear, v)
		}
		f.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("%w: %q", core.ErrInvalidMonth, v)
		}
		if err := core.ValidateMonth(m); err != nil {
			return f, err
		}
		f.Month = m
		if f.Year == 0 {
			f.Year = now.Year()
		}
	}
	return f, f.Validate()
}

// ParseOptionalYear returns 0 when year is absent.
func ParseOptionalYear(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return 0, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidYear, v)
	}
	return y, core.ValidateYear(y)
}

// PathID parses the {id} wildcard of the matched route.
func PathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidID, raw)
	}
	return id, nil
}

// DecodeJSONOrFail decodes the body into dst and returns an error response
// on failure, nil on success.
func DecodeJSONOrFail(w http.ResponseWriter, r *http.Request, dst any) *JSONResponseBuilder {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			return BadRequestError("request body is required")
		default:
			return BadRequestError("invalid JSON body")
		}
	}
	if dec.More() {
		return BadRequestError("invalid JSON body")
	}
	return nil
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}
