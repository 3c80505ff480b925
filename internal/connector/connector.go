// Package connector retrieves hourly usage history from utility APIs.
package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jgoulah/powercompare/internal/logging"
	"github.com/jgoulah/powercompare/pkg/models"
)

// DefaultRetrievalDays is how far back RetrieveUsage reaches when no start
// date is given.
const DefaultRetrievalDays = 365

// ErrRetrievalInProgress is returned when RetrieveUsage is called while a
// previous call on the same session is still running.
var ErrRetrievalInProgress = errors.New("a retrieval is already in progress on this session")

// AuthError represents an authentication failure. Retrying without new
// credentials will not help.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return e.Message
}

// TimeoutError represents a network operation exceeding the session timeout.
// The whole retrieval is aborted; it is safe to retry the call.
type TimeoutError struct {
	Op  string
	Day time.Time
}

func (e *TimeoutError) Error() string {
	if e.Day.IsZero() {
		return fmt.Sprintf("%s timed out", e.Op)
	}
	return fmt.Sprintf("%s timed out for %s", e.Op, e.Day.Format("2006-01-02"))
}

// ProgressFunc reports the day currently being fetched. It is called once
// per day attempted, in traversal order, on the retrieval goroutine, so it
// must not block.
type ProgressFunc func(day time.Time)

// Session is an authenticated handle capable of fetching historical usage
// from a remote utility provider.
type Session interface {
	// Name returns the name of the power utility this session connects to.
	Name() string

	// RetrieveUsage fetches hourly usage one day at a time, walking backward
	// from end to start (both inclusive). A zero end defaults to today and a
	// zero start defaults to end minus 365 days. The result contains only
	// days that yielded data, in the order collected (reverse chronological).
	// Fails with *TimeoutError if any single day exceeds the session timeout;
	// nothing retrieved by the failed call is implicitly persisted.
	RetrieveUsage(ctx context.Context, start, end time.Time, progress ProgressFunc) ([]models.DayUsage, error)
}

// dayFetcher fetches the 24 hourly values for one day. A nil slice with a
// nil error means the provider has not published that day.
type dayFetcher interface {
	fetchDay(ctx context.Context, day time.Time) ([]float64, error)
}

// midnight truncates a time to the start of its day in UTC
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// retrieve walks the date range backward one day at a time, fetching each
// day under its own timeout.
//
// Empty days before any data has been seen are skipped and the walk
// continues, since providers lag a few days behind publishing recent usage.
// Once any day has yielded data, the first empty day ends the walk: we have
// run past the start of the account's history.
func retrieve(ctx context.Context, f dayFetcher, timeout time.Duration,
	start, end time.Time, progress ProgressFunc) ([]models.DayUsage, error) {

	if end.IsZero() {
		end = time.Now()
	}
	end = midnight(end)
	if start.IsZero() {
		start = end.AddDate(0, 0, -DefaultRetrievalDays)
	}
	start = midnight(start)

	var data []models.DayUsage
	seenValid := false
	for day := end; !day.Before(start); day = day.AddDate(0, 0, -1) {
		if progress != nil {
			progress(day)
		}

		dayCtx, cancel := context.WithTimeout(ctx, timeout)
		values, err := f.fetchDay(dayCtx, day)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, &TimeoutError{Op: "fetching usage", Day: day}
			}
			return nil, fmt.Errorf("fetching usage for %s: %w", day.Format("2006-01-02"), err)
		}

		if len(values) == 0 {
			if seenValid {
				logging.Logger.Debug("reached start of usage history",
					zap.Time("day", day))
				break
			}
			continue
		}

		data = append(data, models.DayUsage{Date: day, Values: values})
		seenValid = true
	}

	logging.Logger.Debug("retrieval finished",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("days", len(data)))
	return data, nil
}
