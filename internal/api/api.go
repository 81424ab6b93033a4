/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/


package api

import (
	"context"
	"errors"
	"fmt"
	"github.com/cenkalti/backoff/v4"
	"io/ioutil"
	"net/http"
	"time"
)

// Interval is the bar granularity of a CandlesRequest.
type Interval string

const Daily Interval = "1d"

// CandlesRequest asks a price source for the bars of one symbol in [From, To].
type CandlesRequest struct {
	Symbol string
	Interval
	From    time.Time // Earlier Date
	To      time.Time // Later Date
	PrePost bool      // include pre and post market bars
}

var ErrTooManyRequests = errors.New("error: too many requests")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status %s", e.Status)
}

func handleErr(msg string, resp *http.Response, err error) error {
	switch {
	case resp == nil:
		break
	case resp.StatusCode == http.StatusTooManyRequests:
		err = fmt.Errorf("%v: %w", err, ErrTooManyRequests)
	case resp.Body != nil:
		defer resp.Body.Close()
		body, readErr := ioutil.ReadAll(resp.Body)
		if readErr != nil {
			msg = fmt.Sprintf("error while to parsing error response %v. %s", readErr, msg)
			break
		}
		if len(body) > 512 {
			body = body[:512]
		}
		msg = fmt.Sprintf("%s (%s)", msg, body)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// DefaultBackOff bounds the rate limit retries of a single request.
func DefaultBackOff() backoff.BackOff {
	result := backoff.NewExponentialBackOff()
	result.InitialInterval = time.Second
	result.MaxElapsedTime = time.Minute
	return result
}

// retryRateLimited retries op while it fails with ErrTooManyRequests. Any other error ends the retries.
func retryRateLimited(ctx context.Context, bo backoff.BackOff, bon backoff.Notify, op backoff.Operation) error {
	if bo == nil {
		bo = DefaultBackOff()
	}
	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !errors.Is(err, ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx), bon)
}
