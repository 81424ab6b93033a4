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


package util

import (
	"cloud.google.com/go/logging"
	"fmt"
	"sync"
	"time"
)

const (
	ShortReqTimeout = 30 * time.Second
	MedReqTimeout   = 5 * time.Minute
	LongReqTimeout  = 60 * time.Minute
)

// Recorder is a Logger that keeps every entry in memory.
type Recorder struct {
	mu      sync.Mutex
	Entries []logging.Entry
}

func (r *Recorder) Log(e logging.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, e)
}

// Messages returns the messages logged at severity s or above.
func (r *Recorder) Messages(s logging.Severity) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ret []string
	for _, e := range r.Entries {
		if e.Severity < s {
			continue
		}
		if p, ok := e.Payload.(fmt.Stringer); ok {
			ret = append(ret, p.String())
		}
	}
	return ret
}
