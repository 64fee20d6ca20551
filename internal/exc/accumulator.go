// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package exc

import "sync"

// Reporter accumulates exceptions. The literal lexer reports malformed tokens
// to it and stops, leaving the parser to surface the report; the schema
// loader reports every protobuf diagnostic and fails with the whole set.
type Reporter interface {
	// Report adds the exception to the set. A non-nil result means the
	// exception is fatal and processing must stop.
	Report(Exception) Exception
	// Reported returns the accumulated exceptions in report order.
	Reported() []Exception
}

// NewReporter returns a concurrent-safe Reporter. Exceptions with one of the
// nonFatal codes are recorded but do not stop processing.
func NewReporter(nonFatal []string) Reporter {
	nf := make(map[string]bool, len(defaultNonFatal)+len(nonFatal))
	for k := range defaultNonFatal {
		nf[k] = true
	}
	for _, k := range nonFatal {
		nf[k] = true
	}
	return &reporter{nonFatal: nf}
}

// Since returns the exceptions reported after the first n.
func Since(r Reporter, n int) []Exception {
	reported := r.Reported()
	if n >= len(reported) {
		return nil
	}
	return reported[n:]
}

type reporter struct {
	lock     sync.Mutex
	reported []Exception
	nonFatal map[string]bool
}

func (r *reporter) Report(e Exception) Exception {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.reported = append(r.reported, e)
	if r.nonFatal[e.Code()] {
		return nil
	}
	return e
}

func (r *reporter) Reported() []Exception {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]Exception(nil), r.reported...)
}
