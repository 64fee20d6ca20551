// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package schema

import "context"

// semaphore bounds the number of schema files parsed at once.
type semaphore struct {
	x chan struct{}
}

func newSemaphore(v int) *semaphore {
	return &semaphore{
		x: make(chan struct{}, v),
	}
}

// Lock waits for a slot or for ctx to end.
func (self *semaphore) Lock(ctx context.Context) error {
	select {
	case self.x <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (self *semaphore) Unlock() {
	<-self.x
}
