/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package storage

import (
	"runtime"
	"sync/atomic"
)

// spinlock is a CAS-retry mutual exclusion primitive for the TileGroupHeader
// reserved area. Grounded on NonLockingReadMap's NonBlockingBitMap.Set retry
// shape: load, compute, CompareAndSwap, retry on failure.
type spinlock struct {
	state atomic.Uint32
}

// Lock spins until it wins the CAS from unlocked (0) to locked (1).
func (s *spinlock) Lock() {
	for !s.state.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

// Unlock releases the lock. Must be called on every exit path, including
// early returns, per the scoped-resource requirement in §5.
func (s *spinlock) Unlock() {
	s.state.Store(0)
}

// TryLock attempts to acquire the lock without spinning.
func (s *spinlock) TryLock() bool {
	return s.state.CompareAndSwap(0, 1)
}
