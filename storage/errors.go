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
	"errors"
	"fmt"
)

// Sentinel errors for the conditions spec §7 enumerates as "ordinary
// outcomes the caller must handle", not process-fatal faults. §7's
// OwnershipDenied and ReadConflict are deliberately not errors here: the
// propagation policy is explicit that per-tuple conflicts on PerformRead/
// PerformUpdate/PerformDelete are booleans the executor converts to an
// abort decision, not Go errors — see PerformRead/PerformUpdate's bool
// returns in txnmanager.go.
var (
	ErrUnknownTileGroup     = errors.New("storage: unknown tilegroup id")
	ErrUnknownIndirection   = errors.New("storage: unknown indirection array id")
	ErrSlotAllocationFailed = errors.New("storage: no tilegroup had room for the tuple")
	ErrTransactionNotActive = errors.New("storage: transaction is not in an active state")
)

// ConstraintKind classifies a StorageError raised by a constraint check per
// §7: DataTable.CheckConstraints (table.go) raises uniqueness and
// foreign-key violations, and callers may raise their own.
type ConstraintKind uint8

const (
	ConstraintNone ConstraintKind = iota
	ConstraintUniqueness
	ConstraintForeignKey
)

// StorageError wraps a constraint violation, carrying enough detail (the
// offending columns) for the caller to report it.
type StorageError struct {
	Kind   ConstraintKind
	Detail string
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: constraint violation (%s)", e.Detail)
}

// NewConstraintError builds a StorageError for a detected violation.
func NewConstraintError(kind ConstraintKind, detail string) *StorageError {
	return &StorageError{Kind: kind, Detail: detail}
}
