/*
Copyright (C) 2023  Carl-Philip Hänsch

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
	"fmt"
	"sync"
)

// uniqueConstraint names a set of columns whose combined values must be
// distinct across every visible tuple. Enforcement here is best-effort
// and advisory: a real uniqueness check belongs to a secondary index
// (explicitly out of scope, §1); DataTable only tracks which column sets
// were declared unique, via a full-table scan of the insert caller's own
// snapshot, so that ConstraintViolation has something concrete to check in
// a core without an index.
type uniqueConstraint struct {
	columns []string
}

// foreignKeyConstraint mirrors one half of a declared foreign key: the
// referencing columns on this table and the target table+columns they must
// exist in. Cascading behavior (CASCADE/SET NULL/RESTRICT) is an executor
// concern; the core only answers "does the referenced value currently
// exist".
type foreignKeyConstraint struct {
	columns    []string
	references *DataTable
	refColumns []string
}

// Constraints holds a DataTable's declared integrity rules, guarded
// separately from the table's hot insert path so checking them never
// contends with GetEmptyTupleSlot's allocator.
type Constraints struct {
	mu       sync.RWMutex
	uniques  []uniqueConstraint
	foreigns []foreignKeyConstraint
}

// AddUnique declares that the named columns must be jointly unique across
// every visible tuple.
func (c *Constraints) AddUnique(columns ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uniques = append(c.uniques, uniqueConstraint{columns: columns})
}

// AddForeignKey declares that columns on this table must reference existing
// values of refColumns on target.
func (c *Constraints) AddForeignKey(columns []string, target *DataTable, refColumns []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.foreigns = append(c.foreigns, foreignKeyConstraint{columns: columns, references: target, refColumns: refColumns})
}

// CheckConstraints implements §7's ConstraintViolation raiser: it is the
// only core-level check that returns a structured error through the insert
// path, rather than a boolean the caller converts to an abort. tx is the
// reading context used to decide which existing tuples are visible for the
// uniqueness scan.
func (dt *DataTable) CheckConstraints(tx *Transaction, values map[string]any) error {
	dt.constraints.mu.RLock()
	defer dt.constraints.mu.RUnlock()

	for _, u := range dt.constraints.uniques {
		if dt.violatesUnique(tx, u, values) {
			return NewConstraintError(ConstraintUniqueness, fmt.Sprintf("duplicate value for unique columns %v", u.columns))
		}
	}
	for _, fk := range dt.constraints.foreigns {
		if !dt.satisfiesForeignKey(tx, fk, values) {
			return NewConstraintError(ConstraintForeignKey, fmt.Sprintf("no matching row in referenced table for columns %v", fk.columns))
		}
	}
	return nil
}

func (dt *DataTable) violatesUnique(tx *Transaction, u uniqueConstraint, values map[string]any) bool {
	return dt.scanForMatch(tx, u.columns, values, u.columns)
}

func (dt *DataTable) satisfiesForeignKey(tx *Transaction, fk foreignKeyConstraint, values map[string]any) bool {
	if fk.references == nil {
		return true
	}
	return fk.references.scanForMatch(tx, fk.columns, values, fk.refColumns)
}

// scanForMatch walks every tilegroup this table currently owns and asks
// whether any VISIBLE tuple agrees with values on sourceColumns mapped to
// targetColumns. This is a full scan, acceptable for the core's own
// constraint checks precisely because secondary indexes are out of scope;
// a caller layering an index on top is expected to short-circuit this.
func (dt *DataTable) scanForMatch(tx *Transaction, sourceColumns []string, values map[string]any, targetColumns []string) bool {
	dt.mu.RLock()
	tileGroupIDs := append([]Oid(nil), dt.tileGroupIDs...)
	dt.mu.RUnlock()

	for _, id := range tileGroupIDs {
		tg, err := dt.cat.GetTileGroup(id)
		if err != nil {
			continue
		}
		hdr := tg.Header()
		n := tg.AllocatedSlots()
		for off := uint32(0); off < n; off++ {
			if ClassifyVisibility(hdr, off, tx) != VisVisible {
				continue
			}
			if rowMatches(tg, off, sourceColumns, values, targetColumns) {
				return true
			}
		}
	}
	return false
}

func rowMatches(tg *TileGroup, off uint32, targetColumns []string, values map[string]any, sourceColumns []string) bool {
	for i, col := range sourceColumns {
		want, ok := values[targetColumns[i]]
		if !ok {
			return false
		}
		got, ok := tg.GetValue(off, col)
		if !ok || got != want {
			return false
		}
	}
	return true
}
