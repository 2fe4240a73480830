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

import "fmt"

// ItemPointer is the physical address of a tuple slot: (tilegroup, offset).
// Immutable once published; two ItemPointers compare equal by component
// equality (plain struct equality is enough, no custom Equal needed).
type ItemPointer struct {
	TileGroupID Oid
	Offset      uint32
}

// NullItemPointer is the zero-value "no pointer" sentinel, used at the ends
// of a version chain (prev of the newest version, the chain head; next of
// the oldest).
var NullItemPointer = ItemPointer{}

// IsNull reports whether this ItemPointer is the null sentinel.
func (p ItemPointer) IsNull() bool {
	return p.TileGroupID == InvalidOid
}

func (p ItemPointer) String() string {
	if p.IsNull() {
		return "ItemPointer(nil)"
	}
	return fmt.Sprintf("ItemPointer(%d,%d)", p.TileGroupID, p.Offset)
}
