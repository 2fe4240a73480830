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

// partitionDivergence scores how far a tilegroup's current column order has
// drifted from a canonical order, as a fraction in [0,1] of columns whose
// position or presence differs. This is the same shape of scoring the
// teacher's proposerepartition uses to decide whether a shard's layout is
// worth rebuilding (partition.go): count mismatches, normalize by column
// count.
func partitionDivergence(current, canonical []string) float64 {
	if len(canonical) == 0 {
		return 0
	}
	canonicalPos := make(map[string]int, len(canonical))
	for i, name := range canonical {
		canonicalPos[name] = i
	}
	mismatches := 0
	for i, name := range current {
		if pos, ok := canonicalPos[name]; !ok || pos != i {
			mismatches++
		}
	}
	for _, name := range canonical {
		if _, ok := indexOf(current, name); !ok {
			mismatches++
		}
	}
	total := len(canonical)
	if len(current) > total {
		total = len(current)
	}
	if total == 0 {
		return 0
	}
	d := float64(mismatches) / float64(total)
	if d > 1 {
		d = 1
	}
	return d
}

func indexOf(haystack []string, needle string) (int, bool) {
	for i, v := range haystack {
		if v == needle {
			return i, true
		}
	}
	return 0, false
}

// TransformTileGroup implements §4.C's layout transformer. It computes the
// tilegroup's partition divergence against the table's canonical column
// order; if diff <= theta, the layout already satisfies the threshold and
// "unchanged" is reported — false, nil, nil (B2: theta=1.0 can never be
// exceeded by a divergence confined to [0,1], so it always reports
// unchanged; theta=0.0 against an already-canonical tilegroup, diff=0, also
// reports unchanged since there is nothing to move). Otherwise it builds a
// new TileGroup laid out in canonical order, copies values column-at-a-time,
// copies the header wholesale (preserving every MVCC field), and
// re-registers tileGroupID to the new TileGroup in cat.
//
// superseded is the TileGroup tileGroupID pointed at before the swap, or
// nil when unchanged. It is not released here: the caller owns the
// reference it was created holding and must Release it, then wait for
// superseded.GetState() == COLD (no reader still inside a GetRead), before
// treating it as free of in-flight readers (ref-counted, §4.C note)
// — TransformTileGroup itself only swaps the catalog's registration, it
// never decides when the old tilegroup is safe to drop.
func TransformTileGroup(cat *CatalogManager, tileGroupID Oid, canonical []string, theta float64) (changed bool, superseded *TileGroup, err error) {
	old, err := cat.GetTileGroup(tileGroupID)
	if err != nil {
		return false, nil, err
	}

	diff := partitionDivergence(old.ColumnOrder(), canonical)
	if diff <= theta {
		return false, nil, nil
	}

	release := old.GetExclusive()
	defer release()

	replacement := NewTileGroup(tileGroupID, old.Capacity(), canonical)
	n := old.AllocatedSlots()
	for off := uint32(0); off < n; off++ {
		replacement.setColumns(off, old.GetTuple(off))
	}
	copyHeaderWholesale(old.Header(), replacement.Header(), n)
	replacement.nextSlot.Store(n)

	cat.RegisterTileGroup(tileGroupID, replacement)
	return true, old, nil
}

// copyHeaderWholesale duplicates every per-slot MVCC field from src to dst
// for the first n slots, so the replacement tilegroup preserves visibility
// exactly as spec §3 requires of a layout transformation.
func copyHeaderWholesale(src, dst *TileGroupHeader, n uint32) {
	for off := uint32(0); off < n; off++ {
		dst.SetTransactionId(off, src.GetTransactionId(off))
		dst.SetBeginCommitId(off, src.GetBeginCommitId(off))
		dst.SetEndCommitId(off, src.GetEndCommitId(off))
		dst.SetPrevItemPointer(off, src.GetPrevItemPointer(off))
		dst.SetNextItemPointer(off, src.GetNextItemPointer(off))
		arrayID, cell := src.GetIndirection(off)
		dst.SetIndirection(off, arrayID, cell)
		if last := src.GetLastReaderCommitId(off); last > 0 {
			dst.SetLastReaderCommitId(off, src.GetTransactionId(off), last)
		}
	}
}
