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

import "testing"

func TestTileGroupInsertTupleFillsCapacityThenFails(t *testing.T) {
	tg := NewTileGroup(1, 4, []string{"k", "v"})
	for i := 0; i < 4; i++ {
		off, ok := tg.InsertTuple(TxnID(1), map[string]any{"k": int64(i), "v": "x"})
		if !ok {
			t.Fatalf("insert %d: expected ok", i)
		}
		if off != uint32(i) {
			t.Fatalf("insert %d: expected offset %d, got %d", i, i, off)
		}
	}
	if _, ok := tg.InsertTuple(TxnID(1), map[string]any{"k": int64(4)}); ok {
		t.Fatalf("expected insert past capacity to fail")
	}
}

func TestTileGroupInsertTuplePublishesOwnerAndOpenInterval(t *testing.T) {
	tg := NewTileGroup(1, 4, []string{"k"})
	off, ok := tg.InsertTuple(TxnID(7), map[string]any{"k": int64(1)})
	if !ok {
		t.Fatalf("expected ok")
	}
	hdr := tg.Header()
	if got := hdr.GetTransactionId(off); got != TxnID(7) {
		t.Fatalf("expected owner 7, got %d", got)
	}
	if got := hdr.GetBeginCommitId(off); got != MaxCid {
		t.Fatalf("expected begin_cid MaxCid, got %d", got)
	}
	if got := hdr.GetEndCommitId(off); got != MaxCid {
		t.Fatalf("expected end_cid MaxCid, got %d", got)
	}
	if got, ok := tg.GetValue(off, "k"); !ok || got.(int64) != 1 {
		t.Fatalf("expected value 1, got %v ok=%v", got, ok)
	}
}

func TestTileGroupRecycleMarksFreeAndResetsHeader(t *testing.T) {
	tg := NewTileGroup(1, 4, []string{"k"})
	off, _ := tg.InsertTuple(TxnID(1), map[string]any{"k": int64(1)})
	tg.Recycle(off)
	if !tg.IsFree(off) {
		t.Fatalf("expected slot to be free after recycle")
	}
	if got := tg.FreeCount(); got != 1 {
		t.Fatalf("expected free count 1, got %d", got)
	}
	hdr := tg.Header()
	if got := hdr.GetTransactionId(off); got != InvalidTxnID {
		t.Fatalf("expected txn_id InvalidTxnID after recycle, got %d", got)
	}
	if got := hdr.GetBeginCommitId(off); got != InvalidCid {
		t.Fatalf("expected begin_cid InvalidCid after recycle, got %d", got)
	}
}

func TestTileGroupAllocatedSlotsClampsToCapacity(t *testing.T) {
	tg := NewTileGroup(1, 2, []string{"k"})
	tg.InsertTuple(TxnID(1), nil)
	tg.InsertTuple(TxnID(1), nil)
	tg.InsertTuple(TxnID(1), nil) // fails, but nextSlot still advances past capacity
	if got := tg.AllocatedSlots(); got != 2 {
		t.Fatalf("expected AllocatedSlots clamped to 2, got %d", got)
	}
}

func TestTileGroupGetTupleReadsEveryColumn(t *testing.T) {
	tg := NewTileGroup(1, 2, []string{"k", "v"})
	off, _ := tg.InsertTuple(TxnID(1), map[string]any{"k": int64(3), "v": "hi"})
	tuple := tg.GetTuple(off)
	if tuple["k"].(int64) != 3 || tuple["v"].(string) != "hi" {
		t.Fatalf("unexpected tuple: %v", tuple)
	}
}

func TestTileGroupRetainRelease(t *testing.T) {
	tg := NewTileGroup(1, 2, []string{"k"})
	if got := tg.RefCount(); got != 1 {
		t.Fatalf("expected initial refcount 1, got %d", got)
	}
	tg.Retain()
	if got := tg.RefCount(); got != 2 {
		t.Fatalf("expected refcount 2 after Retain, got %d", got)
	}
	tg.Release()
	if got := tg.RefCount(); got != 1 {
		t.Fatalf("expected refcount 1 after Release, got %d", got)
	}
}
