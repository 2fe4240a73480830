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

func TestClassifyVisibilityOwnUncommittedWrite(t *testing.T) {
	hdr := NewTileGroupHeader(1)
	hdr.InitSlot(0)
	hdr.SetTransactionId(0, TxnID(5))
	hdr.SetBeginCommitId(0, MaxCid)
	hdr.SetEndCommitId(0, MaxCid)

	tx := &Transaction{ID: TxnID(5), BeginCid: Cid(10)}
	if got := ClassifyVisibility(hdr, 0, tx); got != VisVisible {
		t.Fatalf("expected VisVisible for owner's own uncommitted write, got %v", got)
	}
}

func TestClassifyVisibilityDeletedToNonOwner(t *testing.T) {
	hdr := NewTileGroupHeader(1)
	hdr.InitSlot(0)
	hdr.SetTransactionId(0, InitialTxnID)
	hdr.SetBeginCommitId(0, Cid(1))
	hdr.SetEndCommitId(0, InvalidCid)

	tx := &Transaction{ID: TxnID(99), BeginCid: Cid(5)}
	if got := ClassifyVisibility(hdr, 0, tx); got != VisDeleted {
		t.Fatalf("expected VisDeleted, got %v", got)
	}
}

func TestClassifyVisibilityVisibleWithinInterval(t *testing.T) {
	hdr := NewTileGroupHeader(1)
	hdr.InitSlot(0)
	hdr.SetTransactionId(0, InitialTxnID)
	hdr.SetBeginCommitId(0, Cid(2))
	hdr.SetEndCommitId(0, Cid(4))

	tx := &Transaction{ID: TxnID(99), BeginCid: Cid(3)}
	if got := ClassifyVisibility(hdr, 0, tx); got != VisVisible {
		t.Fatalf("expected VisVisible, got %v", got)
	}
}

func TestClassifyVisibilityInvisibleFutureBeginsAfterReader(t *testing.T) {
	hdr := NewTileGroupHeader(1)
	hdr.InitSlot(0)
	hdr.SetTransactionId(0, InitialTxnID)
	hdr.SetBeginCommitId(0, Cid(10))
	hdr.SetEndCommitId(0, Cid(20))

	tx := &Transaction{ID: TxnID(99), BeginCid: Cid(3)}
	if got := ClassifyVisibility(hdr, 0, tx); got != VisInvisibleFuture {
		t.Fatalf("expected VisInvisibleFuture, got %v", got)
	}
}

func TestClassifyVisibilityInvisibleSupersededBeforeReader(t *testing.T) {
	hdr := NewTileGroupHeader(1)
	hdr.InitSlot(0)
	hdr.SetTransactionId(0, InitialTxnID)
	hdr.SetBeginCommitId(0, Cid(1))
	hdr.SetEndCommitId(0, Cid(5))

	tx := &Transaction{ID: TxnID(99), BeginCid: Cid(10)}
	if got := ClassifyVisibility(hdr, 0, tx); got != VisInvisible {
		t.Fatalf("expected VisInvisible, got %v", got)
	}
}
