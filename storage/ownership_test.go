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

func TestIsOwnableRequiresUnlockedAndLatestVersion(t *testing.T) {
	hdr := NewTileGroupHeader(1)
	hdr.InitSlot(0)
	hdr.SetTransactionId(0, InitialTxnID)
	hdr.SetEndCommitId(0, MaxCid)
	if !IsOwnable(hdr, 0) {
		t.Fatalf("expected slot to be ownable")
	}

	hdr.SetEndCommitId(0, Cid(5))
	if IsOwnable(hdr, 0) {
		t.Fatalf("expected superseded slot to not be ownable")
	}

	hdr.SetEndCommitId(0, MaxCid)
	hdr.SetTransactionId(0, TxnID(42))
	if IsOwnable(hdr, 0) {
		t.Fatalf("expected owned slot to not be ownable by another")
	}
}

func TestAcquireOwnershipIsExclusive(t *testing.T) {
	hdr := NewTileGroupHeader(1)
	hdr.InitSlot(0)
	hdr.SetTransactionId(0, InitialTxnID)

	if !AcquireOwnership(hdr, 0, TxnID(1)) {
		t.Fatalf("expected first acquisition to succeed")
	}
	if AcquireOwnership(hdr, 0, TxnID(2)) {
		t.Fatalf("expected second acquisition to fail while owned")
	}
	if !IsOwner(hdr, 0, TxnID(1)) {
		t.Fatalf("expected txn 1 to be the owner")
	}
}

func TestYieldOwnershipReleasesBackToInitial(t *testing.T) {
	hdr := NewTileGroupHeader(1)
	hdr.InitSlot(0)
	AcquireOwnership(hdr, 0, TxnID(1))

	if !YieldOwnership(hdr, 0, TxnID(1)) {
		t.Fatalf("expected yield to succeed for the current owner")
	}
	if hdr.GetTransactionId(0) != InitialTxnID {
		t.Fatalf("expected slot to return to InitialTxnID")
	}
	if YieldOwnership(hdr, 0, TxnID(1)) {
		t.Fatalf("expected yield by a non-owner to fail")
	}
}
