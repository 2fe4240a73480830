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

func TestCatalogManagerRegisterAndGet(t *testing.T) {
	cat := NewCatalogManager()
	id := cat.AllocateTileGroupId()
	tg := NewTileGroup(id, 4, []string{"k"})
	cat.RegisterTileGroup(id, tg)

	got, err := cat.GetTileGroup(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != tg {
		t.Fatalf("expected the same tilegroup back")
	}
}

func TestCatalogManagerGetUnknownReturnsError(t *testing.T) {
	cat := NewCatalogManager()
	if _, err := cat.GetTileGroup(Oid(999)); err != ErrUnknownTileGroup {
		t.Fatalf("expected ErrUnknownTileGroup, got %v", err)
	}
	if _, err := cat.GetIndirectionArray(Oid(999)); err != ErrUnknownIndirection {
		t.Fatalf("expected ErrUnknownIndirection, got %v", err)
	}
}

func TestCatalogManagerDropRemovesRegistration(t *testing.T) {
	cat := NewCatalogManager()
	id := cat.AllocateTileGroupId()
	cat.RegisterTileGroup(id, NewTileGroup(id, 4, []string{"k"}))
	cat.DropTileGroup(id)
	if _, err := cat.GetTileGroup(id); err != ErrUnknownTileGroup {
		t.Fatalf("expected ErrUnknownTileGroup after drop, got %v", err)
	}
}

func TestCatalogManagerAllocateIdsAreDistinct(t *testing.T) {
	cat := NewCatalogManager()
	a := cat.AllocateTileGroupId()
	b := cat.AllocateIndirectionArrayId()
	if a == InvalidOid || b == InvalidOid {
		t.Fatalf("expected non-zero oids")
	}
	if a == b {
		t.Fatalf("expected distinct oids, got %d and %d", a, b)
	}
}

func TestCatalogManagerRegisterTileGroupOverwritesPreviousRegistration(t *testing.T) {
	cat := NewCatalogManager()
	id := cat.AllocateTileGroupId()
	first := NewTileGroup(id, 4, []string{"k"})
	second := NewTileGroup(id, 4, []string{"k", "v"})
	cat.RegisterTileGroup(id, first)
	cat.RegisterTileGroup(id, second)

	got, err := cat.GetTileGroup(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != second {
		t.Fatalf("expected second registration to win")
	}
}

func TestCatalogManagerResolveIndirectionCell(t *testing.T) {
	cat := NewCatalogManager()
	iaID := cat.AllocateIndirectionArrayId()
	ia := NewIndirectionArray(iaID)
	cat.RegisterIndirectionArray(iaID, ia)
	cell := ia.Allocate()

	tgID := cat.AllocateTileGroupId()
	tg := NewTileGroup(tgID, 4, []string{"k"})
	cat.RegisterTileGroup(tgID, tg)
	off, _ := tg.InsertTuple(TxnID(1), nil)
	tg.Header().SetIndirection(off, iaID, cell)

	resolved, resolvedCell, err := cat.ResolveIndirectionCell(tg.Header(), off)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved != ia || resolvedCell != cell {
		t.Fatalf("expected (%v, %d), got (%v, %d)", ia, cell, resolved, resolvedCell)
	}
}
