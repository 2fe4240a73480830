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

import "sync"

// CatalogManager is the process-wide lookup of TileGroup and
// IndirectionArray by oid (§4.D). It is the sole place the index<->
// indirection<->header pointer cycle is broken: everyone resolves ids
// through here instead of holding a raw Go pointer across a layout
// transformation (Design Notes §9).
//
// The teacher's database.go keeps its table registry behind a single
// package-level sync.Mutex; here reads vastly outnumber writes (every
// tuple access resolves through this map), so a RWMutex gives readers
// genuine concurrency the way shared_resource.go's GetRead/GetExclusive
// split models at the object level.
type CatalogManager struct {
	oidGen oidGenerator

	mu          sync.RWMutex
	tileGroups  map[Oid]*TileGroup
	indirection map[Oid]*IndirectionArray
}

// NewCatalogManager returns an empty catalog. Oid 0 (InvalidOid) is never
// handed out by AllocateTileGroupId.
func NewCatalogManager() *CatalogManager {
	return &CatalogManager{
		tileGroups:  make(map[Oid]*TileGroup),
		indirection: make(map[Oid]*IndirectionArray),
	}
}

// AllocateTileGroupId hands out the next monotonic oid. It does not, by
// itself, register anything — callers must RegisterTileGroup the object
// that will live under this id.
func (c *CatalogManager) AllocateTileGroupId() Oid {
	return c.oidGen.next()
}

// RegisterTileGroup binds oid to tg, replacing whatever was registered
// there before (used by TransformTileGroup to re-point an existing id at a
// freshly laid-out TileGroup, per §4.C).
func (c *CatalogManager) RegisterTileGroup(oid Oid, tg *TileGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tileGroups[oid] = tg
}

// DropTileGroup removes oid from the registry. Any reader that already
// retained the TileGroup via Retain keeps a live reference; new lookups
// will fail with ErrUnknownTileGroup.
func (c *CatalogManager) DropTileGroup(oid Oid) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tileGroups, oid)
}

// GetTileGroup resolves oid to its current TileGroup.
func (c *CatalogManager) GetTileGroup(oid Oid) (*TileGroup, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tg, ok := c.tileGroups[oid]
	if !ok {
		return nil, ErrUnknownTileGroup
	}
	return tg, nil
}

// AllocateIndirectionArrayId hands out the next monotonic oid for an
// IndirectionArray.
func (c *CatalogManager) AllocateIndirectionArrayId() Oid {
	return c.oidGen.next()
}

// RegisterIndirectionArray binds oid to ia.
func (c *CatalogManager) RegisterIndirectionArray(oid Oid, ia *IndirectionArray) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indirection[oid] = ia
}

// DropIndirectionArray removes oid from the registry.
func (c *CatalogManager) DropIndirectionArray(oid Oid) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.indirection, oid)
}

// GetIndirectionArray resolves oid to its current IndirectionArray.
func (c *CatalogManager) GetIndirectionArray(oid Oid) (*IndirectionArray, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ia, ok := c.indirection[oid]
	if !ok {
		return nil, ErrUnknownIndirection
	}
	return ia, nil
}

// ResolveIndirectionCell follows a slot's stored (arrayID, cell) backpointer
// to the live IndirectionArray, the mechanism that replaces a raw pointer
// from the header back to its chain-head cell (Design Notes §9).
func (c *CatalogManager) ResolveIndirectionCell(hdr *TileGroupHeader, off uint32) (*IndirectionArray, uint32, error) {
	arrayID, cell := hdr.GetIndirection(off)
	if arrayID == InvalidOid {
		return nil, 0, ErrUnknownIndirection
	}
	ia, err := c.GetIndirectionArray(arrayID)
	if err != nil {
		return nil, 0, err
	}
	return ia, cell, nil
}
