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
/*
	tiledb-repl is a bare interactive shell over the transactional storage
	core, for poking at Begin/Insert/Read/Commit by hand without writing a
	Go program. It has no SQL, no planner, no parser beyond whitespace
	splitting — it is closer to a debugger console than a database client.
*/
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/tileengine/tiledb/storage"
)

const newprompt = "\033[32mtiledb>\033[0m "
const resultprompt = "\033[31m=\033[0m "

type session struct {
	db    *storage.Db
	table *storage.DataTable
	index *storage.PrimaryIndex
	tx    *storage.Transaction
}

func main() {
	fmt.Print(`tiledb-repl — interactive console over the transactional storage core
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;
`)

	settings := storage.DefaultSettings()
	settings.TuplesPerTileGroup = 4
	db := storage.NewDb(settings, nil, storage.NewMemStats())
	table := db.CreateTable(storage.Schema{Name: "demo", Columns: []string{"k", "v"}})
	sess := &session{db: db, table: table, index: storage.NewPrimaryIndex(db.Catalog)}

	l, err := readline.NewEx(&readline.Config{
		Prompt:            newprompt,
		HistoryFile:       ".tiledb-repl-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sess.dispatch(line)
	}
}

func (s *session) dispatch(line string) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "begin":
		readOnly := len(args) > 0 && args[0] == "ro"
		s.tx = s.db.Txn.BeginTransaction(readOnly)
		fmt.Printf("%stxn %d begin_cid=%d\n", resultprompt, s.tx.ID, s.tx.BeginCid)

	case "insert":
		if s.tx == nil || len(args) < 2 {
			fmt.Println("usage: insert <key> <value>")
			return
		}
		key, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fmt.Println("bad key:", err)
			return
		}
		loc, arrayID, cell, err := s.table.InsertNewTuple(s.tx.ID, map[string]any{"k": key, "v": args[1]})
		if err != nil {
			fmt.Println("insert failed:", err)
			return
		}
		if err := s.db.Txn.PerformInsert(s.tx, loc, arrayID, cell, s.table.Schema().Name); err != nil {
			fmt.Println("PerformInsert failed:", err)
			return
		}
		s.index.Insert(key, arrayID, cell)
		fmt.Printf("%sinserted at %s\n", resultprompt, loc)

	case "read":
		if s.tx == nil || len(args) < 1 {
			fmt.Println("usage: read <key>")
			return
		}
		key, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fmt.Println("bad key:", err)
			return
		}
		loc, result := s.index.Lookup(s.tx, key)
		switch result {
		case storage.LookupFound:
			tg, _ := s.db.Catalog.GetTileGroup(loc.TileGroupID)
			fmt.Printf("%s%v\n", resultprompt, tg.GetTuple(loc.Offset))
		case storage.LookupDeleted:
			fmt.Printf("%s<deleted>\n", resultprompt)
		default:
			fmt.Printf("%s<not found>\n", resultprompt)
		}

	case "commit":
		if s.tx == nil {
			fmt.Println("no active transaction")
			return
		}
		result := s.db.Txn.CommitTransaction(s.tx)
		fmt.Printf("%s%v\n", resultprompt, result)
		s.tx = nil

	case "abort":
		if s.tx == nil {
			fmt.Println("no active transaction")
			return
		}
		result := s.db.Txn.AbortTransaction(s.tx)
		fmt.Printf("%s%v\n", resultprompt, result)
		s.tx = nil

	case "stats":
		if ms, ok := s.db.Stats.(*storage.MemStats); ok {
			for _, snap := range ms.Snapshots() {
				fmt.Printf("%s%+v\n", resultprompt, snap)
			}
		}

	case "exit", "quit":
		os.Exit(0)

	default:
		fmt.Println("commands: begin [ro] | insert <key> <value> | read <key> | commit | abort | stats | exit")
	}
}
