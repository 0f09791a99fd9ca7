package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// Raw dump of the puzzle database, for poking at stored records without the
// server. Prefix with "puzzle:" or "user:" to narrow the scan.
func main() {
	dbPath := flag.String("db", "", "path to badger DB")
	prefix := flag.String("prefix", "", "key prefix to scan (empty scans everything)")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("missing -db")
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Size", "Detail"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				table.Append([]string{key, keyType(key), fmt.Sprintf("%d", len(v)), detail(key, v)})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func keyType(key string) string {
	switch {
	case strings.HasPrefix(key, "puzzle:"):
		return "PUZZLE"
	case strings.HasPrefix(key, "user:"):
		return "USER"
	case strings.HasPrefix(key, "seq:"):
		return "SEQ"
	default:
		return "RAW"
	}
}

// detail summarizes a record instead of dumping it: a grid record can be
// hundreds of cells.
func detail(key string, value []byte) string {
	var record map[string]any
	if err := json.Unmarshal(value, &record); err != nil {
		return fmt.Sprintf("%x", value)
	}

	switch {
	case strings.HasPrefix(key, "puzzle:"):
		rows, _ := record["rows"].([]any)
		cols := 0
		if len(rows) > 0 {
			if row, ok := rows[0].([]any); ok {
				cols = len(row)
			}
		}
		return fmt.Sprintf("%v %dx%d rotation=%v", record["path"], len(rows), cols, record["rotation"])
	case strings.HasPrefix(key, "user:"):
		return fmt.Sprintf("%v (%v)", record["name"], record["color"])
	default:
		return string(value)
	}
}
