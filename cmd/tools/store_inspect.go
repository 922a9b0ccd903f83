// Store inspection tool. Dumps the persisted chat data behind a key
// prefix as a table, decoding message rows into their stored fields.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"

	"convocube/repositories"
)

func main() {
	dbPath := flag.String("db", "/tmp/convocube/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg: or group:)")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Chat", "Sender", "Status", "Kind", "Lang", "Body"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
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
			rawKey := string(item.Key())

			err := item.Value(func(v []byte) error {
				if !strings.HasPrefix(rawKey, "msg:") {
					// Groups and anything else stay raw JSON.
					table.Append([]string{rawKey, "", "", "", "", "", string(v)})
					return nil
				}

				msg, err := repositories.DecodeMessage(v)
				if err != nil {
					// Log the broken row and keep scanning.
					fmt.Printf("Error decoding key %s: %v\n", rawKey, err)
					return nil
				}

				body := msg.Body
				if len(body) > 60 {
					body = body[:60] + "…"
				}

				table.Append([]string{
					rawKey,
					string(msg.Chat),
					string(msg.Sender),
					msg.Status.String(),
					string(msg.Kind),
					msg.Lang,
					body,
				})
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
