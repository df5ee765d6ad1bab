// geoview renders the coverage of the persisted geocode cache as an
// SVG world map, one rectangle per cached cell.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"bitbucket.org/kleinnic74/photopost/domain/gps"
	"bitbucket.org/kleinnic74/photopost/geocoding"

	bolt "go.etcd.io/bbolt"
)

var (
	dbPath string
	out    string
)

func main() {
	flag.StringVar(&dbPath, "db", "photopost.db", "Path to the photopost database file")
	flag.StringVar(&out, "o", "geocells.svg", "Output SVG file")
	flag.Parse()

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		log.Fatalf("Cannot open database %s: %s", dbPath, err)
	}
	defer db.Close()

	cells, err := geocoding.NewBoltCellStore(db)
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(out)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	view := geocoding.NewGeoView(f)
	view.Begin(gps.WorldBounds)
	var count int
	err = cells.Visit(func(key string, entry geocoding.CellEntry) error {
		rect, err := geocoding.CellRect(key)
		if err != nil {
			return err
		}
		view.Cell(rect)
		count++
		return nil
	})
	view.End()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Fprintf(os.Stderr, "%d cells rendered to %s\n", count, out)
}
