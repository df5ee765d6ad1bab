// exifprint dumps the EXIF tags or the decoded capture metadata of
// photo files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"bitbucket.org/kleinnic74/photopost/domain"
	"bitbucket.org/kleinnic74/photopost/geocoding"
	"bitbucket.org/kleinnic74/photopost/geocoding/openstreetmap"
)

type tagSet map[string]bool

func (tags tagSet) Set(value string) error {
	tags[value] = true
	return nil
}

func (tags tagSet) String() string {
	if tags == nil {
		return ""
	}
	var b strings.Builder
	var sep string
	for k := range tags {
		b.WriteString(sep)
		b.WriteString(k)
		sep = ","
	}
	return b.String()
}

func (tags tagSet) Contains(tag string) bool {
	_, found := tags[tag]
	return found
}

type Action func(path string) error

func printExifData(path string) error {
	return domain.WalkExif(path, func(name, value string) {
		if len(tags) == 0 || tags.Contains(name) {
			fmt.Printf("%s: %s=%s\n", path, name, value)
		}
	})
}

func parseMetaAndPrint(resolver geocoding.Resolver) Action {
	return func(path string) error {
		photo, err := domain.NewPhoto(context.Background(), path)
		if err != nil {
			return err
		}
		fmt.Printf("%s: ID=%s\n", path, photo.ID)
		fmt.Printf("%s: DateTaken=%v\n", path, photo.Meta.DateTaken)
		fmt.Printf("%s: Location=%v\n", path, photo.Meta.Location)
		if resolver != nil && photo.Meta.Location.IsValid() {
			place, found, _ := resolver.ReverseGeocode(context.Background(), photo.Meta.Location.Lat(), photo.Meta.Location.Long())
			if found {
				fmt.Printf("%s: Place: %s\n", path, place)
			}
		}
		return nil
	}
}

var (
	tags          = make(tagSet)
	modeMeta      = false
	lookupAddress = false
)

func main() {
	flag.Var(tags, "t", "EXIF tags to print")
	flag.BoolVar(&modeMeta, "m", false, "Use MetaData parser")
	flag.BoolVar(&lookupAddress, "a", false, "Resolve location to a place name")
	flag.Parse()

	var action Action
	if modeMeta {
		var resolver geocoding.Resolver
		if lookupAddress {
			osm := openstreetmap.NewResolver("en")
			cache := geocoding.NewCache(osm, geocoding.NewMemoryCellStore())
			defer func() {
				stats := cache.DumpStats()
				fmt.Fprintf(os.Stderr, "  Geocode cache hits: %d\n", stats.Hits)
				fmt.Fprintf(os.Stderr, "  Geocode cache misses: %d\n", stats.Misses)
			}()
			resolver = cache
		}
		action = parseMetaAndPrint(resolver)
	} else {
		action = printExifData
	}
	path := flag.Arg(0)
	s, err := os.Stat(path)
	if err != nil {
		log.Fatalf("Cannot access %s: %s", path, err)
	}
	if s.IsDir() {
		filepath.Walk(path, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			return action(path)
		})
	} else {
		action(path)
	}
}
