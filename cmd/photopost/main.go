// photopost publishes a directory of photographs to Bluesky, once each.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bitbucket.org/kleinnic74/photopost/bluesky"
	"bitbucket.org/kleinnic74/photopost/domain"
	"bitbucket.org/kleinnic74/photopost/geocoding"
	"bitbucket.org/kleinnic74/photopost/geocoding/openstreetmap"
	"bitbucket.org/kleinnic74/photopost/ledger"
	"bitbucket.org/kleinnic74/photopost/pipeline"

	bolt "go.etcd.io/bbolt"
)

var (
	dir      string
	dbPath   string
	pds      string
	handle   string
	password string
	dryRun   bool
	force    string
	caption  string
	altText  string
	lang     string
	maxDim   int
	quality  int
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <photodir>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.StringVar(&dbPath, "db", defaultDBPath(), "Path to the photopost database file")
	flag.StringVar(&pds, "pds", envOrDefault("PHOTOPOST_PDS", ""), "PDS service URL (default https://bsky.social)")
	flag.StringVar(&handle, "handle", envOrDefault("PHOTOPOST_HANDLE", ""), "Bluesky handle")
	flag.StringVar(&password, "password", envOrDefault("PHOTOPOST_PASSWORD", ""), "Bluesky app password")
	flag.BoolVar(&dryRun, "dry-run", false, "Compose posts but do not publish and do not touch the ledger")
	flag.StringVar(&force, "force", "", "Comma-separated photo identities to republish, bypassing the ledger check")
	flag.StringVar(&caption, "text", "", "Flavor text to include in every post")
	flag.StringVar(&altText, "alt", "", "Alt text describing the images")
	flag.StringVar(&lang, "lang", "en", "Preferred language for resolved place names")
	flag.IntVar(&maxDim, "max-dimension", domain.DefaultMaxDimension, "Longest image edge in pixels after downscaling")
	flag.IntVar(&quality, "quality", domain.DefaultQuality, "JPEG quality of the uploaded image")
}

func main() {
	flag.Parse()
	dir = flag.Arg(0)
	if dir == "" {
		flag.Usage()
		os.Exit(1)
	}
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	paths, err := pipeline.ListPhotos(dir)
	if err != nil {
		return fmt.Errorf("cannot list photos in %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no photos found in %s", dir)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return err
	}
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("cannot open database %s: %w", dbPath, err)
	}
	defer db.Close()

	book, err := ledger.NewBoltLedger(db)
	if err != nil {
		return err
	}
	cells, err := geocoding.NewBoltCellStore(db)
	if err != nil {
		return err
	}
	cache := geocoding.NewCache(openstreetmap.NewResolver(lang), cells)

	var publisher pipeline.Publisher
	if !dryRun {
		if handle == "" || password == "" {
			return fmt.Errorf("-handle and -password are required (or set PHOTOPOST_HANDLE and PHOTOPOST_PASSWORD)")
		}
		client := bluesky.NewClient(pds)
		if err := client.Login(ctx, handle, password); err != nil {
			return fmt.Errorf("login as %s: %w", handle, err)
		}
		publisher = pipeline.NewBlueskyPublisher(client)
	}

	opts := pipeline.Options{
		DryRun:       dryRun,
		Force:        forcedIDs(),
		Caption:      caption,
		AltText:      altText,
		MaxDimension: maxDim,
		Quality:      quality,
	}
	run := pipeline.New(book, cache, publisher, opts)
	summary, err := run.Run(ctx, paths)
	printSummary(summary, cache.DumpStats())
	return err
}

func printSummary(s *pipeline.Summary, stats geocoding.Stats) {
	fmt.Printf("published: %d  skipped: %d  failed: %d", s.Published, s.Skipped, s.Failed)
	if s.Composed > 0 {
		fmt.Printf("  composed (dry-run): %d", s.Composed)
	}
	fmt.Println()
	fmt.Printf("geocode cache: %d hits / %d lookups\n", stats.Hits, stats.Total)
	for _, f := range s.Failures {
		if f.ID != "" {
			fmt.Printf("failed %s (%s): %s\n", f.Path, f.ID, f.Reason)
		} else {
			fmt.Printf("failed %s: %s\n", f.Path, f.Reason)
		}
	}
	if len(s.Failures) > 0 {
		fmt.Println("retry failed photos with -force <identity>[,<identity>...]")
	}
}

func forcedIDs() []domain.ID {
	if force == "" {
		return nil
	}
	var ids []domain.ID
	for _, part := range strings.Split(force, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, domain.ID(part))
		}
	}
	return ids
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "photopost.db"
	}
	return filepath.Join(home, ".photopost", "photopost.db")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
