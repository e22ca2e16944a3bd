// btcmapctl is the operator CLI: generate coverage circles, validate
// the data files, render the sitemap, and run the load pipeline for a
// region from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/RelativelyIrrelevant/btcmapd/internal/adapters/btcmap"
	"github.com/RelativelyIrrelevant/btcmapd/internal/adapters/registry"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/domain"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/geo"
	"github.com/RelativelyIrrelevant/btcmapd/internal/core/usecases"
	"github.com/RelativelyIrrelevant/btcmapd/internal/pkg/config"
	"github.com/RelativelyIrrelevant/btcmapd/internal/pkg/geospatial"
	"github.com/RelativelyIrrelevant/btcmapd/internal/sitemap"
)

var (
	registryPath string
	meetupsPath  string
	outputPath   string
)

var rootCmd = &cobra.Command{
	Use:   "btcmapctl",
	Short: "Operator tooling for the Bitcoin merchant map",
	Long:  `Maintains the region registry and meetup data files, and runs the place pipeline outside the API server.`,
}

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Generate coverage circles for regions that lack them",
	Long: `Fetches each region's boundary, derives coverage circles from its
bounding box, and rewrites the registry file. Regions that already
carry circles are left untouched.`,
	Run: runCoverage,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the region registry and meetup data files",
	Run:   runValidate,
}

var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Render sitemap.xml from the registry and meetup data",
	Run:   runSitemap,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <region-slug>",
	Short: "Run the full load pipeline for one region and print the snapshot",
	Args:  cobra.ExactArgs(1),
	Run:   runFetch,
}

var checkBoundaries bool

func init() {
	rootCmd.PersistentFlags().StringVar(&registryPath, "regions", "data/regions.json", "Region registry file")
	rootCmd.PersistentFlags().StringVar(&meetupsPath, "meetups", "data/meetups.json", "Meetup data file")

	coverageCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the updated registry here instead of in place")
	validateCmd.Flags().BoolVar(&checkBoundaries, "boundaries", false, "Also fetch and parse every region's boundary")
	sitemapCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the sitemap here instead of stdout")
	fetchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the snapshot JSON here instead of stdout")

	rootCmd.AddCommand(coverageCmd, validateCmd, sitemapCmd, fetchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func upstreamClient() *btcmap.Client {
	cfg, err := config.Load("btcmapctl")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return btcmap.New(cfg.Upstream.BaseURL, cfg.Upstream.UserAgent,
		time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second)
}

func runCoverage(cmd *cobra.Command, args []string) {
	raw, err := os.ReadFile(registryPath)
	if err != nil {
		log.Fatalf("read registry: %v", err)
	}
	var regions []domain.Region
	if err := json.Unmarshal(raw, &regions); err != nil {
		log.Fatalf("parse registry: %v", err)
	}

	client := upstreamClient()
	ctx := context.Background()
	updated := 0

	for i := range regions {
		r := &regions[i]
		if len(r.Circles) > 0 {
			fmt.Printf("%-12s keeping %d hand-picked circles\n", r.Slug, len(r.Circles))
			continue
		}

		doc, err := client.FetchBoundary(ctx, r.BoundaryURL)
		if err != nil {
			log.Fatalf("%s: fetch boundary: %v", r.Slug, err)
		}
		boundary, err := geo.LoadBoundary(doc)
		if err != nil {
			log.Fatalf("%s: parse boundary: %v", r.Slug, err)
		}

		r.Circles = geospatial.CoverageCircles(boundary.Box)
		updated++
		fmt.Printf("%-12s generated %d circles (radius %.0f km)\n",
			r.Slug, len(r.Circles), r.Circles[0].RadiusKm)
	}

	if updated == 0 {
		fmt.Println("nothing to do")
		return
	}

	out, err := json.MarshalIndent(regions, "", "  ")
	if err != nil {
		log.Fatalf("marshal registry: %v", err)
	}
	out = append(out, '\n')

	dest := outputPath
	if dest == "" {
		dest = registryPath
	}
	if err := os.WriteFile(dest, out, 0o644); err != nil {
		log.Fatalf("write registry: %v", err)
	}
	fmt.Printf("wrote %s (%d regions updated)\n", dest, updated)
}

func runValidate(cmd *cobra.Command, args []string) {
	failed := false

	regions, err := registry.NewRegionFile(registryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL %s\n  %v\n", registryPath, err)
		failed = true
	} else {
		list, _ := regions.List(context.Background())
		fmt.Printf("OK   %s (%d regions)\n", registryPath, len(list))
	}

	if _, err := registry.NewMeetupFile(meetupsPath); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL %s\n  %v\n", meetupsPath, err)
		failed = true
	} else {
		fmt.Printf("OK   %s\n", meetupsPath)
	}

	if checkBoundaries && regions != nil {
		client := upstreamClient()
		ctx := context.Background()
		list, _ := regions.List(ctx)
		for _, r := range list {
			doc, err := client.FetchBoundary(ctx, r.BoundaryURL)
			if err != nil {
				fmt.Fprintf(os.Stderr, "FAIL %s boundary\n  %v\n", r.Slug, err)
				failed = true
				continue
			}
			b, err := geo.LoadBoundary(doc)
			if err != nil {
				fmt.Fprintf(os.Stderr, "FAIL %s boundary\n  %v\n", r.Slug, err)
				failed = true
				continue
			}
			fmt.Printf("OK   %s boundary (%d polygons)\n", r.Slug, len(b.Polygons))
		}
	}

	if failed {
		os.Exit(1)
	}
}

func runSitemap(cmd *cobra.Command, args []string) {
	cfg, err := config.Load("btcmapctl")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	regions, err := registry.NewRegionFile(registryPath)
	if err != nil {
		log.Fatalf("region registry: %v", err)
	}
	meetups, err := registry.NewMeetupFile(meetupsPath)
	if err != nil {
		log.Fatalf("meetup data: %v", err)
	}

	ctx := context.Background()
	list, _ := regions.List(ctx)
	slugs := make([]string, len(list))
	for i, r := range list {
		slugs[i] = r.Slug
	}
	states, err := usecases.NewMeetupService(meetups).States(ctx)
	if err != nil {
		log.Fatalf("meetup states: %v", err)
	}

	out := sitemap.NewBuilder(cfg.Server.BaseURL).Build(slugs, states, time.Now())
	if outputPath == "" {
		os.Stdout.Write(out)
		return
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		log.Fatalf("write sitemap: %v", err)
	}
	fmt.Printf("wrote %s\n", outputPath)
}

func runFetch(cmd *cobra.Command, args []string) {
	slug := args[0]

	regions, err := registry.NewRegionFile(registryPath)
	if err != nil {
		log.Fatalf("region registry: %v", err)
	}
	client := upstreamClient()
	svc := usecases.NewRegionService(regions, client, client, nil, nil)

	started := time.Now()
	snap, err := svc.Refresh(context.Background(), slug)
	if err != nil {
		log.Fatalf("refresh %s: %v", slug, err)
	}

	fmt.Fprintf(os.Stderr, "%s: %d candidates, %d inside, took %s\n",
		slug, snap.Stats.Candidates, snap.Stats.Inside, time.Since(started))

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Fatalf("marshal snapshot: %v", err)
	}
	out = append(out, '\n')

	if outputPath == "" {
		os.Stdout.Write(out)
		return
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		log.Fatalf("write snapshot: %v", err)
	}
	fmt.Printf("wrote %s\n", outputPath)
}
