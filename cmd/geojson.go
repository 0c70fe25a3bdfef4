package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/reach-cli/internal/geo"
	"github.com/sells-group/reach-cli/internal/geojson"
)

var geojsonCmd = &cobra.Command{
	Use:   "geojson",
	Short: "Inspect and combine GeoJSON files",
}

var geojsonValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check files for GeoJSON structural validity",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var failed int
		for _, path := range args {
			raw, err := os.ReadFile(path)
			if err != nil {
				fmt.Printf("%s: %v\n", path, err)
				failed++
				continue
			}
			if _, err := geojson.Validate(raw); err != nil {
				fmt.Printf("%s: invalid: %v\n", path, err)
				failed++
				continue
			}
			fmt.Printf("%s: ok\n", path)
		}
		if failed > 0 {
			return eris.Errorf("geojson: %d of %d files invalid", failed, len(args))
		}
		return nil
	},
}

var geojsonBBoxCmd = &cobra.Command{
	Use:   "bbox <file>",
	Short: "Print the bounding box of a GeoJSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "geojson: read %s", args[0])
		}
		box, err := geojson.BBox(raw)
		if err != nil {
			return err
		}
		fmt.Printf("[%g, %g, %g, %g]\n", box[0], box[1], box[2], box[3])
		return nil
	},
}

var geojsonMidpointCmd = &cobra.Command{
	Use:   "midpoint <file>",
	Short: "Print the geographic midpoint of a GeoJSON file",
	Long:  "Computes the spherical midpoint of every coordinate position in the file, printed as [latitude, longitude].",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "geojson: read %s", args[0])
		}
		positions, err := geojson.Positions(raw)
		if err != nil {
			return err
		}

		coords := make([][2]float64, len(positions))
		for i, p := range positions {
			coords[i] = [2]float64{p[1], p[0]}
		}
		mid, err := geo.Midpoint(coords)
		if err != nil {
			return err
		}
		fmt.Printf("[%g, %g]\n", mid[0], mid[1])
		return nil
	},
}

var geojsonMergeCmd = &cobra.Command{
	Use:   "merge <file>...",
	Short: "Merge files into one FeatureCollection",
	Long:  "Merges the features of every readable, valid input into a single FeatureCollection; unreadable or invalid files are skipped with a warning.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		merged, err := geojson.MergeFiles(args)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		raw, err := json.Marshal(merged)
		if err != nil {
			return eris.Wrap(err, "geojson: marshal merged collection")
		}
		if out == "" {
			fmt.Println(string(raw))
			return nil
		}
		if err := os.WriteFile(out, raw, 0o644); err != nil {
			return eris.Wrapf(err, "geojson: write %s", out)
		}
		return nil
	},
}

func init() {
	geojsonMergeCmd.Flags().String("out", "", "output file (defaults to stdout)")
	geojsonCmd.AddCommand(geojsonValidateCmd, geojsonBBoxCmd, geojsonMidpointCmd, geojsonMergeCmd)
	rootCmd.AddCommand(geojsonCmd)
}
