package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Lllllllleong/mwmap/internal/apperr"
	"github.com/Lllllllleong/mwmap/internal/services"
)

var (
	importSite   string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a KML/KMZ file into a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateImportFlags(importSite, importDryRun); err != nil {
			return err
		}
		ctx := cmd.Context()
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrapf(err, "read %s", path)
		}
		name := filepath.Base(path)

		app, err := services.NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		if importDryRun {
			_, payload, err := app.KML.Convert(name, data)
			if err != nil {
				return fmt.Errorf("%s: %w", apperr.Message(err), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d features (%d points, %d lines, %d polygons)\n",
				name, payload.FeatureCount, payload.PointCount, payload.LineCount, payload.PolygonCount)
			return nil
		}

		payload, err := app.KML.ImportForSite(ctx, importSite, name, data)
		if err != nil {
			return fmt.Errorf("%s: %w", apperr.Message(err), err)
		}
		zap.L().Info("kml imported",
			zap.String("site_id", importSite),
			zap.String("file", name),
			zap.Int("features", payload.FeatureCount),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "imported %s into %s: %d features\n", name, importSite, payload.FeatureCount)
		return nil
	},
}

// validateImportFlags requires a destination site unless the import is a dry run.
func validateImportFlags(site string, dryRun bool) error {
	if !dryRun && strings.TrimSpace(site) == "" {
		return eris.New("--site is required unless --dry-run is set")
	}
	return nil
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the sites of the shared document",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := services.NewApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		doc, exists, err := app.Store.Get(cmd.Context())
		if err != nil {
			return err
		}
		if !exists {
			fmt.Fprintln(cmd.OutOrStdout(), "no sites")
			return nil
		}
		for _, s := range doc.Sites {
			title := s.Title
			if title == "" {
				title = services.UntitledSite
			}
			kml := "-"
			if p, ok := doc.KMLBySite[s.ID]; ok {
				kml = fmt.Sprintf("%s (%d features)", p.FileName, p.FeatureCount)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", s.ID, title, s.Timestamp, kml)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importSite, "site", "", "destination site id (required unless --dry-run)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "convert and summarize without writing")
	rootCmd.AddCommand(importCmd, sitesCmd)
}
