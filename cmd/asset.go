package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/s0up4200/cip/cip"
	"github.com/s0up4200/cip/output"
)

var (
	showVersions bool
	relation     string
	thumbSize    int
)

var assetCmd = &cobra.Command{
	Use:   "asset <catalog-alias> <id>",
	Short: "Show the metadata and preview URLs of an asset",
	Example: `  cip asset FHM 42
  cip asset FHM 42 --versions
  cip asset FHM 42 --related isvariantof
  cip asset FHM 42 --thumb-size 400`,
	Args: cobra.ExactArgs(2),
	RunE: runAsset,
}

func init() {
	assetCmd.Flags().BoolVar(&showVersions, "versions", false, "list the stored versions of the asset")
	assetCmd.Flags().StringVar(&relation, "related", "", "list assets linked by this relation (e.g. contains, isvariantof)")
	assetCmd.Flags().IntVar(&thumbSize, "thumb-size", 0, "print a thumbnail URL of this size")

	rootCmd.AddCommand(assetCmd)
}

func runAsset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	asset, err := client.GetAsset(ctx, args[0], args[1], true)
	if err != nil {
		return fmt.Errorf("failed to get asset %s: %w", args[1], err)
	}

	download, err := asset.DownloadURL()
	if err != nil {
		return err
	}

	var thumbnail string
	if thumbSize > 0 {
		if thumbnail, err = asset.ThumbnailURL(cip.ThumbnailOptions{Size: thumbSize}); err != nil {
			return err
		}
	}

	var versions []cip.Version
	if showVersions {
		if versions, err = asset.Versions(ctx); err != nil {
			return fmt.Errorf("failed to get versions: %w", err)
		}
	}

	var related []*cip.Asset
	if relation != "" {
		if related, err = asset.RelatedAssets(ctx, cip.Relation(relation)); err != nil {
			return fmt.Errorf("failed to get related assets: %w", err)
		}
	}

	if jsonOutput {
		return printJSON(cmd, assetReport{
			Fields:    asset.Fields(),
			Download:  download,
			Thumbnail: thumbnail,
			Versions:  versions,
			Related:   relatedFields(related),
		})
	}

	fmt.Fprint(out, formatter.FormatAsset(asset, output.FormatOptions{MaxValueLen: 120}))
	printURL(out, "Download", download)
	if thumbnail != "" {
		printURL(out, "Thumbnail", thumbnail)
	}
	if showVersions {
		fmt.Fprintln(out, formatter.FormatVersions(versions))
	}
	if relation != "" {
		fmt.Fprintf(out, "\nRelation: %s", relation)
		fmt.Fprintln(out, formatter.FormatAssets(related, len(related), output.FormatOptions{}))
	}

	return nil
}

// assetReport is the JSON shape of the asset command
type assetReport struct {
	Fields    map[string]any   `json:"fields"`
	Download  string           `json:"download_url"`
	Thumbnail string           `json:"thumbnail_url,omitempty"`
	Versions  []cip.Version    `json:"versions,omitempty"`
	Related   []map[string]any `json:"related,omitempty"`
}

func relatedFields(assets []*cip.Asset) []map[string]any {
	if assets == nil {
		return nil
	}
	fields := make([]map[string]any, 0, len(assets))
	for _, a := range assets {
		fields = append(fields, a.Fields())
	}
	return fields
}

func printURL(w io.Writer, label, url string) {
	fmt.Fprintf(w, "%s: %s\n", label, url)
}
