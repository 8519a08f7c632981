package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	refreshCatalogs bool
	categoryID      int64
	categoryLevels  int
)

var catalogsCmd = &cobra.Command{
	Use:   "catalogs",
	Short: "List the catalogs that have a configured alias",
	Args:  cobra.NoArgs,
	RunE:  runCatalogs,
}

var tablesCmd = &cobra.Command{
	Use:   "tables <catalog-alias>",
	Short: "List the tables of a catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runTables,
}

var layoutCmd = &cobra.Command{
	Use:   "layout <catalog-alias> [table]",
	Short: "Show the field layout of a table",
	Long: `Show the fields of a table as seen through the configured layout alias.
The table defaults to AssetRecords.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLayout,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories <catalog-alias>",
	Short: "Show the category tree of a catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategories,
}

func init() {
	catalogsCmd.Flags().BoolVar(&refreshCatalogs, "refresh", false, "bypass the cached catalog list")

	categoriesCmd.Flags().Int64Var(&categoryID, "id", 0, "root category id (0 lists from the top)")
	categoriesCmd.Flags().IntVar(&categoryLevels, "levels", 1, "number of levels to descend")

	rootCmd.AddCommand(catalogsCmd, tablesCmd, layoutCmd, categoriesCmd)
}

func runCatalogs(cmd *cobra.Command, args []string) error {
	catalogs, err := client.Catalogs(cmd.Context(), refreshCatalogs)
	if err != nil {
		return fmt.Errorf("failed to list catalogs: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, catalogs)
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatCatalogs(catalogs))
	return nil
}

func runTables(cmd *cobra.Command, args []string) error {
	table, err := client.GetTable(args[0], "")
	if err != nil {
		return err
	}

	tables, err := table.Catalog.Tables(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, tables)
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatTables(table.Catalog, tables))
	return nil
}

func runLayout(cmd *cobra.Command, args []string) error {
	name := cfg.Search.Table
	if len(args) > 1 {
		name = args[1]
	}

	table, err := client.GetTable(args[0], name)
	if err != nil {
		return err
	}

	layout, err := table.Layout(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get layout: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, layout)
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatLayout(table, layout))
	return nil
}

func runCategories(cmd *cobra.Command, args []string) error {
	table, err := client.GetTable(args[0], "")
	if err != nil {
		return err
	}

	categories, err := table.Catalog.Categories(cmd.Context(), categoryID, categoryLevels)
	if err != nil {
		return fmt.Errorf("failed to get categories: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd, categories)
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatCategories(table.Catalog, categories))
	return nil
}
