package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/cip/cip"
	"github.com/s0up4200/cip/filter"
	"github.com/s0up4200/cip/jq"
	"github.com/s0up4200/cip/output"
)

// searchFlags holds the flags of the search command
type searchFlags struct {
	query    string
	sortBy   string
	table    string
	pageSize int
	start    int
	all      bool
	where    string
	preset   string
	jq       string
	details  bool
	fields   []string
}

var searchOpts searchFlags

var searchCmd = &cobra.Command{
	Use:   "search <catalog-alias> [text]",
	Short: "Search a catalog and print the matching assets",
	Long: `Search a catalog with free text, a Cumulus query or both.

The result can be narrowed client-side with an expression (--where) or a
preset from the config (--preset), and projected with a jq expression.
Filter expressions use expr syntax with helpers such as field, str, has,
dateField, containsText, hasPrefix, hasSuffix, daysSince and yearsAgo.`,
	Example: `  cip search FHM horse
  cip search FHM --query 'Record Name contains "horse"' --sort "Record Name"
  cip search FHM horse --all --where 'field("year") < 1945'
  cip search FHM horse --where 'containsText(str("title"), "cart")'
  cip search FHM horse --jq '{id, title}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&searchOpts.query, "query", "q", "", "criteria query in the Cumulus query language")
	f.StringVarP(&searchOpts.sortBy, "sort", "s", "", "field to sort on")
	f.StringVarP(&searchOpts.table, "table", "t", "", "table to search (default from config)")
	f.IntVarP(&searchOpts.pageSize, "page-size", "n", 0, "rows per page (default from config)")
	f.IntVar(&searchOpts.start, "start", 0, "index of the first row")
	f.BoolVarP(&searchOpts.all, "all", "a", false, "fetch every row of the result")
	f.StringVarP(&searchOpts.where, "where", "w", "", "filter expression applied to the fetched rows")
	f.StringVarP(&searchOpts.preset, "preset", "p", "", "use a preset filter from config")
	f.StringVar(&searchOpts.jq, "jq", "", "jq expression applied to each row")
	f.BoolVarP(&searchOpts.details, "details", "D", false, "show the fields of each asset")
	f.StringSliceVarP(&searchOpts.fields, "fields", "f", nil, "fields to show with --details")

	searchCmd.MarkFlagsMutuallyExclusive("where", "preset")
	searchCmd.MarkFlagsMutuallyExclusive("all", "start")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var text string
	if len(args) > 1 {
		text = args[1]
	}

	// Compile before searching so a bad expression costs no round trip
	var projection *jq.Query
	if searchOpts.jq != "" {
		var err error
		if projection, err = jq.Compile(searchOpts.jq); err != nil {
			return err
		}
	}

	manager, selection, err := searchFilter()
	if err != nil {
		return err
	}

	tableName := searchOpts.table
	if tableName == "" {
		tableName = cfg.Search.Table
	}
	table, err := client.GetTable(args[0], tableName)
	if err != nil {
		return err
	}

	started := time.Now()
	result, err := client.AdvancedSearch(ctx, table, cip.SearchQuery{
		QueryString: searchOpts.query,
		QuickSearch: text,
		SortBy:      searchOpts.sortBy,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	pageSize := searchOpts.pageSize
	if pageSize <= 0 {
		pageSize = cfg.Search.PageSize
	}

	var assets []*cip.Asset
	if searchOpts.all {
		assets, err = result.FetchAll(ctx, pageSize, cfg.Search.Concurrency)
	} else {
		assets, err = result.Get(ctx, pageSize, searchOpts.start)
	}
	if err != nil {
		return fmt.Errorf("failed to fetch results: %w", err)
	}

	logger.Info().
		Str("catalog", table.Catalog.Alias).
		Str("collection", result.CollectionID()).
		Int("total", result.TotalRows()).
		Int("fetched", len(assets)).
		Dur("took", time.Since(started)).
		Msg("Search complete")

	total := result.TotalRows()
	if selection != nil {
		assets, err = manager.Apply(ctx, selection, assets)
		if err != nil {
			return err
		}
		total = len(assets)
		logger.Debug().
			Str("filter", selection.Expression()).
			Int("matched", len(assets)).
			Msg("Filter applied")
	}

	switch {
	case projection != nil:
		values, err := projection.RunAssets(ctx, assets)
		if err != nil {
			return err
		}
		for _, v := range values {
			if err := printJSON(cmd, v); err != nil {
				return err
			}
		}
		return nil
	case jsonOutput:
		return printJSON(cmd, assets)
	}

	fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatAssets(assets, total, output.FormatOptions{
		ShowDetails: searchOpts.details || len(searchOpts.fields) > 0,
		Fields:      searchOpts.fields,
	}))
	return nil
}

// searchFilter builds the filter manager from the config presets and
// resolves the filter selected on the command line, if any
func searchFilter() (*filter.Manager, filter.CompiledFilter, error) {
	manager := filter.NewManager(
		filter.WithEvaluator(filter.NewEvaluator(filter.WithWorkers(cfg.Search.Concurrency))),
	)

	switch {
	case searchOpts.where != "":
		selection, err := manager.Compile(searchOpts.where)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid filter expression: %w", err)
		}
		return manager, selection, nil

	case searchOpts.preset != "":
		if err := manager.RegisterFilters(cfg.Filter.Presets); err != nil {
			return nil, nil, fmt.Errorf("invalid filter preset: %w", err)
		}
		selection, ok := manager.GetFilter(searchOpts.preset)
		if !ok {
			return nil, nil, fmt.Errorf("preset '%s' not found in config", searchOpts.preset)
		}
		return manager, selection, nil
	}

	return manager, nil, nil
}
