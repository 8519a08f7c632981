package output

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/s0up4200/cip/cip"
)

// recordNameField is the Cumulus key of the "Record Name" field
const recordNameField = "{af4b2e00-5f6a-11d2-8f20-0000c0e166dc}"

// titleFields are tried in order to label an asset
var titleFields = []string{"title", "name", recordNameField}

// FormatOptions contains options for formatting output
type FormatOptions struct {
	// ShowDetails lists the fields below each asset
	ShowDetails bool
	// Fields limits the listed fields; empty means all, sorted by key
	Fields []string
	// TitleField overrides the field used as the asset label
	TitleField string
	// MaxValueLen truncates long values; zero keeps them whole
	MaxValueLen int
}

// ConsoleFormatter provides tree-style console output for CIP objects
type ConsoleFormatter struct{}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{}
}

// branch returns the tree prefix and the indent for child lines
func branch(isLast bool) (string, string) {
	if isLast {
		return "╰", "    "
	}
	return "├", "│   "
}

func plural(sb *strings.Builder, noun string, n int) {
	sb.WriteString("\n" + noun)
	if n != 1 {
		sb.WriteString("s")
	}
}

// FormatCatalogs formats the catalog list
func (f *ConsoleFormatter) FormatCatalogs(catalogs []*cip.Catalog) string {
	if len(catalogs) == 0 {
		return "No catalogs found"
	}

	var sb strings.Builder
	plural(&sb, "Catalog", len(catalogs))
	fmt.Fprintf(&sb, " (%d):\n\n", len(catalogs))

	for i, cat := range catalogs {
		isLast := i == len(catalogs)-1
		prefix, _ := branch(isLast)
		fmt.Fprintf(&sb, "%s── %s [%s]\n", prefix, cat.Name, cat.Alias)
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatTables formats the tables of a catalog
func (f *ConsoleFormatter) FormatTables(catalog *cip.Catalog, tables []*cip.Table) string {
	if len(tables) == 0 {
		return fmt.Sprintf("No tables found in %s", catalog.Alias)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nTables in %s (%d):\n\n", catalogLabel(catalog), len(tables))

	for i, table := range tables {
		prefix, _ := branch(i == len(tables)-1)
		fmt.Fprintf(&sb, "%s── %s\n", prefix, table.Name)
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatCategories formats a category tree
func (f *ConsoleFormatter) FormatCategories(catalog *cip.Catalog, categories []cip.Category) string {
	if len(categories) == 0 {
		return fmt.Sprintf("No categories found in %s", catalog.Alias)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nCategories in %s:\n\n", catalogLabel(catalog))
	formatCategoryLevel(&sb, categories, "")
	sb.WriteString("\n")
	return sb.String()
}

func formatCategoryLevel(sb *strings.Builder, categories []cip.Category, indent string) {
	for i, category := range categories {
		prefix, childIndent := branch(i == len(categories)-1)
		fmt.Fprintf(sb, "%s%s── %s (#%d)\n", indent, prefix, category.Name, category.ID)
		formatCategoryLevel(sb, category.Subcategories, indent+childIndent)
	}
}

// FormatLayout formats the fields of a table layout
func (f *ConsoleFormatter) FormatLayout(table *cip.Table, layout *cip.Layout) string {
	if len(layout.Fields) == 0 {
		return fmt.Sprintf("Layout of %s has no fields", table.Name)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nFields of %s (%d):\n\n", table.Name, len(layout.Fields))

	for i, field := range layout.Fields {
		isLast := i == len(layout.Fields)-1
		prefix, indent := branch(isLast)

		fmt.Fprintf(&sb, "%s── %s\n", prefix, field.Name)
		fmt.Fprintf(&sb, "%sKey: %s\n", indent, field.Key)
		if field.Type != "" {
			fmt.Fprintf(&sb, "%sType: %s\n", indent, field.Type)
		}

		if !isLast {
			sb.WriteString("│\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatAssets formats a page of assets. total is the size of the whole
// result and may exceed len(assets).
func (f *ConsoleFormatter) FormatAssets(assets []*cip.Asset, total int, options FormatOptions) string {
	if len(assets) == 0 {
		return "No assets found"
	}

	var sb strings.Builder
	plural(&sb, "Asset", len(assets))
	if total > len(assets) {
		fmt.Fprintf(&sb, " (%d of %d):\n\n", len(assets), total)
	} else {
		fmt.Fprintf(&sb, " (%d):\n\n", len(assets))
	}

	for i, asset := range assets {
		isLast := i == len(assets)-1
		f.formatAsset(&sb, asset, isLast, options)

		if !isLast && options.ShowDetails {
			sb.WriteString("│\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatAsset formats a single asset with all of its fields
func (f *ConsoleFormatter) FormatAsset(asset *cip.Asset, options FormatOptions) string {
	var sb strings.Builder
	options.ShowDetails = true
	sb.WriteString("\n")
	f.formatAsset(&sb, asset, true, options)
	sb.WriteString("\n")
	return sb.String()
}

// FormatVersions formats the stored versions of an asset
func (f *ConsoleFormatter) FormatVersions(versions []cip.Version) string {
	if len(versions) == 0 {
		return "No versions found"
	}

	var sb strings.Builder
	plural(&sb, "Version", len(versions))
	fmt.Fprintf(&sb, " (%d):\n\n", len(versions))

	for i, v := range versions {
		prefix, _ := branch(i == len(versions)-1)

		var parts []string
		if v.Date != "" {
			parts = append(parts, v.Date)
		}
		if v.User != "" {
			parts = append(parts, "by "+v.User)
		}
		if v.Comment != "" {
			parts = append(parts, fmt.Sprintf("%q", v.Comment))
		}

		fmt.Fprintf(&sb, "%s── %s", prefix, v.Version)
		if len(parts) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(parts, ", "))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	return sb.String()
}

// formatAsset formats a single asset entry
func (f *ConsoleFormatter) formatAsset(sb *strings.Builder, asset *cip.Asset, isLast bool, options FormatOptions) {
	prefix, indent := branch(isLast)

	title := singleLine(assetTitle(asset, options.TitleField))
	if title == "" {
		fmt.Fprintf(sb, "%s── #%s\n", prefix, asset.ID())
	} else {
		fmt.Fprintf(sb, "%s── %s (#%s)\n", prefix, title, asset.ID())
	}

	if !options.ShowDetails {
		return
	}

	keys := options.Fields
	if len(keys) == 0 {
		keys = slices.Sorted(maps.Keys(asset.Fields()))
	}

	for _, key := range keys {
		value, ok := asset.Field(key)
		if !ok || value == nil || key == "id" {
			continue
		}
		fmt.Fprintf(sb, "%s%s: %s\n", indent, key, formatValue(value, options.MaxValueLen))
	}
}

func catalogLabel(catalog *cip.Catalog) string {
	if catalog.Name == "" {
		return catalog.Alias
	}
	return fmt.Sprintf("%s [%s]", catalog.Name, catalog.Alias)
}

func assetTitle(asset *cip.Asset, override string) string {
	if override != "" {
		return asset.FieldString(override)
	}
	for _, key := range titleFields {
		if title := asset.FieldString(key); title != "" {
			return title
		}
	}
	return ""
}

// singleLine folds line breaks into spaces so a value stays on its tree line
func singleLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

func formatValue(value any, maxLen int) string {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			s = fmt.Sprint(v)
		} else {
			s = string(data)
		}
	default:
		s = fmt.Sprint(v)
	}

	s = singleLine(s)
	if maxLen > 0 && len([]rune(s)) > maxLen {
		s = string([]rune(s)[:maxLen]) + "…"
	}
	return s
}

// JSONFormatter writes values as indented JSON
type JSONFormatter struct {
	w io.Writer
}

// NewJSONFormatter creates a formatter writing to w
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{w: w}
}

// Write encodes v. Assets are written as their field maps and catalogs
// as name/alias pairs.
func (f *JSONFormatter) Write(v any) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(jsonValue(v))
}

type catalogJSON struct {
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

func jsonValue(v any) any {
	switch v := v.(type) {
	case *cip.Asset:
		return v.Fields()
	case []*cip.Asset:
		out := make([]map[string]any, 0, len(v))
		for _, asset := range v {
			out = append(out, asset.Fields())
		}
		return out
	case *cip.Catalog:
		return catalogJSON{Name: v.Name, Alias: v.Alias}
	case []*cip.Catalog:
		out := make([]catalogJSON, 0, len(v))
		for _, cat := range v {
			out = append(out, catalogJSON{Name: cat.Name, Alias: cat.Alias})
		}
		return out
	case []*cip.Table:
		out := make([]string, 0, len(v))
		for _, table := range v {
			out = append(out, table.Name)
		}
		return out
	case *cip.Layout:
		return v.Fields
	default:
		return v
	}
}
