package cip

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Asset is a row returned by the CIP service: a flat map of field values
// plus the catalog it belongs to. Assets are never modified.
type Asset struct {
	fields  map[string]any
	catalog *Catalog
}

// NewAsset wraps a field map returned by the service. Assets built for a
// catalog without a client can be inspected but not used for remote calls.
func NewAsset(fields map[string]any, catalog *Catalog) *Asset {
	return newAsset(fields, catalog)
}

func newAsset(fields map[string]any, catalog *Catalog) *Asset {
	return &Asset{
		fields:  maps.Clone(fields),
		catalog: catalog,
	}
}

// ID returns the asset id as a string
func (a *Asset) ID() string {
	return a.FieldString("id")
}

// Field returns the raw value of a field
func (a *Asset) Field(key string) (any, bool) {
	v, ok := a.fields[key]
	return v, ok
}

// FieldString returns a field formatted as a string, or "" when absent
func (a *Asset) FieldString(key string) string {
	v, ok := a.fields[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Fields returns a copy of all fields
func (a *Asset) Fields() map[string]any {
	return maps.Clone(a.fields)
}

// PlainFields returns a deep copy of the fields with json.Number values
// converted to int or float64.
func (a *Asset) PlainFields() map[string]any {
	return PlainValue(a.fields).(map[string]any)
}

// PlainValue converts json.Number values inside v, recursing into maps
// and slices. Other values are returned unchanged.
func PlainValue(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = PlainValue(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = PlainValue(item)
		}
		return out
	default:
		return v
	}
}

// Catalog returns the catalog the asset belongs to
func (a *Asset) Catalog() *Catalog {
	return a.catalog
}

func (a *Asset) client() *Client {
	if a.catalog == nil {
		return nil
	}
	return a.catalog.client
}

func (a *Asset) path(prefix ...string) string {
	return Operation(append(prefix, a.catalog.Alias, a.ID())).String()
}

// DownloadURL returns the URL of the most recent version of the asset file
func (a *Asset) DownloadURL() (string, error) {
	return a.url("asset/download", nil)
}

// VersionDownloadURL returns the URL of a specific version of the asset file
func (a *Asset) VersionDownloadURL(version int) (string, error) {
	return a.url("asset/download", Params{"version": version})
}

// ImageURL returns the URL of a full-size preview
func (a *Asset) ImageURL(params Params) (string, error) {
	return a.url("preview/image", params)
}

// url builds a session URL for op without calling the service. The session
// token is left out when the client is not connected.
func (a *Asset) url(op string, params Params) (string, error) {
	c := a.client()
	if c == nil {
		return "", preconditionf(op, "asset is not bound to a client")
	}
	if a.ID() == "" {
		return "", preconditionf(op, "asset has no id")
	}
	return c.URL(a.path(op), params, true), nil
}

// ThumbnailOptions selects the rendering of a thumbnail. Zero values are left out.
type ThumbnailOptions struct {
	Size    int
	MaxSize int
	Rotate  int
	Format  string
	Quality int
}

func (o ThumbnailOptions) params() (Params, error) {
	params := Params{}
	if o.Size < 0 || o.MaxSize < 0 {
		return nil, preconditionf("preview/thumbnail", "size and maxsize must not be negative")
	}
	if o.Size > 0 {
		params["size"] = o.Size
	}
	if o.MaxSize > 0 {
		params["maxsize"] = o.MaxSize
	}
	if o.Rotate != 0 {
		if o.Rotate%90 != 0 {
			return nil, preconditionf("preview/thumbnail", "rotate must be divisible by 90, got %d", o.Rotate)
		}
		params["rotate"] = o.Rotate
	}
	switch o.Format {
	case "":
	case "png", "jpeg":
		params["format"] = o.Format
	default:
		return nil, preconditionf("preview/thumbnail", "format must be png or jpeg, got %q", o.Format)
	}
	if o.Quality != 0 {
		if o.Quality < 0 || o.Quality > 100 {
			return nil, preconditionf("preview/thumbnail", "quality must be between 0 and 100, got %d", o.Quality)
		}
		params["quality"] = o.Quality
	}
	return params, nil
}

// ThumbnailURL returns the URL of a thumbnail rendered with opts
func (a *Asset) ThumbnailURL(opts ThumbnailOptions) (string, error) {
	params, err := opts.params()
	if err != nil {
		return "", err
	}
	return a.url("preview/thumbnail", params)
}

// Version describes a stored version of an asset file
type Version struct {
	Version json.Number `json:"version"`
	Date    string      `json:"date,omitempty"`
	User    string      `json:"user,omitempty"`
	Comment string      `json:"comment,omitempty"`
}

type versionsResponse struct {
	Versions []Version `json:"versions"`
}

// Versions lists the stored versions of the asset
func (a *Asset) Versions(ctx context.Context) ([]Version, error) {
	const op = "asset/getversions"
	c := a.client()
	if err := a.checkRemote(op); err != nil {
		return nil, err
	}

	var payload versionsResponse
	if err := c.callJSON(ctx, Op(a.path("asset", "getversions")), nil, &payload); err != nil {
		return nil, err
	}
	if payload.Versions == nil {
		return nil, malformedf(op, "missing versions")
	}
	return payload.Versions, nil
}

// Relation names a kind of link between assets
type Relation string

// Relations understood by metadata/getrelatedassets
const (
	RelationContains          Relation = "contains"
	RelationIsContainedIn     Relation = "iscontainedin"
	RelationReferences        Relation = "references"
	RelationIsReferencedBy    Relation = "isreferencedby"
	RelationIsVariantMasterOf Relation = "isvariantmasterof"
	RelationIsVariantOf       Relation = "isvariantof"
	RelationIsAlternateMaster Relation = "isalternatemaster"
	RelationIsAlternateOf     Relation = "isalternateof"
)

var relations = []Relation{
	RelationContains,
	RelationIsContainedIn,
	RelationReferences,
	RelationIsReferencedBy,
	RelationIsVariantMasterOf,
	RelationIsVariantOf,
	RelationIsAlternateMaster,
	RelationIsAlternateOf,
}

// Valid reports whether r is a known relation
func (r Relation) Valid() bool {
	return slices.Contains(relations, r)
}

type relatedAssetsResponse struct {
	Items []map[string]any `json:"items"`
	IDs   []json.Number    `json:"ids"`
}

// RelatedAssets returns the assets linked to this one by relation. When the
// service only reports ids the returned assets carry just the id field.
func (a *Asset) RelatedAssets(ctx context.Context, relation Relation) ([]*Asset, error) {
	const op = "metadata/getrelatedassets"
	c := a.client()
	if err := a.checkRemote(op); err != nil {
		return nil, err
	}
	if !relation.Valid() {
		return nil, preconditionf(op, "unknown relation %q", relation)
	}

	var payload relatedAssetsResponse
	if err := c.callJSON(ctx, Op(a.path("metadata", "getrelatedassets")+"/"+string(relation)), nil, &payload); err != nil {
		return nil, err
	}

	switch {
	case payload.Items != nil:
		assets := make([]*Asset, 0, len(payload.Items))
		for _, item := range payload.Items {
			assets = append(assets, newAsset(item, a.catalog))
		}
		return assets, nil
	case payload.IDs != nil:
		assets := make([]*Asset, 0, len(payload.IDs))
		for _, id := range payload.IDs {
			assets = append(assets, newAsset(map[string]any{"id": id}, a.catalog))
		}
		return assets, nil
	default:
		return nil, malformedf(op, "missing items")
	}
}

func (a *Asset) checkRemote(op string) error {
	c := a.client()
	if c == nil {
		return preconditionf(op, "asset is not bound to a client")
	}
	if err := c.requireSession(op); err != nil {
		return err
	}
	if a.ID() == "" {
		return preconditionf(op, "asset has no id")
	}
	return nil
}
