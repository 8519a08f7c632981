package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cipServer is a minimal CIP service recording the operations it served
type cipServer struct {
	*httptest.Server

	mu         sync.Mutex
	operations []string
}

func (s *cipServer) served() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.operations...)
}

func newCIPServer(t *testing.T) *cipServer {
	t.Helper()
	s := &cipServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, session, _ := strings.Cut(r.URL.Path, ";")
		op := strings.TrimPrefix(path, "/CIP/")

		s.mu.Lock()
		s.operations = append(s.operations, op)
		s.mu.Unlock()

		if op != "session/open" {
			assert.Equal(t, "jsessionid=S123", session, "operation %s", op)
		}
		assert.NoError(t, r.ParseForm())

		w.Header().Set("Content-Type", "application/json")
		switch op {
		case "session/open":
			assert.Equal(t, "guest", r.PostForm.Get("user"))
			fmt.Fprint(w, `{"jsessionid":"S123"}`)
		case "session/close":
		case "metadata/getcatalogs":
			fmt.Fprint(w, `{"catalogs":[{"name":"Frihedsmuseet"},{"name":"Unmapped"}]}`)
		case "metadata/search/FHM":
			assert.Equal(t, "horse", r.PostForm.Get("quicksearchstring"))
			fmt.Fprint(w, `{"collection":"c1","totalcount":2}`)
		case "metadata/getfieldvalues/web":
			assert.Equal(t, "c1", r.PostForm.Get("collection"))
			fmt.Fprint(w, `{"items":[
				{"id":1,"title":"Horse","year":1944},
				{"id":2,"title":"Horse cart","year":1950}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func writeTestConfig(t *testing.T, url string) string {
	t.Helper()
	content := fmt.Sprintf(`
cip:
  url: %s/CIP/
  username: guest
constants:
  catch_all_alias: any
  layout_alias: web
catalogs:
  - name: Frihedsmuseet
    alias: FHM
filter:
  presets:
    wartime: 'field("year") <= 1945'
logging:
  level: error
`, url)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// resetFlags clears flag state left behind by an earlier execution
func resetFlags() {
	cfgFile = ""
	jsonOutput = false
	refreshCatalogs = false
	searchOpts = searchFlags{}
	showVersions, relation, thumbSize = false, "", 0

	var reset func(c *cobra.Command)
	reset = func(c *cobra.Command) {
		c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
		for _, sub := range c.Commands() {
			reset(sub)
		}
	}
	reset(rootCmd)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	closeSession(context.Background())
	return out.String(), err
}

func TestCatalogsCommand(t *testing.T) {
	server := newCIPServer(t)
	config := writeTestConfig(t, server.URL)

	out, err := execute(t, "--config", config, "catalogs")
	require.NoError(t, err)

	assert.Contains(t, out, "╰── Frihedsmuseet [FHM]")
	assert.NotContains(t, out, "Unmapped")
	assert.Equal(t, []string{"session/open", "metadata/getcatalogs", "session/close"}, server.served())

	out, err = execute(t, "--config", config, "catalogs", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Frihedsmuseet","alias":"FHM"}]`, out)
}

func TestSearchCommand(t *testing.T) {
	server := newCIPServer(t)
	config := writeTestConfig(t, server.URL)

	tests := []struct {
		name     string
		args     []string
		contains []string
		excludes []string
		json     string
	}{
		{
			name:     "page",
			contains: []string{"Assets (2):", "├── Horse (#1)", "╰── Horse cart (#2)"},
		},
		{
			name:     "details",
			args:     []string{"--fields", "year"},
			contains: []string{"│   year: 1944", "    year: 1950"},
			excludes: []string{"title:"},
		},
		{
			name:     "where",
			args:     []string{"--where", `field("year") < 1945`},
			contains: []string{"Asset (1):", "╰── Horse (#1)"},
			excludes: []string{"Horse cart"},
		},
		{
			name:     "where helper",
			args:     []string{"--where", `containsText(str("title"), "CART")`},
			contains: []string{"Asset (1):", "╰── Horse cart (#2)"},
			excludes: []string{"Horse (#1)"},
		},
		{
			name:     "preset",
			args:     []string{"--preset", "wartime", "--all"},
			contains: []string{"╰── Horse (#1)"},
			excludes: []string{"Horse cart"},
		},
		{
			name: "json",
			args: []string{"--json"},
			json: `[{"id":1,"title":"Horse","year":1944},{"id":2,"title":"Horse cart","year":1950}]`,
		},
		{
			name:     "jq",
			args:     []string{"--jq", ".title"},
			contains: []string{"\"Horse\"\n\"Horse cart\"\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", config, "search", "FHM", "horse"}, tt.args...)
			out, err := execute(t, args...)
			require.NoError(t, err)

			if tt.json != "" {
				assert.JSONEq(t, tt.json, out)
			}
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSearchCommandRejectsBadExpressions(t *testing.T) {
	server := newCIPServer(t)
	config := writeTestConfig(t, server.URL)

	tests := []struct {
		name string
		args []string
		err  string
	}{
		{name: "filter", args: []string{"--where", `field("year" <`}, err: "invalid filter expression"},
		{name: "jq", args: []string{"--jq", ".title |"}, err: "invalid jq expression"},
		{name: "unknown preset", args: []string{"--preset", "missing"}, err: "preset 'missing' not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", config, "search", "FHM", "horse"}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}

	assert.NotContains(t, server.served(), "metadata/search/FHM")
}

func TestVersionCommand(t *testing.T) {
	t.Run("without config", func(t *testing.T) {
		out, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "version")
		require.NoError(t, err)
		assert.Equal(t, "cip dev (built unknown)\n", out)
	})

	t.Run("server unreachable", func(t *testing.T) {
		server := newCIPServer(t)
		config := writeTestConfig(t, server.URL)
		server.Close()

		out, err := execute(t, "--config", config, "version")
		require.NoError(t, err)
		assert.Equal(t, "cip dev (built unknown)\n", out)
	})
}

func TestUpdateCommandDevBuild(t *testing.T) {
	_, err := execute(t, "update")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "development builds")
}
