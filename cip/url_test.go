package cip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParams(t *testing.T) {
	tests := []struct {
		name          string
		apiVersion    int
		serverAddress string
		expected      Params
	}{
		{
			name:     "unset values fall back",
			expected: Params{"apiversion": 4, "serveraddress": "localhost"},
		},
		{
			name:          "explicit values",
			apiVersion:    5,
			serverAddress: "cumulus.local",
			expected:      Params{"apiversion": 5, "serveraddress": "cumulus.local"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DefaultParams(tt.apiVersion, tt.serverAddress))
		})
	}
}

func TestMergeParams(t *testing.T) {
	defaults := Params{"apiversion": 4, "serveraddress": "localhost"}

	t.Run("given values override defaults", func(t *testing.T) {
		merged := MergeParams(defaults, Params{"apiversion": 5, "table": "AssetRecords"})
		assert.Equal(t, Params{"apiversion": 5, "serveraddress": "localhost", "table": "AssetRecords"}, merged)
	})

	t.Run("nil values do not override", func(t *testing.T) {
		merged := MergeParams(defaults, Params{"apiversion": nil, "sortby": nil})
		assert.Equal(t, defaults, merged)
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		given := Params{"table": "AssetRecords"}
		MergeParams(defaults, given)
		assert.Len(t, defaults, 2)
		assert.Len(t, given, 1)
	})
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		params    Params
		token     string
		expected  string
	}{
		{
			name:      "no params means no query string",
			operation: "metadata/getcatalogs",
			expected:  testEndpoint + "metadata/getcatalogs",
		},
		{
			name:      "token goes before the query string",
			operation: "asset/download/FHM/42",
			params:    Params{"version": 3},
			token:     "S123",
			expected:  testEndpoint + "asset/download/FHM/42;jsessionid=S123?version=3",
		},
		{
			name:      "token without params",
			operation: "preview/image/FHM/42",
			token:     "S123",
			expected:  testEndpoint + "preview/image/FHM/42;jsessionid=S123",
		},
		{
			name:      "values are escaped",
			operation: "metadata/search/FHM",
			params:    Params{"querystring": "id == 5"},
			expected:  testEndpoint + "metadata/search/FHM?querystring=id+%3D%3D+5",
		},
		{
			name:      "leading slash in operation is dropped",
			operation: "/system/getversion",
			expected:  testEndpoint + "system/getversion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildURL(testEndpoint, tt.operation, tt.params, tt.token))
		})
	}
}

func TestBuildURLDeterministic(t *testing.T) {
	params := Params{"b": 2, "a": 1, "c": "three", "d": []string{"x", "y"}}

	first := BuildURL(testEndpoint, "op", params, "tok")
	for range 20 {
		assert.Equal(t, first, BuildURL(testEndpoint, "op", params, "tok"))
	}
}

func TestClientURL(t *testing.T) {
	c := newTestClient(t, &fakeTransport{})

	t.Run("defaults are merged", func(t *testing.T) {
		got := c.URL("asset/download/FHM/1", nil, true)
		assert.Equal(t, testEndpoint+"asset/download/FHM/1?apiversion=4&serveraddress=localhost", got)
	})

	t.Run("token is included once connected", func(t *testing.T) {
		c.token = "S123"
		defer func() { c.token = "" }()

		got := c.URL("asset/download/FHM/1", nil, true)
		assert.Equal(t, testEndpoint+"asset/download/FHM/1;jsessionid=S123?apiversion=4&serveraddress=localhost", got)

		got = c.URL("asset/download/FHM/1", nil, false)
		assert.NotContains(t, got, "jsessionid")
	})
}
