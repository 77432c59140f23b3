package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/chsandbox/internal/compose"
	"github.com/lehigh-university-libraries/chsandbox/internal/presets"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQueryCommand(t *testing.T) {
	var gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotQuery = body.Query
		_, _ = io.WriteString(w, `{"data":{"object":[{"id":"1","title":"Poster","date":"1975","multimedia":"//img.example/p.jpg"}]}}`)
	}))
	defer upstream.Close()

	out, err := runRoot(t, "query", "--endpoint", upstream.URL, "--maker", "Ikko Tanaka", "--format", "csv")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !strings.Contains(gotQuery, `maker:"Ikko Tanaka"`) {
		t.Errorf("Expected maker filter in request, got %s", gotQuery)
	}

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("Invalid CSV output: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "1" || rows[1][2] != "1975" {
		t.Errorf("Unexpected CSV rows: %v", rows)
	}
}

func TestQueryCommandReportsAPIErrors(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"errors":[{"message":"x"},{"message":"y"}]}`)
	}))
	defer upstream.Close()

	out, err := runRoot(t, "query", "--endpoint", upstream.URL)
	if err == nil {
		t.Fatal("Expected an error for API errors")
	}
	if !strings.Contains(out, "Error: x\ny") {
		t.Errorf("Expected joined messages in output, got %q", out)
	}
}

func TestPresetsCommands(t *testing.T) {
	out, err := runRoot(t, "presets", "list")
	if err != nil {
		t.Fatalf("presets list failed: %v", err)
	}
	for _, name := range []string{"tanaka", "yokoo", "fukuda", "kamekura", "nagai"} {
		if !strings.Contains(out, name) {
			t.Errorf("Expected %s in preset list", name)
		}
	}

	out, err = runRoot(t, "presets", "show", "tanaka")
	if err != nil {
		t.Fatalf("presets show failed: %v", err)
	}
	if !strings.Contains(out, `maker:"Ikko Tanaka"`) {
		t.Errorf("Expected tanaka query, got %s", out)
	}

	if _, err := runRoot(t, "presets", "show", "nope"); err == nil {
		t.Error("Expected error for unknown preset")
	}
}

func TestQueryText(t *testing.T) {
	lib, err := presets.Default()
	if err != nil {
		t.Fatal(err)
	}
	nagai, _ := lib.Get("nagai")

	tests := []struct {
		name     string
		args     []string
		file     string
		preset   string
		stdin    string
		expected string
	}{
		{name: "argument wins", args: []string{"{ a }"}, preset: "nagai", expected: "{ a }"},
		{name: "stdin", file: "-", stdin: "{ b }", expected: "{ b }"},
		{name: "preset", preset: "nagai", expected: nagai.Query},
		{name: "default", expected: compose.DefaultQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := queryText(tt.args, tt.file, tt.preset, lib, strings.NewReader(tt.stdin))
			if err != nil {
				t.Fatalf("queryText failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}

	if _, err := queryText(nil, "", "nope", lib, nil); err == nil {
		t.Error("Expected error for unknown preset")
	}
}
