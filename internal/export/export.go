package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/chsandbox/internal/render"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// Formats lists the supported output formats
var Formats = []string{"text", "json", "csv", "yaml", "parquet", "raw"}

// gallery is the document written by the json and yaml formats
type gallery struct {
	Status render.Status `json:"status" yaml:"status"`
	Error  string        `json:"error,omitempty" yaml:"error,omitempty"`
	Tiles  []render.Tile `json:"tiles" yaml:"tiles"`
}

// Write renders view to w in the given format
func Write(w io.Writer, format string, view render.View) error {
	switch format {
	case "text":
		return writeText(w, view)
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(toGallery(view))
	case "csv":
		return writeCSV(w, view)
	case "yaml":
		return writeYAML(w, view)
	case "parquet":
		return writeParquet(w, view)
	case "raw":
		_, err := fmt.Fprintln(w, view.RawJSON)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func toGallery(view render.View) gallery {
	return gallery{Status: view.Status, Error: view.Error, Tiles: view.Tiles}
}

func writeText(w io.Writer, view render.View) error {
	switch view.Status {
	case render.StatusError:
		_, err := fmt.Fprintf(w, "Error: %s\n", view.Error)
		return err
	case render.StatusNotRun:
		_, err := fmt.Fprintln(w, "Run a query to see results.")
		return err
	case render.StatusEmpty:
		_, err := fmt.Fprintln(w, "No results.")
		return err
	case render.StatusLoading:
		_, err := fmt.Fprintln(w, "Querying Cooper Hewitt...")
		return err
	}

	for i, tile := range view.Tiles {
		image := tile.ImageURL
		if image == "" {
			image = "no image"
		}
		if _, err := fmt.Fprintf(w, "[%d] %s\n    %s\n", i+1, tile.Caption(), image); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(w io.Writer, view render.View) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"id", "title", "year", "image_url"}); err != nil {
		return err
	}
	for _, tile := range view.Tiles {
		if err := writer.Write([]string{tile.ID, tile.Title, tile.Year, tile.ImageURL}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeYAML(w io.Writer, view render.View) error {
	data, err := yaml.Marshal(toGallery(view))
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func writeParquet(w io.Writer, view render.View) error {
	writer := parquet.NewGenericWriter[render.Tile](w)
	if _, err := writer.Write(view.Tiles); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
