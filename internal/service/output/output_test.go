package output_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mekedron/coordextract/internal/domain"
	"github.com/mekedron/coordextract/internal/service/output"
)

func samplePoints() []domain.Point {
	name := "Monument"
	return []domain.Point{
		{Name: &name, Category: domain.CategoryWaypoint, Latitude: 38.8895, Longitude: -77.0353, GridRef: "18SUJ2339306483"},
		{Category: domain.CategoryTrackpoint, Latitude: 1.5, Longitude: 2, GridRef: "31NBF"},
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]output.Format{
		"":      output.FormatJSON,
		"JSON":  output.FormatJSON,
		" yaml": output.FormatYAML,
		"yml":   output.FormatYAML,
	}
	for raw, want := range cases {
		got, err := output.ParseFormat(raw)
		if err != nil {
			t.Fatalf("ParseFormat(%q): unexpected error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseFormat(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := output.ParseFormat("table"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if output.FormatYAML.Extension() != ".yaml" || output.FormatJSON.Extension() != ".json" {
		t.Fatal("unexpected format extensions")
	}
}

func TestRenderPointsCompactJSON(t *testing.T) {
	got, err := output.RenderPoints(samplePoints(), output.FormatJSON, 0)
	if err != nil {
		t.Fatalf("render json failed: %v", err)
	}
	want := `[{"name":"Monument","category":"waypoint","latitude":38.8895,"longitude":-77.0353,"gridRef":"18SUJ2339306483"},` +
		`{"name":null,"category":"trackpoint","latitude":1.5,"longitude":2,"gridRef":"31NBF"}]`
	if got != want {
		t.Fatalf("unexpected compact json:\n got %s\nwant %s", got, want)
	}
}

func TestRenderPointsKeepsMarkupInNames(t *testing.T) {
	name := "Tom & Jerry <cabin>"
	points := []domain.Point{{Name: &name, Category: domain.CategoryWaypoint, GridRef: "31NAA"}}
	for _, indent := range []int{0, 2} {
		got, err := output.RenderPoints(points, output.FormatJSON, indent)
		if err != nil {
			t.Fatalf("indent %d: render json failed: %v", indent, err)
		}
		if !strings.Contains(got, `"Tom & Jerry <cabin>"`) || strings.Contains(got, `\u00`) {
			t.Fatalf("indent %d: expected unescaped name, got %s", indent, got)
		}
		if strings.HasSuffix(got, "\n") {
			t.Fatalf("indent %d: expected no trailing newline, got %q", indent, got)
		}
	}
}

func TestRenderPointsIndentedJSON(t *testing.T) {
	got, err := output.RenderPoints(samplePoints(), output.FormatJSON, 4)
	if err != nil {
		t.Fatalf("render json failed: %v", err)
	}
	if !strings.Contains(got, "\n        \"category\": \"waypoint\"") {
		t.Fatalf("expected 4-space nesting, got:\n%s", got)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("indented output is not valid json: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(decoded))
	}
}

func TestRenderPointsEmpty(t *testing.T) {
	got, err := output.RenderPoints(nil, output.FormatJSON, 2)
	if err != nil {
		t.Fatalf("render json failed: %v", err)
	}
	if got != "[]" {
		t.Fatalf("expected empty array, got %q", got)
	}
	if _, err := output.RenderPoints(nil, output.FormatJSON, -1); err == nil {
		t.Fatal("expected error for negative indent")
	}
}

func TestRenderPointsYAML(t *testing.T) {
	got, err := output.RenderPoints(samplePoints(), output.FormatYAML, 2)
	if err != nil {
		t.Fatalf("render yaml failed: %v", err)
	}
	if !strings.Contains(got, "gridRef: 18SUJ2339306483") {
		t.Fatalf("expected gridRef in yaml payload, got %s", got)
	}
	if !strings.Contains(got, "name: null") {
		t.Fatalf("expected null name in yaml payload, got %s", got)
	}
}

func TestWriteFileAndPrint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := output.WriteFile(path, "[]"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if string(payload) != "[]\n" {
		t.Fatalf("unexpected file content %q", payload)
	}

	err = output.WriteFile(filepath.Join(t.TempDir(), "missing", "out.json"), "[]")
	if !errors.Is(err, output.ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}

	buf := &bytes.Buffer{}
	if err := output.Print(buf, "[]"); err != nil {
		t.Fatalf("print failed: %v", err)
	}
	if buf.String() != "[]\n" {
		t.Fatalf("unexpected printed output %q", buf.String())
	}
}
