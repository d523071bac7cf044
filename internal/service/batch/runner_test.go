package batch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mekedron/coordextract/internal/domain"
	"github.com/mekedron/coordextract/internal/gateway/gpx"
	"github.com/mekedron/coordextract/internal/service/batch"
	"github.com/mekedron/coordextract/internal/service/mgrs"
	"github.com/mekedron/coordextract/internal/service/output"
	"github.com/mekedron/coordextract/internal/service/points"
)

const validGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test">
  <wpt lat="38.8895" lon="-77.0353"><name>Monument</name></wpt>
  <trk><trkseg>
    <trkpt lat="38.89" lon="abc"/>
    <trkpt lat="38.90" lon="-77.04"/>
  </trkseg></trk>
  <rte><rtept lat="-33.9249" lon="18.4241"/></rte>
</gpx>`

func newRunner(t *testing.T) *batch.Runner {
	t.Helper()
	converter, err := mgrs.New(mgrs.DefaultPrecision)
	if err != nil {
		t.Fatalf("unexpected converter error: %v", err)
	}
	return batch.NewRunner(gpx.NewParser(), points.NewAssembler(converter, nil), nil)
}

func writeInputs(t *testing.T, dir string, files map[string]string) []string {
	t.Helper()
	paths := make([]string, 0, len(files))
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write fixture %s: %v", name, err)
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func readOutputs(t *testing.T, dir string) map[string]string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	outputs := make(map[string]string, len(entries))
	for _, entry := range entries {
		payload, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			t.Fatalf("read output %s: %v", entry.Name(), err)
		}
		outputs[entry.Name()] = string(payload)
	}
	return outputs
}

func TestConvertIsIdempotent(t *testing.T) {
	inputs := writeInputs(t, t.TempDir(), map[string]string{"walk.gpx": validGPX})
	runner := newRunner(t)
	opts := batch.Options{Format: output.FormatJSON, Indent: 2}

	first, err := runner.Convert(context.Background(), inputs[0], opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := runner.Convert(context.Background(), inputs[0], opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected byte-identical output:\n%s\n---\n%s", first, second)
	}
}

func TestConvertFileWritesOrderedRecords(t *testing.T) {
	dir := t.TempDir()
	inputs := writeInputs(t, dir, map[string]string{"walk.gpx": validGPX})
	out := filepath.Join(dir, "custom.json")

	count, err := newRunner(t).ConvertFile(context.Background(), inputs[0], out, batch.Options{Format: output.FormatJSON})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 valid points, got %d", count)
	}
	payload, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	text := string(payload)
	wpt := strings.Index(text, `"category":"waypoint"`)
	trk := strings.Index(text, `"category":"trackpoint"`)
	rte := strings.Index(text, `"category":"routepoint"`)
	if wpt < 0 || trk < wpt || rte < trk {
		t.Fatalf("expected waypoint, trackpoint, routepoint order, got %s", text)
	}
}

func TestRunConcurrentMatchesSequential(t *testing.T) {
	inputDir := t.TempDir()
	inputs := writeInputs(t, inputDir, map[string]string{
		"a.gpx": validGPX,
		"b.gpx": `<gpx><wpt lat="60.1699" lon="24.9384"/></gpx>`,
		"c.gpx": `<gpx></gpx>`,
	})
	seqDir := filepath.Join(t.TempDir(), "seq")
	conDir := filepath.Join(t.TempDir(), "con")
	runner := newRunner(t)
	opts := batch.Options{Format: output.FormatJSON, Indent: 2}

	seqReport, err := runner.Run(context.Background(), batch.Request{Inputs: inputs, OutputDir: seqDir, Options: opts})
	if err != nil {
		t.Fatalf("sequential run failed: %v", err)
	}
	conReport, err := runner.Run(context.Background(), batch.Request{Inputs: inputs, OutputDir: conDir, Options: opts, Concurrent: true})
	if err != nil {
		t.Fatalf("concurrent run failed: %v", err)
	}

	seq := readOutputs(t, seqDir)
	con := readOutputs(t, conDir)
	if len(seq) != 3 {
		t.Fatalf("expected 3 outputs, got %v", seq)
	}
	if diff := cmp.Diff(seq, con); diff != "" {
		t.Fatalf("concurrent outputs differ (-seq +con):\n%s", diff)
	}
	if seq["c.json"] != "[]\n" {
		t.Fatalf("expected empty array for file without points, got %q", seq["c.json"])
	}
	for _, report := range []batch.Report{seqReport, conReport} {
		if len(report.Succeeded()) != 3 || len(report.Failed()) != 0 {
			t.Fatalf("unexpected report %+v", report)
		}
		for i, job := range report.Jobs {
			if job.Source != inputs[i] {
				t.Fatalf("expected report in input order, got %s at %d", job.Source, i)
			}
		}
	}
}

func TestRunReportsPartialFailure(t *testing.T) {
	inputDir := t.TempDir()
	inputs := writeInputs(t, inputDir, map[string]string{
		"good.gpx":   validGPX,
		"broken.gpx": `<gpx><wpt lat="1">`,
		"range.gpx":  `<gpx><wpt lat="200" lon="0"/></gpx>`,
	})
	outDir := filepath.Join(inputDir, "coordextract_output")

	for _, concurrent := range []bool{false, true} {
		report, err := newRunner(t).Run(context.Background(), batch.Request{
			Inputs:     inputs,
			OutputDir:  outDir,
			Options:    batch.Options{Format: output.FormatJSON},
			Concurrent: concurrent,
		})
		if !errors.Is(err, batch.ErrBatchFailure) {
			t.Fatalf("concurrent=%v: expected ErrBatchFailure, got %v", concurrent, err)
		}
		if !errors.Is(err, gpx.ErrParse) || !errors.Is(err, mgrs.ErrConversion) {
			t.Fatalf("concurrent=%v: expected parse and conversion causes, got %v", concurrent, err)
		}
		var batchErr *batch.Error
		if !errors.As(err, &batchErr) || len(batchErr.Failed) != 2 || batchErr.Total != 3 {
			t.Fatalf("concurrent=%v: unexpected batch error %v", concurrent, err)
		}
		if got := report.Succeeded(); len(got) != 1 || filepath.Base(got[0].Source) != "good.gpx" {
			t.Fatalf("concurrent=%v: unexpected successes %+v", concurrent, got)
		}
		if _, err := os.Stat(filepath.Join(outDir, "good.json")); err != nil {
			t.Fatalf("concurrent=%v: expected good.json to be kept: %v", concurrent, err)
		}
		for _, job := range report.Failed() {
			if job.Status != batch.StatusFailed || job.Err == nil {
				t.Fatalf("concurrent=%v: unexpected failed job %+v", concurrent, job)
			}
		}
	}
}

func TestRunRejectsInvalidDestinations(t *testing.T) {
	inputDir := t.TempDir()
	inputs := writeInputs(t, inputDir, map[string]string{"a.gpx": validGPX})

	_, err := newRunner(t).Run(context.Background(), batch.Request{Inputs: inputs})
	if !errors.Is(err, batch.ErrNoDestination) {
		t.Fatalf("expected ErrNoDestination, got %v", err)
	}

	other := filepath.Join(t.TempDir(), "a.gpx")
	_, err = newRunner(t).Run(context.Background(), batch.Request{Inputs: append(inputs, other), OutputDir: t.TempDir()})
	if !errors.Is(err, batch.ErrOutputCollision) {
		t.Fatalf("expected ErrOutputCollision, got %v", err)
	}

	_, err = newRunner(t).Run(context.Background(), batch.Request{Inputs: append(inputs, other), OutputFile: "x.json"})
	if err == nil {
		t.Fatal("expected error for output file with several inputs")
	}
}

func TestRunSingleOutputFile(t *testing.T) {
	inputDir := t.TempDir()
	inputs := writeInputs(t, inputDir, map[string]string{"a.gpx": validGPX})
	out := filepath.Join(inputDir, "result.yaml")

	report, err := newRunner(t).Run(context.Background(), batch.Request{
		Inputs:     inputs,
		OutputFile: out,
		Options:    batch.Options{Format: output.FormatYAML, Indent: 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Jobs) != 1 || report.Jobs[0].Output != out || report.Jobs[0].Points != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	got := batch.OutputPath("/out", "/data/morning.run.gpx", output.FormatJSON)
	if got != filepath.Join("/out", "morning.run.json") {
		t.Fatalf("unexpected output path %q", got)
	}
}

type blockingParser struct {
	started chan string
	release chan struct{}
	failed  chan struct{}
}

func (p *blockingParser) ParseFile(_ context.Context, path string) (domain.Track, error) {
	if filepath.Base(path) == "bad.gpx" {
		defer close(p.failed)
		return domain.Track{}, &gpx.ParseError{Path: path, Reason: "boom"}
	}
	p.started <- path
	<-p.release
	return domain.Track{}, nil
}

type emptyAssembler struct{}

func (emptyAssembler) Assemble(context.Context, domain.Track) ([]domain.Point, error) {
	return []domain.Point{}, nil
}

func TestRunConcurrentDoesNotCancelSiblings(t *testing.T) {
	parser := &blockingParser{
		started: make(chan string, 1),
		release: make(chan struct{}),
		failed:  make(chan struct{}),
	}
	runner := batch.NewRunner(parser, emptyAssembler{}, nil)
	outDir := t.TempDir()

	type result struct {
		report batch.Report
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := runner.Run(context.Background(), batch.Request{
			Inputs:     []string{"slow.gpx", "bad.gpx"},
			OutputDir:  outDir,
			Concurrent: true,
		})
		done <- result{report: report, err: err}
	}()

	<-parser.started
	<-parser.failed
	select {
	case <-done:
		t.Fatal("run returned before the slow sibling finished")
	case <-time.After(20 * time.Millisecond):
	}
	close(parser.release)

	res := <-done
	if !errors.Is(res.err, batch.ErrBatchFailure) {
		t.Fatalf("expected ErrBatchFailure, got %v", res.err)
	}
	if res.report.Jobs[0].Status != batch.StatusSucceeded {
		t.Fatalf("expected slow sibling to succeed, got %s", res.report.Jobs[0].Status)
	}
	if _, err := os.Stat(filepath.Join(outDir, "slow.json")); err != nil {
		t.Fatalf("expected slow sibling output: %v", err)
	}
}

type countingParser struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	calls   atomic.Int32
}

func (p *countingParser) ParseFile(context.Context, string) (domain.Track, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.active++
	if p.active > p.maxSeen {
		p.maxSeen = p.active
	}
	p.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	p.mu.Lock()
	p.active--
	p.mu.Unlock()
	return domain.Track{}, nil
}

func TestRunRespectsMaxInFlight(t *testing.T) {
	parser := &countingParser{}
	runner := batch.NewRunner(parser, emptyAssembler{}, nil)
	inputs := []string{"a.gpx", "b.gpx", "c.gpx", "d.gpx", "e.gpx", "f.gpx"}

	_, err := runner.Run(context.Background(), batch.Request{
		Inputs:      inputs,
		OutputDir:   t.TempDir(),
		Concurrent:  true,
		MaxInFlight: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parser.calls.Load() != int32(len(inputs)) {
		t.Fatalf("expected %d parses, got %d", len(inputs), parser.calls.Load())
	}
	if parser.maxSeen > 2 {
		t.Fatalf("expected at most 2 jobs in flight, saw %d", parser.maxSeen)
	}
}
