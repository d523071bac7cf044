package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	gpxExtension     = ".gpx"
	defaultOutputDir = "coordextract_output"
)

type planMode int

const (
	modeStdout planMode = iota
	modeFile
	modeBatch
)

type inputPlan struct {
	mode       planMode
	inputs     []string
	outputFile string
	outputDir  string
}

// resolveInputs maps positional inputs and --output onto a pipeline mode.
// A lone directory expands to its *.gpx files and defaults to
// <dir>/coordextract_output; a lone file prints to stdout unless output is
// given; several files default to the working directory.
func resolveInputs(args []string, output string) (inputPlan, error) {
	if len(args) == 0 {
		return inputPlan{}, usageError("Missing argument 'INPUT...'. Provide GPX file(s) or a directory.")
	}

	infos := make([]os.FileInfo, len(args))
	for i, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return inputPlan{}, usageError("Invalid value for 'INPUT...': path %q does not exist.", arg)
		}
		infos[i] = info
	}

	if len(args) == 1 && infos[0].IsDir() {
		files, err := listTrackFiles(args[0])
		if err != nil {
			return inputPlan{}, err
		}
		dir := output
		if dir == "" {
			dir = filepath.Join(args[0], defaultOutputDir)
		}
		return inputPlan{mode: modeBatch, inputs: files, outputDir: dir}, nil
	}

	for i, info := range infos {
		if info.IsDir() {
			return inputPlan{}, usageError("Invalid value for 'INPUT...': directory %q must be the only input.", args[i])
		}
	}

	if len(args) == 1 {
		if output == "" {
			return inputPlan{mode: modeStdout, inputs: args}, nil
		}
		return inputPlan{mode: modeFile, inputs: args, outputFile: output}, nil
	}

	dir := output
	if dir == "" {
		dir = "."
	}
	return inputPlan{mode: modeBatch, inputs: args, outputDir: dir}, nil
}

func listTrackFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), gpxExtension) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	return files, nil
}
