package harvest

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"

	"bench-harvester/src/bench"
)

// WriteJSON writes reports as an indented JSON array.
func WriteJSON(w io.Writer, reports []*bench.JobReport) error {
	if reports == nil {
		reports = []*bench.JobReport{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("failed to encode reports: %w", err)
	}
	return nil
}

// ExportFile writes reports to path on fs, replacing any existing file.
func ExportFile(fs afero.Fs, path string, reports []*bench.JobReport) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteJSON(f, reports); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
