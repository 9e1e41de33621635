package export

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// WriteJSONNewline writes one JSON document per line, the newline-delimited
// JSON convention sandbox_exporter's write_json_newline produces.
func WriteJSONNewline(records []map[string]interface{}, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return nil
}

// WriteCSV flattens every record and writes them as a CSV table whose
// header is the union of every record's keys, matching
// sandbox_exporter's write_csv.
func WriteCSV(records []map[string]interface{}, path string) error {
	flat := make([]map[string]interface{}, len(records))
	for i, rec := range records {
		flat[i] = Flatten(rec)
	}
	header := UnionHeader(flat)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(header))
	for _, rec := range flat {
		for i, col := range header {
			row[i] = StringValue(rec[col])
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	return w.Error()
}

// ZipFiles bundles filenames into a single zip at outPath, removing the
// source files once written, matching sandbox_exporter's zip_files.
func ZipFiles(outPath string, filenames []string) error {
	if len(filenames) == 0 {
		return nil
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, fp := range filenames {
		if err := addFileToZip(zw, fp); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip %s: %w", outPath, err)
	}

	for _, fp := range filenames {
		os.Remove(fp)
	}
	return nil
}

func addFileToZip(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   path,
		Method: zip.Deflate,
	})
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", path, err)
	}

	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("write zip entry %s: %w", path, err)
	}
	return nil
}
