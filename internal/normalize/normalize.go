// Package normalize rewrites historical chat CSV files offline: cells
// containing embedded-media markup are collapsed to the literal "image" and
// a fixed set of columns is dropped. The output replaces the destination
// atomically, so the tool is safe to run in place.
package normalize

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
)

// imagePlaceholder replaces every matched media fragment. It matches none of
// the patterns below, which makes normalization idempotent.
const imagePlaceholder = "image"

// utf8BOM is tolerated on input and emitted on output so spreadsheet tools
// keep detecting the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// imagePatterns are applied per cell in this order; later patterns do not
// re-scan text already replaced by earlier ones. Matching is
// case-insensitive and spans newlines.
var imagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)Image\([^)]*\)`),
	regexp.MustCompile(`(?is)\[CQ:image[^\]]*\]`),
	regexp.MustCompile(`(?is)\{[^{}]*['"]type['"]\s*:\s*['"]image['"][^{}]*\}`),
	regexp.MustCompile(`(?i)https?://[^\s"']+(?:\.jpg|\.jpeg|\.png|\.gif|\.webp)(?:\?[^\s"')]*)?`),
}

// DroppedColumns are removed from every row, matched by exact header name.
// What survives is the minimal set useful for reading a conversation back:
// message id, group, sender, and text.
var DroppedColumns = []string{
	"timestamp_iso",
	"timestamp_unix",
	"platform",
	"message_type",
	"self_id",
	"session_id",
	"sender_repr",
	"message_components",
	"raw_message",
}

// Normalize reads the CSV at inputPath, scrubs embedded-media markup, drops
// the configured columns, and atomically replaces outputPath with the
// result. An empty outputPath overwrites the input. Any read or write error
// is returned and leaves the destination untouched.
func Normalize(inputPath, outputPath string) error {
	if outputPath == "" {
		outputPath = inputPath
	}

	rows, err := readRows(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", inputPath, err)
	}

	for _, row := range rows {
		for i, cell := range row {
			row[i] = NormalizeCell(cell)
		}
	}
	rows = dropColumns(rows, DroppedColumns)

	if err := writeRowsAtomic(outputPath, rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return nil
}

// NormalizeCell replaces every embedded-media fragment in one cell with the
// placeholder.
func NormalizeCell(cell string) string {
	if cell == "" {
		return cell
	}
	for _, pattern := range imagePatterns {
		cell = pattern.ReplaceAllString(cell, imagePlaceholder)
	}
	return cell
}

// dropColumns removes the named columns from every row, preserving the
// relative order of the rest. The first row is the header; indices past the
// end of a short row are skipped rather than failing.
func dropColumns(rows [][]string, names []string) [][]string {
	if len(rows) == 0 {
		return rows
	}

	header := rows[0]
	kept := make([]int, 0, len(header))
	for idx, name := range header {
		if !slices.Contains(names, name) {
			kept = append(kept, idx)
		}
	}
	if len(kept) == len(header) {
		return rows
	}

	pruned := make([][]string, 0, len(rows))
	for _, row := range rows {
		out := make([]string, 0, len(kept))
		for _, idx := range kept {
			if idx < len(row) {
				out = append(out, row[idx])
			}
		}
		pruned = append(pruned, out)
	}
	return pruned
}

func readRows(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // tolerate malformed arity
	return reader.ReadAll()
}

// writeRowsAtomic renders the rows into a temporary file in the destination
// directory and renames it over path, so a reader never sees a half-written
// file and in-place runs never alias read with write.
func writeRowsAtomic(path string, rows [][]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(utf8BOM); err != nil {
		return cleanup(err)
	}
	writer := csv.NewWriter(tmp)
	if err := writer.WriteAll(rows); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
