// Package ingest turns input documents into ordered page image sequences.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Page is one rasterized page image on disk.
type Page struct {
	Number int    // 1-indexed position in the document
	Path   string // PNG/JPEG file path
}

// FromPDF rasterizes every page of a PDF into outDir and returns the ordered
// page list. Rendering runs on a bounded local worker set; any page failure
// aborts the rasterization since downstream page numbering depends on a
// complete sequence.
func FromPDF(ctx context.Context, pdfPath, outDir string, logger *slog.Logger) ([]Page, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	pageCount, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF has no pages: %s", pdfPath)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	logger.Info("rasterizing PDF", "path", filepath.Base(pdfPath), "pages", pageCount)

	maxWorkers := runtime.NumCPU()

	type result struct {
		pageNum int
		err     error
	}

	results := make(chan result, pageCount)
	sem := make(chan struct{}, maxWorkers)

	for page := 1; page <= pageCount; page++ {
		sem <- struct{}{} // acquire
		go func(pageNum int) {
			defer func() { <-sem }() // release

			if err := ctx.Err(); err != nil {
				results <- result{pageNum: pageNum, err: err}
				return
			}
			err := renderPage(ctx, pdfPath, outDir, pageNum)
			results <- result{pageNum: pageNum, err: err}
		}(page)
	}

	for i := 0; i < pageCount; i++ {
		r := <-results
		if r.err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", r.pageNum, r.err)
		}
	}

	pages := make([]Page, pageCount)
	for i := range pages {
		pages[i] = Page{
			Number: i + 1,
			Path:   filepath.Join(outDir, fmt.Sprintf("page_%04d.png", i+1)),
		}
	}
	return pages, nil
}

// renderPage renders one PDF page to a PNG via pdftoppm at 300 DPI.
func renderPage(ctx context.Context, pdfPath, outDir string, pageNum int) error {
	tmpDir, err := os.MkdirTemp("", "galley-page-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")

	pageStr := strconv.Itoa(pageNum)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", "300",
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	srcPath := outputPrefix + ".png"
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("failed to read rendered image: %w", err)
	}

	dstPath := filepath.Join(outDir, fmt.Sprintf("page_%04d.png", pageNum))
	if err := os.WriteFile(dstPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write page image: %w", err)
	}

	return nil
}

// imageExtensions are the page image formats FromDir accepts.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// FromDir builds the page sequence from a directory of page images,
// ordered by the numeric suffix in each file name (page_0001.png, scan-12.jpg).
// Files without a numeric component sort after numbered ones, by name.
func FromDir(dir string) ([]Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no page images found in %s", dir)
	}

	sortByNumericSuffix(paths)

	pages := make([]Page, len(paths))
	for i, p := range paths {
		pages[i] = Page{Number: i + 1, Path: p}
	}
	return pages, nil
}

var trailingNumber = regexp.MustCompile(`(\d+)\D*$`)

// sortByNumericSuffix orders paths by the last number embedded in the file
// name so page_2 sorts before page_10.
func sortByNumericSuffix(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		ni, iok := extractNumber(paths[i])
		nj, jok := extractNumber(paths[j])
		switch {
		case iok && jok:
			if ni != nj {
				return ni < nj
			}
			return paths[i] < paths[j]
		case iok:
			return true
		case jok:
			return false
		default:
			return paths[i] < paths[j]
		}
	})
}

func extractNumber(path string) (int, bool) {
	base := filepath.Base(path)
	match := trailingNumber.FindStringSubmatch(strings.TrimSuffix(base, filepath.Ext(base)))
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
