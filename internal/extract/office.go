package extract

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

func decodeXLSX(_ context.Context, path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", sheet, err)
		}
		b.WriteString("# Sheet: " + sheet + "\n")
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// decodeDOCX returns body paragraphs followed by table rows with
// tab-joined cells.
func decodeDOCX(_ context.Context, path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	rc, err := openZipEntry(&zr.Reader, "word/document.xml")
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var (
		paras    []string
		rows     []string
		para     strings.Builder
		cells    []string
		cell     strings.Builder
		tblDepth int
		runDepth int
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
			case "r":
				runDepth++
			case "tab":
				if runDepth > 0 {
					para.WriteByte('\t')
				}
			case "br", "cr":
				if runDepth > 0 {
					para.WriteByte('\n')
				}
			case "t":
				var s string
				if err := dec.DecodeElement(&s, &t); err != nil {
					return "", fmt.Errorf("parse text run: %w", err)
				}
				para.WriteString(s)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				runDepth--
			case "p":
				text := para.String()
				para.Reset()
				if tblDepth > 0 {
					if cell.Len() > 0 {
						cell.WriteByte('\n')
					}
					cell.WriteString(text)
				} else if text != "" {
					paras = append(paras, text)
				}
			case "tc":
				if tblDepth == 1 {
					cells = append(cells, cell.String())
					cell.Reset()
				}
			case "tr":
				if tblDepth == 1 {
					rows = append(rows, strings.Join(cells, "\t"))
					cells = nil
				}
			case "tbl":
				tblDepth--
			}
		}
	}
	return strings.Join(append(paras, rows...), "\n") + "\n", nil
}

var slidePath = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// decodePPTX returns "# Slide N" headers followed by the text of each shape.
func decodePPTX(_ context.Context, path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer zr.Close()

	type slide struct {
		n int
		f *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		m := slidePath.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{n: n, f: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	lines := make([]string, 0, len(slides)*4)
	for i, s := range slides {
		lines = append(lines, fmt.Sprintf("# Slide %d", i+1))
		shapes, err := slideShapes(s.f)
		if err != nil {
			return "", fmt.Errorf("slide %d: %w", i+1, err)
		}
		lines = append(lines, shapes...)
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func slideShapes(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var (
		out     []string
		paras   []string
		para    strings.Builder
		inShape int
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				inShape++
			case "br":
				para.WriteByte('\n')
			case "t":
				if inShape == 0 {
					continue
				}
				var s string
				if err := dec.DecodeElement(&s, &t); err != nil {
					return nil, err
				}
				para.WriteString(s)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				if inShape > 0 {
					paras = append(paras, para.String())
					para.Reset()
				}
			case "sp":
				inShape--
				if text := strings.Join(paras, "\n"); strings.TrimSpace(text) != "" {
					out = append(out, text)
				}
				paras = nil
			}
		}
	}
	return out, nil
}

func openZipEntry(zr *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}
