package reviews

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"resenas/pkg/models"
)

// CSVHeader is the column order written by EncodeCSV. DecodeCSV matches
// columns by name, so extra or reordered columns are fine.
var CSVHeader = []string{"id", "autores", "titulo", "serie", "valoracion", "comentarios"}

// AuthorSep joins the authors of one review inside a single CSV cell.
const AuthorSep = ";"

func EncodeCSV(w io.Writer, items []models.Review) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range items {
		if err := cw.Write([]string{
			strconv.FormatInt(r.ID, 10),
			strings.Join(r.Authors, AuthorSep),
			r.Title,
			r.Series,
			strconv.Itoa(r.Rating),
			r.Comments,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DecodeCSV reads reviews written by EncodeCSV or by hand. Blank rows and
// rows without a title are skipped; a missing id decodes as 0.
func DecodeCSV(r io.Reader) ([]models.Review, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}
	if _, ok := header["titulo"]; !ok {
		return nil, errors.New("csv: missing titulo column")
	}

	out := []models.Review{}
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 {
			continue
		}

		rv := models.Review{
			Title:    valueAt(header, row, "titulo"),
			Series:   valueAt(header, row, "serie"),
			Comments: valueAt(header, row, "comentarios"),
		}
		if rv.Title == "" {
			continue
		}
		if rv.Series == "" {
			rv.Series = models.DefaultSeries
		}
		for _, a := range strings.Split(valueAt(header, row, "autores"), AuthorSep) {
			if a = strings.TrimSpace(a); a != "" {
				rv.Authors = append(rv.Authors, a)
			}
		}
		if raw := valueAt(header, row, "id"); raw != "" {
			if rv.ID, err = strconv.ParseInt(raw, 10, 64); err != nil {
				return nil, fmt.Errorf("csv line %d: parse id: %w", line, err)
			}
		}
		if raw := valueAt(header, row, "valoracion"); raw != "" {
			if rv.Rating, err = strconv.Atoi(raw); err != nil {
				return nil, fmt.Errorf("csv line %d: parse valoracion: %w", line, err)
			}
		}
		out = append(out, rv)
	}
	return out, nil
}

// AsCreateInput turns a decoded review into a create request, dropping its id.
func AsCreateInput(r models.Review) CreateInput {
	in := CreateInput{
		Authors:  r.Authors,
		Title:    r.Title,
		Series:   &r.Series,
		Comments: &r.Comments,
	}
	if r.Rating != 0 {
		v := Rating(r.Rating)
		in.Rating = &v
	}
	return in
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
