package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"Ubermelon/internal/money"
)

const (
	fieldSep   = "|"
	fieldCount = 6
)

func LoadFile(path string, log *zap.Logger) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return Parse(f, path, log)
}

// Parse reads one product per line:
//
//	id|common_name|species_name|price|image_path|is_rare
//
// Blank lines are skipped. A repeated id replaces the earlier record in place.
func Parse(r io.Reader, source string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{byID: make(map[string]Product)}
	firstSeen := make(map[string]int)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		p, err := parseProduct(line)
		if err != nil {
			err.Source, err.Line = source, lineNo
			return nil, err
		}

		if first, dup := firstSeen[p.ID]; dup {
			log.Warn("catalog record replaced",
				zap.Error(&DuplicateIDError{ID: p.ID, FirstLine: first, Line: lineNo}),
				zap.String("source", source),
			)
		} else {
			firstSeen[p.ID] = lineNo
			s.order = append(s.order, p.ID)
		}
		s.byID[p.ID] = p
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", source, err)
	}

	log.Info("catalog loaded", zap.String("source", source), zap.Int("products", s.Len()))
	return s, nil
}

func parseProduct(line string) (Product, *MalformedRecordError) {
	fields := strings.Split(line, fieldSep)
	if len(fields) != fieldCount {
		return Product{}, &MalformedRecordError{
			Reason: fmt.Sprintf("got %d fields, want %d", len(fields), fieldCount),
		}
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	if fields[0] == "" {
		return Product{}, &MalformedRecordError{Reason: "empty id"}
	}

	price, err := money.Parse(fields[3])
	if err != nil {
		return Product{}, &MalformedRecordError{Reason: "bad price", Err: err}
	}

	rare, err := strconv.ParseBool(fields[5])
	if err != nil {
		return Product{}, &MalformedRecordError{Reason: "bad is_rare flag", Err: err}
	}

	return Product{
		ID:          fields[0],
		CommonName:  fields[1],
		SpeciesName: fields[2],
		Price:       price,
		ImageURL:    fields[4],
		IsRare:      rare,
	}, nil
}
