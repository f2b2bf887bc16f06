package repository

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
)

// FileDocumentSource reads a document dump, either a JSON array or one JSON
// document per line.
type FileDocumentSource struct {
	path string
}

func NewFileDocumentSource(path string) *FileDocumentSource {
	return &FileDocumentSource{path: path}
}

func (s *FileDocumentSource) Documents(ctx context.Context) ([]*models.Document, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open documents: %v", models.ErrTransientSource, err)
	}
	defer f.Close()
	return DecodeDocuments(ctx, f)
}

// Stream pushes documents one at a time without loading the whole dump.
// The document channel closes when the file is exhausted or ctx ends; errc
// then yields at most one error.
func (s *FileDocumentSource) Stream(ctx context.Context) (<-chan *models.Document, <-chan error) {
	out := make(chan *models.Document)
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer close(out)
		f, err := os.Open(s.path)
		if err != nil {
			errc <- fmt.Errorf("%w: open documents: %v", models.ErrTransientSource, err)
			return
		}
		defer f.Close()
		err = WalkDocuments(ctx, f, func(d *models.Document) error {
			select {
			case out <- d:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errc <- err
		}
	}()
	return out, errc
}

// Name identifies the source in reports.
func (s *FileDocumentSource) Name() string { return "file:" + s.path }

// DecodeDocuments parses a JSON array or NDJSON stream. Lines that fail to
// parse in NDJSON mode come back as nil entries so the aggregator can count
// them as skipped.
func DecodeDocuments(ctx context.Context, r io.Reader) ([]*models.Document, error) {
	docs := []*models.Document{}
	err := WalkDocuments(ctx, r, func(d *models.Document) error {
		docs = append(docs, d)
		return nil
	})
	if errors.Is(err, models.ErrMalformedInput) {
		return nil, err
	}
	return docs, err
}

// WalkDocuments calls emit for every document of a JSON array or NDJSON
// stream, in order. An emit error stops the walk and is returned as is.
func WalkDocuments(ctx context.Context, r io.Reader, emit func(*models.Document) error) error {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read documents: %w", err)
	}

	if first == '[' {
		dec := json.NewDecoder(br)
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("%w: decode document array: %v", models.ErrMalformedInput, err)
		}
		for dec.More() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var d *models.Document
			if err := dec.Decode(&d); err != nil {
				return fmt.Errorf("%w: decode document array: %v", models.ErrMalformedInput, err)
			}
			if err := emit(d); err != nil {
				return err
			}
		}
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("%w: decode document array: %v", models.ErrMalformedInput, err)
		}
		return nil
	}

	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 256*1024), 16*1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var d *models.Document
		if err := json.Unmarshal(line, &d); err != nil {
			d = nil
		}
		if err := emit(d); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read documents: %w", err)
	}
	return nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

var (
	_ drepo.DocumentSource = (*FileDocumentSource)(nil)
	_ drepo.DocumentStream = (*FileDocumentSource)(nil)
)
