package output

import (
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/banton/medical-patients-sub001/engine/models"
)

// PatientSink receives patients one at a time so cohorts of any size stream
// with bounded memory.
type PatientSink interface {
	Write(p *models.Patient) error
	Close() error
}

// Format names a supported output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: unsupported output format %q", models.ErrInvalidConfiguration, s)
	}
}

// jsonSink streams a top-level JSON array, one element at a time.
type jsonSink struct {
	w     io.Writer
	c     io.Closer
	count int
}

// NewJSONSink wraps a writer as a streaming JSON array sink.
func NewJSONSink(w io.WriteCloser) PatientSink {
	return &jsonSink{w: w, c: w}
}

func (s *jsonSink) Write(p *models.Patient) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode patient %s: %w", p.ID, err)
	}
	prefix := ",\n"
	if s.count == 0 {
		prefix = "[\n"
	}
	if _, err := io.WriteString(s.w, prefix); err != nil {
		return err
	}
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	s.count++
	return nil
}

// WriteRaw appends an already-encoded JSON element to the array.
func (s *jsonSink) WriteRaw(data []byte) error {
	prefix := ",\n"
	if s.count == 0 {
		prefix = "[\n"
	}
	if _, err := io.WriteString(s.w, prefix); err != nil {
		return err
	}
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	s.count++
	return nil
}

func (s *jsonSink) Close() error {
	var err error
	if s.count == 0 {
		_, err = io.WriteString(s.w, "[]\n")
	} else {
		_, err = io.WriteString(s.w, "\n]\n")
	}
	if cerr := s.c.Close(); err == nil {
		err = cerr
	}
	return err
}

// RawJSONSink is implemented by sinks that accept pre-encoded elements, so
// encoding can run on a worker pool while writes stay ordered.
type RawJSONSink interface {
	WriteRaw(data []byte) error
}

// EncodePatients marshals patients concurrently, preserving order. workers <=
// 1 encodes inline.
func EncodePatients(patients []*models.Patient, workers int) ([][]byte, error) {
	encoded := make([][]byte, len(patients))
	errs := make([]error, len(patients))
	if workers <= 1 {
		for i, p := range patients {
			encoded[i], errs[i] = json.Marshal(p)
		}
	} else {
		var wg sync.WaitGroup
		chunk := (len(patients) + workers - 1) / workers
		for w := 0; w < workers; w++ {
			lo, hi := w*chunk, (w+1)*chunk
			if hi > len(patients) {
				hi = len(patients)
			}
			if lo >= hi {
				break
			}
			wg.Add(1)
			go func(lo, hi int) {
				defer wg.Done()
				for i := lo; i < hi; i++ {
					encoded[i], errs[i] = json.Marshal(patients[i])
				}
			}(lo, hi)
		}
		wg.Wait()
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("encode patient %s: %w", patients[i].ID, err)
		}
	}
	return encoded, nil
}

// csvHeader is the flattened patient row layout.
var csvHeader = []string{
	"id", "injury_type", "severity", "severity_score", "body_part", "true_condition",
	"initial_health", "current_health", "triage_category", "state", "current_location",
	"treatment_count", "diagnosis_count", "diagnostic_confidence", "timeline_events",
}

type csvSink struct {
	cw     *csv.Writer
	c      io.Closer
	header bool
}

// NewCSVSink wraps a writer as a flattened CSV sink (header row first).
func NewCSVSink(w io.WriteCloser) PatientSink {
	return &csvSink{cw: csv.NewWriter(w), c: w}
}

func (s *csvSink) Write(p *models.Patient) error {
	if !s.header {
		if err := s.cw.Write(csvHeader); err != nil {
			return err
		}
		s.header = true
	}
	row := []string{
		p.ID,
		string(p.InjuryType),
		string(p.Severity),
		strconv.Itoa(p.SeverityScore),
		p.BodyPart,
		p.TrueCondition,
		strconv.FormatFloat(p.InitialHealth, 'f', 1, 64),
		strconv.FormatFloat(p.CurrentHealth, 'f', 1, 64),
		string(p.Triage),
		string(p.State),
		p.CurrentLocation,
		strconv.Itoa(len(p.Treatments)),
		strconv.Itoa(len(p.Diagnoses)),
		strconv.FormatFloat(p.DiagnosticConfidence, 'f', 3, 64),
		strconv.Itoa(len(p.Timeline)),
	}
	return s.cw.Write(row)
}

func (s *csvSink) Close() error {
	s.cw.Flush()
	err := s.cw.Error()
	if cerr := s.c.Close(); err == nil {
		err = cerr
	}
	return err
}

// gzipWriteCloser closes both the gzip stream and the underlying file.
type gzipWriteCloser struct {
	gz *gzip.Writer
	c  io.Closer
}

func (g *gzipWriteCloser) Write(p []byte) (int, error) { return g.gz.Write(p) }

func (g *gzipWriteCloser) Close() error {
	err := g.gz.Close()
	if cerr := g.c.Close(); err == nil {
		err = cerr
	}
	return err
}

// NewFileSink opens a sink writing the given format to path, optionally
// gzip-compressed (".gz" is appended). Returns the sink and the final path.
func NewFileSink(dir, baseName string, format Format, compress bool) (PatientSink, string, error) {
	name := baseName + "." + string(format)
	if compress {
		name += ".gz"
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("%w: create output directory: %v", models.ErrStorage, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: create output file: %v", models.ErrStorage, err)
	}
	var w io.WriteCloser = file
	if compress {
		w = &gzipWriteCloser{gz: gzip.NewWriter(file), c: file}
	}
	switch format {
	case FormatCSV:
		return NewCSVSink(w), path, nil
	default:
		return NewJSONSink(w), path, nil
	}
}
