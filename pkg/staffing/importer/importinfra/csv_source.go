package importinfra

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/fsx"
	"github.com/Abraxas-365/talentledger/pkg/logx"
	"github.com/Abraxas-365/talentledger/pkg/staffing/importer"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVRowSource reads sheet exports (.csv) from an inbox prefix of the file
// store and archives them once staged
type CSVRowSource struct {
	fs            fsx.FileSystem
	inboxPrefix   string
	archivePrefix string
	now           func() time.Time
}

func NewCSVRowSource(fs fsx.FileSystem, inboxPrefix, archivePrefix string) *CSVRowSource {
	return &CSVRowSource{
		fs:            fs,
		inboxPrefix:   strings.Trim(inboxPrefix, "/"),
		archivePrefix: strings.Trim(archivePrefix, "/"),
		now:           time.Now,
	}
}

// Inbox lists the CSV files waiting to be staged
func (s *CSVRowSource) Inbox(ctx context.Context) ([]string, error) {
	files, err := s.fs.List(ctx, s.inboxPrefix)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range files {
		if strings.EqualFold(path.Ext(f.Path), ".csv") {
			names = append(names, f.Path)
		}
	}
	return names, nil
}

// Archive moves a staged file under the archive prefix, stamped with the date
func (s *CSVRowSource) Archive(ctx context.Context, name string) (string, error) {
	dst := path.Join(s.archivePrefix, s.now().UTC().Format("2006/01/02"), path.Base(name))
	if err := s.fs.Move(ctx, name, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (s *CSVRowSource) Ping(ctx context.Context) error {
	return s.fs.Ping(ctx)
}

// ReadRows parses a CSV export into header→value maps
func (s *CSVRowSource) ReadRows(ctx context.Context, name string) ([]map[string]string, error) {
	data, err := s.fs.ReadFile(ctx, name)
	if err != nil {
		return nil, err
	}
	rows, err := ParseCSV(data)
	if err != nil {
		if e, ok := errx.As(err); ok {
			return nil, e.WithDetail("path", name)
		}
		return nil, err
	}
	return rows, nil
}

// ParseCSV decodes UTF-8 (with or without BOM), UTF-16 with BOM, or Latin-1
// and maps every data row by header. Short rows are padded, long rows truncated,
// fully blank rows dropped.
func ParseCSV(data []byte) ([]map[string]string, error) {
	decoded, err := decode(data)
	if err != nil {
		return nil, importer.ErrInvalidFile().WithCause(err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, importer.ErrInvalidFile().WithDetail("reason", "empty file")
		}
		return nil, importer.ErrInvalidFile().WithCause(err)
	}
	hasName := false
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
		if strings.EqualFold(headers[i], importer.FieldCandidateName) {
			hasName = true
		}
	}
	if !hasName {
		return nil, importer.ErrMissingColumn().WithDetail("headers", headers)
	}

	var rows []map[string]string
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			logx.WithFields(logx.Fields{"line": line}).Warnf("skipping unreadable csv line: %v", err)
			continue
		}

		row := make(map[string]string, len(headers))
		blank := true
		for i, h := range headers {
			if h == "" {
				continue
			}
			v := ""
			if i < len(record) {
				v = record[i]
			}
			if strings.TrimSpace(v) != "" {
				blank = false
			}
			row[h] = v
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func decode(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		return out, err
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(data) {
		return data, nil
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
	return out, err
}
