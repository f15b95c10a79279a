package importinfra

import (
	"context"
	"testing"

	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/talentledger/pkg/staffing/importer"
)

func TestParseCSVMapsRowsByHeader(t *testing.T) {
	data := "\xEF\xBB\xBFCandidate name,Status,Source,Notes\n" +
		"\" John Doe\",5 - Client Rejected,LinkedIn\n" +
		",,,\n" +
		"Jane Roe,Screening,Referral,extra,overflow\n"

	rows, err := ParseCSV([]byte(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(rows), rows)
	}
	if rows[0]["Candidate name"] != " John Doe" || rows[0]["Status"] != "5 - Client Rejected" {
		t.Fatalf("unexpected first row %v", rows[0])
	}
	if rows[0]["Notes"] != "" {
		t.Fatalf("short row should be padded, got %q", rows[0]["Notes"])
	}
	if rows[1]["Source"] != "Referral" || len(rows[1]) != 4 {
		t.Fatalf("long row should be truncated, got %v", rows[1])
	}
}

func TestParseCSVLatin1(t *testing.T) {
	data := []byte("Candidate name,Location\nJos\xe9 Pe\xf1a,Bengaluru\n")
	rows, err := ParseCSV(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rows[0]["Candidate name"] != "José Peña" {
		t.Fatalf("latin-1 not decoded: %q", rows[0]["Candidate name"])
	}
}

func TestParseCSVRequiresNameColumn(t *testing.T) {
	if _, err := ParseCSV([]byte("Role,Status\nDev,Screening\n")); !errx.IsCode(err, importer.CodeMissingColumn) {
		t.Fatalf("expected missing column, got %v", err)
	}
	if _, err := ParseCSV(nil); !errx.IsCode(err, importer.CodeInvalidFile) {
		t.Fatalf("expected invalid file, got %v", err)
	}
}

func TestCSVRowSourceInboxAndArchive(t *testing.T) {
	ctx := context.Background()
	fs, err := fsxlocal.NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	_ = fs.WriteFile(ctx, "imports/inbox/sheet.csv", []byte("Candidate name\nA\n"))
	_ = fs.WriteFile(ctx, "imports/inbox/readme.txt", []byte("ignore"))

	src := NewCSVRowSource(fs, "imports/inbox", "imports/archive")
	names, err := src.Inbox(ctx)
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if len(names) != 1 || names[0] != "imports/inbox/sheet.csv" {
		t.Fatalf("unexpected inbox %v", names)
	}

	rows, err := src.ReadRows(ctx, names[0])
	if err != nil || len(rows) != 1 {
		t.Fatalf("read rows: %v %v", rows, err)
	}

	dst, err := src.Archive(ctx, names[0])
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := fs.ReadFile(ctx, dst); err != nil {
		t.Fatalf("archived file missing at %s: %v", dst, err)
	}
	if names, _ := src.Inbox(ctx); len(names) != 0 {
		t.Fatalf("inbox not emptied: %v", names)
	}
}
