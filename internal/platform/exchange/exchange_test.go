package exchange

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/clinictrack/clinictrack/internal/domain/client"
)

type mockEnroller struct {
	enrolled []*client.Client
	failOn   string // enrollment number that triggers an error
}

func (m *mockEnroller) Enroll(_ context.Context, c *client.Client) error {
	if c.EnrollmentNumber == m.failOn {
		return fmt.Errorf("duplicate enrollment")
	}
	m.enrolled = append(m.enrolled, c)
	return nil
}

type mockLister struct {
	clients []*client.Client
}

func (m *mockLister) List(_ context.Context, filter client.ListFilter, limit, offset int) ([]*client.Client, int, error) {
	if offset >= len(m.clients) {
		return nil, len(m.clients), nil
	}
	end := offset + limit
	if end > len(m.clients) {
		end = len(m.clients)
	}
	return m.clients[offset:end], len(m.clients), nil
}

type passTx struct{}

func (passTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

const validCSV = `enrollment_number,full_name,phone,sex,birth_date,last_pickup_date,last_viral_load_date
EN-001,Alice Example,0700000001,F,1990-05-04,2024-01-01,2023-12-01
EN-002,Bob Example,,M,,2024-02-15,
`

func TestImportCSV(t *testing.T) {
	enroller := &mockEnroller{}
	svc := NewService(enroller, nil, passTx{})
	facilityID := uuid.New()

	report, err := svc.ImportCSV(context.Background(), facilityID, strings.NewReader(validCSV))
	if err != nil {
		t.Fatal(err)
	}
	if report.Imported != 2 || len(report.Errors) != 0 {
		t.Fatalf("report = %+v", report)
	}
	if len(enroller.enrolled) != 2 {
		t.Fatalf("enrolled %d clients", len(enroller.enrolled))
	}
	first := enroller.enrolled[0]
	if first.EnrollmentNumber != "EN-001" || first.FacilityID != facilityID {
		t.Errorf("first = %+v", first)
	}
	if first.LastPickupDate == nil || !first.LastPickupDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("last pickup = %v", first.LastPickupDate)
	}
	second := enroller.enrolled[1]
	if second.Phone != nil || second.LastViralLoadDate != nil {
		t.Errorf("empty fields should stay nil: %+v", second)
	}
}

func TestImportCSV_BadHeader(t *testing.T) {
	svc := NewService(&mockEnroller{}, nil, passTx{})
	csvData := "enrollment,name\nEN-001,Alice\n"
	if _, err := svc.ImportCSV(context.Background(), uuid.New(), strings.NewReader(csvData)); err == nil {
		t.Error("expected header validation error")
	}
}

func TestImportCSV_MalformedRowRejectsBatch(t *testing.T) {
	enroller := &mockEnroller{}
	svc := NewService(enroller, nil, passTx{})

	csvData := `enrollment_number,full_name,phone,sex,birth_date,last_pickup_date,last_viral_load_date
EN-001,Alice Example,,,,,
EN-002,Bob Example,,,not-a-date,,
`
	report, err := svc.ImportCSV(context.Background(), uuid.New(), strings.NewReader(csvData))
	if err != nil {
		t.Fatal(err)
	}
	if report.Imported != 0 {
		t.Errorf("imported = %d, want 0 when any row is bad", report.Imported)
	}
	if len(report.Errors) != 1 || report.Errors[0].Line != 3 {
		t.Errorf("errors = %+v", report.Errors)
	}
	if len(enroller.enrolled) != 0 {
		t.Error("no rows may be enrolled when the batch has errors")
	}
}

func TestImportCSV_EnrollFailureAborts(t *testing.T) {
	enroller := &mockEnroller{failOn: "EN-002"}
	svc := NewService(enroller, nil, passTx{})

	_, err := svc.ImportCSV(context.Background(), uuid.New(), strings.NewReader(validCSV))
	if err == nil {
		t.Fatal("expected error from failing enrollment")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("error should name the line: %v", err)
	}
}

func exportFixture() *mockLister {
	phone := "0700000001"
	pickup := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	next := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	return &mockLister{clients: []*client.Client{
		{
			EnrollmentNumber: "EN-001",
			FullName:         "Alice Example",
			Phone:            &phone,
			Status:           "active",
			LastPickupDate:   &pickup,
			NextPickupDate:   &next,
		},
		{EnrollmentNumber: "EN-002", FullName: "Bob Example", Status: "defaulter"},
	}}
}

func TestExportCSV(t *testing.T) {
	svc := NewService(nil, exportFixture(), passTx{})

	var buf bytes.Buffer
	if err := svc.ExportCSV(context.Background(), uuid.Nil, &buf); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0][0] != "enrollment_number" || rows[0][7] != "status" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "EN-001" || rows[1][8] != "2024-01-31" {
		t.Errorf("first row = %v", rows[1])
	}
	if rows[2][7] != "defaulter" || rows[2][8] != "" {
		t.Errorf("second row = %v", rows[2])
	}
}

func TestExportExcel(t *testing.T) {
	svc := NewService(nil, exportFixture(), passTx{})

	var buf bytes.Buffer
	if err := svc.ExportExcel(context.Background(), uuid.Nil, &buf); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Clients", "A2")
	if err != nil {
		t.Fatal(err)
	}
	if got != "EN-001" {
		t.Errorf("A2 = %q, want EN-001", got)
	}
	header, err := f.GetCellValue("Clients", "H1")
	if err != nil {
		t.Fatal(err)
	}
	if header != "status" {
		t.Errorf("H1 = %q, want status", header)
	}
}
