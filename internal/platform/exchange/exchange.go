// Package exchange moves client rosters in and out of the system as
// CSV and Excel files.
package exchange

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/clinictrack/clinictrack/internal/adherence"
	"github.com/clinictrack/clinictrack/internal/domain/client"
)

const dateLayout = "2006-01-02"

// rosterHeader is the required CSV column order for imports and the
// column order produced by exports.
var rosterHeader = []string{
	"enrollment_number", "full_name", "phone", "sex", "birth_date",
	"last_pickup_date", "last_viral_load_date",
}

// Enroller registers imported clients. Satisfied by client.Service.
type Enroller interface {
	Enroll(ctx context.Context, c *client.Client) error
}

// Lister reads clients for export. Satisfied by client.Service.
type Lister interface {
	List(ctx context.Context, filter client.ListFilter, limit, offset int) ([]*client.Client, int, error)
}

type Service struct {
	enroller Enroller
	lister   Lister
	tx       adherence.TxRunner
}

func NewService(enroller Enroller, lister Lister, tx adherence.TxRunner) *Service {
	return &Service{enroller: enroller, lister: lister, tx: tx}
}

// RowError describes why one CSV line was rejected.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportReport summarizes an import attempt. Imported is zero whenever
// Errors is non-empty: a batch with any bad row is not committed.
type ImportReport struct {
	Imported int        `json:"imported"`
	Errors   []RowError `json:"errors,omitempty"`
}

// ImportCSV reads a client roster and enrolls every row at the given
// facility inside one transaction. Any malformed row rejects the whole
// batch; the report carries one entry per bad line.
func (s *Service) ImportCSV(ctx context.Context, facilityID uuid.UUID, r io.Reader) (*ImportReport, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	var (
		clients []*client.Client
		report  ImportReport
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Errors = append(report.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		c, err := parseRow(record, facilityID)
		if err != nil {
			report.Errors = append(report.Errors, RowError{Line: line, Message: err.Error()})
			continue
		}
		clients = append(clients, c)
	}
	if len(report.Errors) > 0 {
		return &report, nil
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		for i, c := range clients {
			if err := s.enroller.Enroll(ctx, c); err != nil {
				return fmt.Errorf("line %d: %w", i+2, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.Imported = len(clients)
	return &report, nil
}

func validateHeader(header []string) error {
	if len(header) != len(rosterHeader) {
		return fmt.Errorf("expected %d columns, got %d", len(rosterHeader), len(header))
	}
	for i, want := range rosterHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return fmt.Errorf("column %d must be %q, got %q", i+1, want, header[i])
		}
	}
	return nil
}

func parseRow(record []string, facilityID uuid.UUID) (*client.Client, error) {
	if len(record) != len(rosterHeader) {
		return nil, fmt.Errorf("expected %d fields, got %d", len(rosterHeader), len(record))
	}
	c := &client.Client{
		EnrollmentNumber: strings.TrimSpace(record[0]),
		FacilityID:       facilityID,
		FullName:         strings.TrimSpace(record[1]),
	}
	if c.EnrollmentNumber == "" {
		return nil, fmt.Errorf("enrollment_number is required")
	}
	if c.FullName == "" {
		return nil, fmt.Errorf("full_name is required")
	}
	if v := strings.TrimSpace(record[2]); v != "" {
		c.Phone = &v
	}
	if v := strings.TrimSpace(record[3]); v != "" {
		c.Sex = &v
	}
	var err error
	if c.BirthDate, err = parseDate(record[4]); err != nil {
		return nil, fmt.Errorf("birth_date: %w", err)
	}
	if c.LastPickupDate, err = parseDate(record[5]); err != nil {
		return nil, fmt.Errorf("last_pickup_date: %w", err)
	}
	if c.LastViralLoadDate, err = parseDate(record[6]); err != nil {
		return nil, fmt.Errorf("last_viral_load_date: %w", err)
	}
	return c, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return &t, nil
}

// exportColumns extends the roster columns with derived schedule and
// status fields.
var exportColumns = append(append([]string{}, rosterHeader...),
	"status", "next_pickup_date", "next_viral_load_date")

func exportRow(c *client.Client) []string {
	return []string{
		c.EnrollmentNumber,
		c.FullName,
		strDeref(c.Phone),
		strDeref(c.Sex),
		dateStr(c.BirthDate),
		dateStr(c.LastPickupDate),
		dateStr(c.LastViralLoadDate),
		c.Status,
		dateStr(c.NextPickupDate),
		dateStr(c.NextViralLoadDate),
	}
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateStr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

const exportPageSize = 500

func (s *Service) listAll(ctx context.Context, facilityID uuid.UUID) ([]*client.Client, error) {
	var all []*client.Client
	filter := client.ListFilter{FacilityID: facilityID}
	for offset := 0; ; offset += exportPageSize {
		page, total, err := s.lister.List(ctx, filter, exportPageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(all) >= total || len(page) == 0 {
			break
		}
	}
	return all, nil
}

// ExportCSV writes the facility's roster to w.
func (s *Service) ExportCSV(ctx context.Context, facilityID uuid.UUID, w io.Writer) error {
	clients, err := s.listAll(ctx, facilityID)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		return err
	}
	for _, c := range clients {
		if err := cw.Write(exportRow(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportExcel writes the facility's roster as an .xlsx workbook to w.
func (s *Service) ExportExcel(ctx context.Context, facilityID uuid.UUID, w io.Writer) error {
	clients, err := s.listAll(ctx, facilityID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Clients"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for col, name := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}
	for i, c := range clients {
		for col, value := range exportRow(c) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}
