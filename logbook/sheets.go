package logbook

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Appender is the external logging collaborator. Implementations must
// tolerate being called while the capture cycle keeps running; a
// failed append is reported to the operator and retried only by the
// next scheduled or manual trigger.
type Appender interface {
	Append(ctx context.Context, r Record) error
}

// LogOnlyAppender satisfies Appender without an external store, for
// running the monitor before a spreadsheet is configured. Records
// still reach the local mirror and the image sink.
type LogOnlyAppender struct{}

// Append implements Appender.
func (LogOnlyAppender) Append(_ context.Context, r Record) error {
	log.Printf("logbook: record %v", r.Row())
	return nil
}

// SheetsConfig locates the spreadsheet and the service-account
// credentials used to write to it.
type SheetsConfig struct {
	CredentialsFile string
	SpreadsheetID   string
	Worksheet       string
}

// DefaultSheetsConfig mirrors the monitor's usual deployment: a
// credentials.json next to the binary and the first worksheet.
func DefaultSheetsConfig() SheetsConfig {
	return SheetsConfig{
		CredentialsFile: "credentials.json",
		Worksheet:       "Sheet1",
	}
}

// SheetsClient appends records to a Google Sheet. Constructed once
// and passed by handle to whatever triggers logging; there is no
// package-level shared instance.
type SheetsClient struct {
	cfg SheetsConfig
	svc *sheets.Service
}

// NewSheetsClient authenticates with the service-account credentials
// file and ensures the header row exists.
func NewSheetsClient(ctx context.Context, cfg SheetsConfig) (*SheetsClient, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet ID is required")
	}
	if cfg.Worksheet == "" {
		cfg.Worksheet = "Sheet1"
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, errors.Wrap(err, "sheets: authenticating service account")
	}
	c := &SheetsClient{cfg: cfg, svc: svc}
	if err := c.ensureHeader(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// ensureHeader writes the header row when A1 is empty, so a freshly
// shared sheet comes up labeled.
func (c *SheetsClient) ensureHeader(ctx context.Context) error {
	resp, err := c.svc.Spreadsheets.Values.
		Get(c.cfg.SpreadsheetID, c.cfg.Worksheet+"!A1").
		Context(ctx).Do()
	if err != nil {
		return errors.Wrap(err, "sheets: reading header cell")
	}
	if len(resp.Values) > 0 {
		return nil
	}
	return c.appendRow(ctx, Header)
}

// Append implements Appender.
func (c *SheetsClient) Append(ctx context.Context, r Record) error {
	if err := c.appendRow(ctx, r.Row()); err != nil {
		return errors.Wrap(err, "sheets: appending record")
	}
	return nil
}

func (c *SheetsClient) appendRow(ctx context.Context, row []interface{}) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row}}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.cfg.SpreadsheetID, c.cfg.Worksheet+"!A1", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return err
}
