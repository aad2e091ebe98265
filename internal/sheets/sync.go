// Package sheets backs the client list up to a Google Sheets tab as a full
// snapshot: header row plus one row per client.
package sheets

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"visitroute/internal/metrics"
	"visitroute/internal/model"
)

const DefaultTab = "Clients"

type Syncer struct {
	SpreadsheetID string
	Tab           string

	auth    *Authorizer
	service func(ctx context.Context) (*sheetsapi.Service, error)
}

// NewSyncer authorizes through auth on first use.
func NewSyncer(spreadsheetID, tab string, auth *Authorizer) *Syncer {
	s := &Syncer{SpreadsheetID: spreadsheetID, Tab: tabOrDefault(tab), auth: auth}
	s.service = func(ctx context.Context) (*sheetsapi.Service, error) {
		hc, err := auth.Client(ctx)
		if err != nil {
			return nil, err
		}
		return sheetsapi.NewService(ctx, option.WithHTTPClient(hc))
	}
	return s
}

// NewSyncerWithOptions builds the API client from explicit options, e.g. a
// service account or a test endpoint.
func NewSyncerWithOptions(spreadsheetID, tab string, opts ...option.ClientOption) *Syncer {
	return &Syncer{
		SpreadsheetID: spreadsheetID,
		Tab:           tabOrDefault(tab),
		service: func(ctx context.Context) (*sheetsapi.Service, error) {
			return sheetsapi.NewService(ctx, opts...)
		},
	}
}

func tabOrDefault(tab string) string {
	if tab == "" {
		return DefaultTab
	}
	return tab
}

// Pull reads every data row below the header.
func (s *Syncer) Pull(ctx context.Context) ([]model.Client, error) {
	srv, err := s.open(ctx, "pull")
	if err != nil {
		return nil, err
	}
	resp, err := srv.Spreadsheets.Values.Get(s.SpreadsheetID, s.Tab+"!A2:I").Context(ctx).Do()
	if err != nil {
		return nil, s.fail("pull", "get", err)
	}
	metrics.SheetSyncs.WithLabelValues("pull", "ok").Inc()
	return RowsToClients(resp.Values), nil
}

// Push overwrites the tab: header first, then the body is cleared and the
// rows written from A2.
func (s *Syncer) Push(ctx context.Context, clients []model.Client) error {
	srv, err := s.open(ctx, "push")
	if err != nil {
		return err
	}
	vals := srv.Spreadsheets.Values
	header := &sheetsapi.ValueRange{Values: [][]interface{}{HeaderRow()}}
	if _, err := vals.Update(s.SpreadsheetID, s.Tab+"!A1:I1", header).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return s.fail("push", "write header", err)
	}
	if _, err := vals.Clear(s.SpreadsheetID, s.Tab+"!A2:I", &sheetsapi.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return s.fail("push", "clear", err)
	}
	if rows := ClientsToRows(clients); len(rows) > 0 {
		body := &sheetsapi.ValueRange{Values: rows}
		if _, err := vals.Update(s.SpreadsheetID, s.Tab+"!A2", body).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return s.fail("push", "write rows", err)
		}
	}
	metrics.SheetSyncs.WithLabelValues("push", "ok").Inc()
	return nil
}

func (s *Syncer) open(ctx context.Context, direction string) (*sheetsapi.Service, error) {
	srv, err := s.service(ctx)
	if err != nil {
		var ae *RemoteSyncAuthError
		if errors.As(err, &ae) {
			metrics.SheetSyncs.WithLabelValues(direction, "auth_error").Inc()
			return nil, err
		}
		metrics.SheetSyncs.WithLabelValues(direction, "error").Inc()
		return nil, &RemoteSyncTransportError{Op: "connect", Err: err}
	}
	return srv, nil
}

func (s *Syncer) fail(direction, op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
		if s.auth != nil {
			s.auth.Reset()
		}
		metrics.SheetSyncs.WithLabelValues(direction, "auth_error").Inc()
		return &RemoteSyncAuthError{Err: err}
	}
	metrics.SheetSyncs.WithLabelValues(direction, "error").Inc()
	return &RemoteSyncTransportError{Op: op, Err: err}
}
