package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/localnerve/sheetsdb/internal/config"
)

// GoogleStore reads and writes Google Sheets through the v4 API
type GoogleStore struct {
	creds Credentials

	mu       sync.Mutex
	services map[string]*sheets.Service
}

// NewGoogleStore creates a Google Sheets store. Services are created lazily.
func NewGoogleStore(creds Credentials) *GoogleStore {
	return &GoogleStore{
		creds:    creds,
		services: make(map[string]*sheets.Service),
	}
}

// Backend names the store
func (s *GoogleStore) Backend() string {
	return "google"
}

// service returns a cached Sheets service for the credential
func (s *GoogleStore) service(ctx context.Context, credential string) (*sheets.Service, error) {
	key := ""
	if s.creds.Mode == config.CredentialOAuth {
		if credential == "" {
			return nil, fmt.Errorf("project has no google refresh token")
		}
		key = credential
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if srv, ok := s.services[key]; ok {
		return srv, nil
	}

	var opt option.ClientOption
	if s.creds.Mode == config.CredentialOAuth {
		conf := &oauth2.Config{
			ClientID:     s.creds.ClientID,
			ClientSecret: s.creds.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}
		// The token source outlives the request, so it is not bound to ctx
		ts := conf.TokenSource(context.Background(), &oauth2.Token{RefreshToken: credential})
		opt = option.WithTokenSource(ts)
	} else {
		opt = option.WithCredentialsFile(s.creds.CredentialsFile)
	}

	srv, err := sheets.NewService(ctx, opt, option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client: %w", err)
	}
	s.services[key] = srv

	return srv, nil
}

// ReadAll reads every populated row of the sheet
func (s *GoogleStore) ReadAll(ctx context.Context, ref Ref) (Grid, error) {
	srv, err := s.service(ctx, ref.Credential)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Spreadsheets.Values.Get(ref.SpreadsheetID, columnsRange(ref.SheetName)).
		Context(ctx).Do()
	if err != nil {
		return nil, wrapGoogleError(err, "read")
	}

	return Normalize(resp.Values), nil
}

// Append adds rows after the last populated row
func (s *GoogleStore) Append(ctx context.Context, ref Ref, rows [][]any) error {
	srv, err := s.service(ctx, ref.Credential)
	if err != nil {
		return err
	}

	_, err = srv.Spreadsheets.Values.Append(
		ref.SpreadsheetID,
		columnsRange(ref.SheetName),
		&sheets.ValueRange{Values: rows},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return wrapGoogleError(err, "append")
	}
	return nil
}

// UpdateAt overwrites the row at pos
func (s *GoogleStore) UpdateAt(ctx context.Context, ref Ref, pos int, row []any) error {
	if pos < 1 {
		return ErrInvalidPosition
	}
	srv, err := s.service(ctx, ref.Credential)
	if err != nil {
		return err
	}

	_, err = srv.Spreadsheets.Values.Update(
		ref.SpreadsheetID,
		rowRange(ref.SheetName, pos),
		&sheets.ValueRange{Values: [][]any{row}},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return wrapGoogleError(err, "update")
	}
	return nil
}

// ClearAt empties the row at pos without shifting the rows below it
func (s *GoogleStore) ClearAt(ctx context.Context, ref Ref, pos int) error {
	if pos < 1 {
		return ErrInvalidPosition
	}
	srv, err := s.service(ctx, ref.Credential)
	if err != nil {
		return err
	}

	_, err = srv.Spreadsheets.Values.Clear(
		ref.SpreadsheetID,
		rowRange(ref.SheetName, pos),
		&sheets.ClearValuesRequest{},
	).Context(ctx).Do()
	if err != nil {
		return wrapGoogleError(err, "clear")
	}
	return nil
}

// SheetNames lists the sheet titles of a spreadsheet in tab order
func (s *GoogleStore) SheetNames(ctx context.Context, spreadsheetID, credential string) ([]string, error) {
	srv, err := s.service(ctx, credential)
	if err != nil {
		return nil, err
	}

	ss, err := srv.Spreadsheets.Get(spreadsheetID).
		Fields(googleapi.Field("sheets.properties.title")).
		Context(ctx).Do()
	if err != nil {
		return nil, wrapGoogleError(err, "get spreadsheet")
	}

	names := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			names = append(names, sh.Properties.Title)
		}
	}
	return names, nil
}

// Check verifies the configured credentials are usable
func (s *GoogleStore) Check(ctx context.Context) error {
	if s.creds.Mode == config.CredentialOAuth {
		if s.creds.ClientID == "" || s.creds.ClientSecret == "" {
			return fmt.Errorf("oauth client is not configured")
		}
		return nil
	}
	if _, err := os.Stat(s.creds.CredentialsFile); err != nil {
		return fmt.Errorf("credentials file: %w", err)
	}
	return nil
}

func wrapGoogleError(err error, op string) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		log.WithFields(log.Fields{
			"op":   op,
			"code": gErr.Code,
		}).Debug("Google Sheets API error")
		if gErr.Code == http.StatusNotFound {
			return fmt.Errorf("%s: %w: %v", op, ErrSpreadsheetNotFound, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
