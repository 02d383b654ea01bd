package backend

import (
	"context"
	"fmt"

	"smartspend/internal/log"
	gsheet "smartspend/internal/sheets/google"
	"smartspend/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	// newSheets is swapped in tests to avoid real credentials.
	newSheets func(ctx context.Context, opts gsheet.Options) (*gsheet.Client, error)
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger:    logger.WithComponent(log.ComponentSheets),
		newSheets: gsheet.New,
	}
}

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsMirror:
		return f.createSheetsMirror(ctx, config)
	case MemoryMirror:
		f.logger.Info("Google Sheets disabled - mirroring in memory")
		return &Result{Mirror: memory.New(), Type: MemoryMirror}, nil
	default:
		return nil, fmt.Errorf("unsupported mirror type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsMirror(ctx context.Context, config Config) (*Result, error) {
	cli, err := f.newSheets(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Mirroring to Google Sheets",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)

	return &Result{Mirror: cli, Type: SheetsMirror}, nil
}
