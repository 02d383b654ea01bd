package backend

import (
	"context"

	"smartspend/internal/sheets"
)

// MirrorType selects where the worker mirrors expenses.
type MirrorType string

const (
	SheetsMirror MirrorType = "sheets"
	MemoryMirror MirrorType = "memory"
)

func (t MirrorType) String() string {
	return string(t)
}

func (t MirrorType) IsValid() bool {
	switch t {
	case SheetsMirror, MemoryMirror:
		return true
	default:
		return false
	}
}

// Config holds what the factory needs to build a mirror.
type Config struct {
	Type MirrorType

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// Result is the mirror plus what the worker should log about it.
type Result struct {
	Mirror sheets.RowMirror
	Type   MirrorType
}

// Factory creates mirrors based on configuration.
type Factory interface {
	CreateMirror(ctx context.Context, config Config) (*Result, error)
}
