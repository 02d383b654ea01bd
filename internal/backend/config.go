package backend

import (
	"fmt"
	"strings"

	"smartspend/internal/config"
)

// FromAppConfig picks the Sheets mirror when a spreadsheet is configured
// and the in-memory mirror otherwise.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	t := MemoryMirror
	if appConfig.SheetsEnabled() {
		t = SheetsMirror
	}
	return Config{
		Type:                     t,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid mirror type: %s", c.Type)
	}

	if c.Type == SheetsMirror {
		if strings.TrimSpace(c.GoogleSpreadsheetID) == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for the sheets mirror")
		}
		if strings.TrimSpace(c.GoogleSheetName) == "" {
			return fmt.Errorf("Google Sheet name is required for the sheets mirror")
		}
	}
	return nil
}

// MirrorTypes returns all valid mirror types.
func MirrorTypes() []MirrorType {
	return []MirrorType{SheetsMirror, MemoryMirror}
}
