package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries everything one pipeline run needs. It is built once in main
// and passed down explicitly; nothing reads the environment after Load.
type Config struct {
	CredentialsFile string
	SourceFolderID  string

	SheetID   string
	SheetName string

	// ReportXLSX is a local workbook path used instead of Google Sheets
	// when SheetID is empty.
	ReportXLSX string

	GeminiAPIKey string
	GeminiModel  string

	TempFolder string
	DBPath     string

	// ServicesList is the fixed category list the AI must classify into.
	ServicesList []string
}

var defaultServices = []string{
	"diagnostics",
	"engine repair",
	"suspension repair",
	"body repair",
	"tire service",
	"oil change",
	"electrical",
	"other",
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		CredentialsFile: envOr("GOOGLE_CREDENTIALS_FILE", "service_account.json"),
		SourceFolderID:  os.Getenv("SOURCE_FOLDER_ID"),
		SheetID:         os.Getenv("SHEET_ID"),
		SheetName:       envOr("SHEET_NAME", "Test_Run"),
		ReportXLSX:      os.Getenv("REPORT_XLSX"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     envOr("GEMINI_MODEL", "gemini-2.0-flash"),
		TempFolder:      envOr("TEMP_FOLDER", "temp_audio"),
		DBPath:          envOr("DB_PATH", "bot_db.db"),
		ServicesList:    defaultServices,
	}

	if raw := os.Getenv("SERVICES_LIST"); raw != "" {
		var list []string
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}
		if len(list) > 0 {
			cfg.ServicesList = list
		}
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	if cfg.SourceFolderID == "" {
		return nil, fmt.Errorf("SOURCE_FOLDER_ID not set")
	}
	if cfg.SheetID == "" && cfg.ReportXLSX == "" {
		return nil, fmt.Errorf("neither SHEET_ID nor REPORT_XLSX set, nowhere to write results")
	}

	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
