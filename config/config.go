package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultSystemInstruction steers the transcription model toward
// verbatim Burmese output instead of conversational replies.
const DefaultSystemInstruction = "You are a transcription service. " +
	"Transcribe the incoming Burmese (Myanmar language) speech verbatim. " +
	"Do not translate, answer, or comment. Output only the spoken words " +
	"in Myanmar script."

const DefaultModel = "models/gemini-2.0-flash-live-001"

func SetDefaults() {
	viper.SetDefault("gemini_model", DefaultModel)
	viper.SetDefault("system_instruction", DefaultSystemInstruction)
	viper.SetDefault("export_dir", ".")
}

func GeminiAPIKey() (string, error) {
	key := viper.GetString("gemini_api_key")
	if key == "" {
		return "", fmt.Errorf("gemini_api_key is not set, run `saye setup` or set GEMINI_API_KEY")
	}
	return key, nil
}

func GeminiModel() string {
	return viper.GetString("gemini_model")
}

func SystemInstruction() string {
	return viper.GetString("system_instruction")
}

func OpenAIAPIKey() (string, error) {
	key := viper.GetString("openai_api_key")
	if key == "" {
		return "", fmt.Errorf("openai_api_key is not set, run `saye setup` or set OPENAI_API_KEY")
	}
	return key, nil
}

func ExportDir() string {
	return viper.GetString("export_dir")
}

// HistoryDBPath returns the sqlite path for the transcript history,
// creating the parent directory if needed.
func HistoryDBPath() (string, error) {
	if p := viper.GetString("history_db"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	dir := filepath.Join(home, ".saye")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dir, "history.db"), nil
}
