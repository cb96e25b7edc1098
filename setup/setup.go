package setup

import (
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

func RunSetup() {
	log.Info("Starting saye setup...")

	geminiAPIKey := viper.GetString("gemini_api_key")
	openaiAPIKey := viper.GetString("openai_api_key")
	systemInstruction := viper.GetString("system_instruction")

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Enter your Google (Gemini) API Key").
				Value(&geminiAPIKey),
			huh.NewInput().
				Title("Enter your OpenAI API Key (optional, used for summaries)").
				Value(&openaiAPIKey),
			huh.NewText().
				Title("Transcription instruction").
				Description("Sent to the transcription model at session start").
				Value(&systemInstruction),
		),
	)

	err := form.Run()
	if err != nil {
		log.Fatal("Error during setup", "error", err)
	}

	viper.Set("gemini_api_key", geminiAPIKey)
	viper.Set("openai_api_key", openaiAPIKey)
	viper.Set("system_instruction", systemInstruction)

	err = viper.WriteConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			err = viper.SafeWriteConfig()
		}
	}
	if err != nil {
		log.Fatal("Error saving configuration", "error", err)
	}

	log.Info("Setup completed successfully!")
}
