package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sawnaing/saye/app"
	"github.com/sawnaing/saye/config"
	"github.com/sawnaing/saye/export"
	httpserver "github.com/sawnaing/saye/http"
	"github.com/sawnaing/saye/llm"
	"github.com/sawnaing/saye/session"
	"github.com/sawnaing/saye/setup"
	"github.com/sawnaing/saye/snd"
	"github.com/sawnaing/saye/stt"
	"github.com/sawnaing/saye/transcript"
)

var logger *log.Logger

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(httpserver.ServeCmd)

	rootCmd.PersistentFlags().String("gemini-api-key", "", "Google Gemini API key")
	rootCmd.PersistentFlags().String("openai-api-key", "", "OpenAI API key")
	rootCmd.PersistentFlags().String("export-dir", "", "Directory for .doc exports")

	viper.BindPFlag(
		"gemini_api_key",
		rootCmd.PersistentFlags().Lookup("gemini-api-key"),
	)
	viper.BindPFlag(
		"openai_api_key",
		rootCmd.PersistentFlags().Lookup("openai-api-key"),
	)
	viper.BindPFlag(
		"export_dir",
		rootCmd.PersistentFlags().Lookup("export-dir"),
	)
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home + "/.saye")
	}
	viper.AutomaticEnv()
	config.SetDefaults()

	viper.ReadInConfig()

	logger = log.New(os.Stderr)
}

var rootCmd = &cobra.Command{
	Use:   "saye",
	Short: "Saye transcribes Myanmar speech from your microphone",
	Long:  `Saye listens to the microphone, streams the audio to a transcription service, and shows the Myanmar text live in your terminal.`,
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Start the live transcription screen",
	Run:   runListen,
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure API keys interactively",
	Run: func(cmd *cobra.Command, args []string) {
		setup.RunSetup()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved transcript segments in a table",
	Run:   runHistory,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the saved transcript to a Word document",
	Run:   runExport,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize today's transcript using OpenAI",
	Run:   runSummarize,
}

// The TUI owns the terminal, so listen logs to a file instead.
func openFileLogger() (*log.Logger, func()) {
	logFile, err := os.OpenFile(
		"saye.log",
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0666,
	)
	if err != nil {
		logger.Fatal("Failed to open log file", "error", err)
	}

	fileLogger := log.NewWithOptions(logFile, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Level:           log.InfoLevel,
	})

	return fileLogger, func() {
		if closer, ok := fileLogger.Writer().(io.Closer); ok {
			closer.Close()
		}
	}
}

func openStore(lg *log.Logger) *transcript.Store {
	dbPath, err := config.HistoryDBPath()
	if err != nil {
		lg.Error("locate history database", "error", err.Error())
		return nil
	}
	store, err := transcript.OpenStore(dbPath)
	if err != nil {
		lg.Error("open history database", "error", err.Error())
		return nil
	}
	return store
}

func runListen(cmd *cobra.Command, args []string) {
	apiKey, err := config.GeminiAPIKey()
	if err != nil {
		logger.Fatal(err.Error())
	}

	fileLogger, closeLog := openFileLogger()
	defer closeLog()

	service := stt.NewGeminiClient(
		apiKey,
		config.GeminiModel(),
		config.SystemInstruction(),
		fileLogger.With().WithPrefix("hear"),
	)

	micLogger := fileLogger.With().WithPrefix("mic")
	ctrl := session.NewController(
		service,
		func() (session.CaptureDevice, error) {
			return snd.OpenCapture(micLogger)
		},
		fileLogger,
	)

	store := openStore(fileLogger)
	if store != nil {
		defer store.Close()
	}

	m := app.New(ctrl, store, fileLogger).
		WithExportDir(config.ExportDir())

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Fatal("run UI", "error", err.Error())
	}
}

func runHistory(cmd *cobra.Command, args []string) {
	store := openStore(logger)
	if store == nil {
		os.Exit(1)
	}
	defer store.Close()

	segments, err := store.Segments()
	if err != nil {
		logger.Fatal("fetch segments", "error", err.Error())
	}

	if len(segments) == 0 {
		fmt.Println("No transcripts found.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Captured At", "Text"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, seg := range segments {
		table.Append([]string{
			seg.ID,
			seg.CapturedAt.Format("2006-01-02 15:04:05"),
			seg.Text,
		})
	}

	table.Render()
}

func runExport(cmd *cobra.Command, args []string) {
	store := openStore(logger)
	if store == nil {
		os.Exit(1)
	}
	defer store.Close()

	segments, err := store.Segments()
	if err != nil {
		logger.Fatal("fetch segments", "error", err.Error())
	}

	path, err := export.WriteWordDocument(
		config.ExportDir(),
		segments,
		time.Now(),
	)
	if err != nil {
		logger.Fatal("export transcript", "error", err.Error())
	}

	fmt.Printf("Transcript exported: %s\n", path)
}

func runSummarize(cmd *cobra.Command, args []string) {
	openaiAPIKey, err := config.OpenAIAPIKey()
	if err != nil {
		logger.Fatal(err.Error())
	}

	store := openStore(logger)
	if store == nil {
		os.Exit(1)
	}
	defer store.Close()

	now := time.Now()
	midnight := time.Date(
		now.Year(), now.Month(), now.Day(),
		0, 0, 0, 0, now.Location(),
	)
	segments, err := store.SegmentsSince(midnight)
	if err != nil {
		logger.Fatal("fetch segments", "error", err.Error())
	}

	summary, err := llm.SummarizeSegments(
		context.Background(),
		openaiAPIKey,
		segments,
	)
	if err != nil {
		logger.Fatal("generate summary", "error", err.Error())
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(62),
	)
	if err != nil {
		logger.Fatal("failed to create renderer", "error", err.Error())
	}

	rendered, err := renderer.Render(summary)
	if err != nil {
		logger.Fatal("failed to render summary", "error", err.Error())
	}
	fmt.Print(rendered)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
