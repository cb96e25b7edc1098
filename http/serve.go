package http

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/sawnaing/saye/config"
	"github.com/sawnaing/saye/transcript"
)

var pageTemplate = template.Must(template.New("history").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Transcript History</title>
<style>
body { font-family: "Pyidaungsu", "Myanmar Text", sans-serif; max-width: 48rem; margin: 2rem auto; }
.segment { margin-bottom: 0.75rem; }
.time { color: #888; font-size: 0.8rem; }
</style>
</head>
<body>
<h1>Transcript History</h1>
{{range .}}
<div class="segment">
<div class="time">{{.CapturedAt.Format "2006-01-02 15:04:05"}}</div>
<div class="text">{{.Text}}</div>
</div>
{{else}}
<p>No transcripts yet.</p>
{{end}}
</body>
</html>
`))

func Routes(r chi.Router, store *transcript.Store) {
	r.Get("/", handleHistoryPage(store))
}

func handleHistoryPage(store *transcript.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		segments, err := store.Segments()
		if err != nil {
			http.Error(
				w,
				fmt.Sprintf("Failed to load transcripts: %v", err),
				http.StatusInternalServerError,
			)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTemplate.Execute(w, segments); err != nil {
			log.Error("render history page", "error", err)
		}
	}
}

func Serve(port int) error {
	dbPath, err := config.HistoryDBPath()
	if err != nil {
		return err
	}
	store, err := transcript.OpenStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer store.Close()

	r := chi.NewRouter()
	Routes(r, store)

	log.Info("http", "url", fmt.Sprintf("http://localhost:%d", port))
	return http.ListenAndServe(fmt.Sprintf(":%d", port), r)
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the transcript history over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		if err := Serve(port); err != nil {
			log.Fatal("Failed to start server", "error", err)
		}
	},
}

func init() {
	ServeCmd.Flags().IntP("port", "p", 4444, "Port to run the HTTP server on")
}
