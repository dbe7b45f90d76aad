package main

import (
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/askdb/askdb/internal/chat"
	"github.com/askdb/askdb/internal/client"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/history"
	"github.com/askdb/askdb/internal/logging"
	"github.com/askdb/askdb/internal/session"
	"github.com/askdb/askdb/internal/tui"
)

func main() {
	for _, p := range []string{".env", "../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// The TUI owns the terminal, so logs always go to a file here.
	if cfg.Logging.File == "" {
		if dir, err := session.DefaultDir(); err == nil {
			cfg.Logging.File = filepath.Join(dir, "askdb.log")
		}
	}
	if err := logging.Setup(cfg.Logging); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}

	agent := client.NewHTTP(cfg.Client.AgentURL, cfg.Client.RequestTimeout)

	conversationLog := chat.NewLog()
	ctrl := chat.NewController(conversationLog, newSessionManager())
	hydrator := history.NewHydrator(agent)

	model := tui.New(ctrl, conversationLog, hydrator, agent, cfg.Client.ExportDir)

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Error().Err(err).Msg("UI terminated with an error")
		os.Exit(1)
	}
}

// newSessionManager persists the session token under the user config dir so
// conversations survive restarts. An unwritable config dir degrades to a
// process-lifetime session.
func newSessionManager() *session.Manager {
	dir, err := session.DefaultDir()
	if err == nil {
		if store, ferr := session.NewFileStore(dir); ferr == nil {
			return session.NewManager(store)
		} else {
			err = ferr
		}
	}
	log.Warn().Err(err).Msg("Session persistence unavailable, using in-memory session")
	return session.NewManager(session.NewMemoryStore())
}
