package main

import (
	"fmt"
	"os"
	"path/filepath"

	"trustchain-tui/config"
	"trustchain-tui/store"

	tea "github.com/charmbracelet/bubbletea"
)

// -------------------- MAIN --------------------

func main() {
	config.LoadDotEnv()

	homeDir, _ := os.UserHomeDir()
	configPath := filepath.Join(homeDir, ".trustchain-config.json")
	cfg := config.ApplyEnv(config.LoadOrCreate(configPath), os.Getenv)
	if err := cfg.Validate(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}

	m := newModel(cfg, configPath)

	// optional start route, e.g. `trustchain /donations`
	if len(os.Args) > 1 {
		page, ok := config.PageForPath(os.Args[1])
		if !ok {
			fmt.Printf("unknown route %q, starting at %s\n", os.Args[1], page.Path())
		}
		m.activePage = page
	}

	if cfg.CachePath != "" {
		st, err := store.Open(cfg.CachePath)
		if err != nil {
			fmt.Println("event cache disabled:", err)
		} else {
			m.cache = st
		}
	}

	p := tea.NewProgram(&m, tea.WithAltScreen())
	_, err := p.Run()
	if m.cache != nil {
		_ = m.cache.Close()
	}
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
