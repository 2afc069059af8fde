package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/yanqian/faq-rag/internal/interface/tui"
)

func main() {
	_ = godotenv.Load()

	addr := flag.String("addr", envOr("FAQ_API_ADDR", "http://localhost:8080"), "base URL of the FAQ API")
	token := flag.String("token", os.Getenv("FAQ_API_TOKEN"), "bearer token sent with each request")
	flag.Parse()

	client := tui.NewAPIClient(*addr, *token)
	if _, err := tea.NewProgram(tui.New(client), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "faqchat: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
