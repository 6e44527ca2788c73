package main

import (
	"fmt"
	"os"

	"github.com/Varun5711/tinyauth/cmd/tui/client"
	"github.com/Varun5711/tinyauth/cmd/tui/ui"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	addr := os.Getenv("USER_SERVICE_ADDR")
	if addr == "" {
		addr = "localhost:50052"
	}

	authClient, err := client.NewAuthClient(addr)
	if err != nil {
		fmt.Printf("Failed to connect to auth service: %v\n", err)
		os.Exit(1)
	}
	defer authClient.Close()

	p := tea.NewProgram(
		ui.NewModel(authClient),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
