package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"skitbot/config"
	"skitbot/demo/tui"
	"skitbot/types"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment
	_ = godotenv.Load()

	// Parse command-line flags
	serverURL := flag.String("url", config.GetEnvOrDefault("SKITBOT_URL", "http://localhost:8080"), "Skitbot API URL")
	templateID := flag.String("template", "", "Template id to compose on")
	plot := flag.String("plot", "", "Plot for the generated dialogue")
	title := flag.String("title", "", "Optional video title")
	position := flag.String("position", "", "Subtitle position: top, center or bottom")
	watch := flag.String("watch", "", "Follow an existing composition id instead of starting one")
	flag.Parse()

	var m tui.Model
	switch {
	case *watch != "":
		m = tui.NewWatchModel(*serverURL, *watch)
	case *templateID != "" && *plot != "":
		m = tui.NewModel(*serverURL, types.CompositionRequest{
			TemplateID:       *templateID,
			Plot:             *plot,
			Title:            *title,
			SubtitlePosition: types.SubtitlePosition(*position),
		})
	default:
		fmt.Println("usage: demo -template <id> -plot <text> [-title t] [-position bottom] | demo -watch <composition id>")
		os.Exit(2)
	}

	// Create the tea program
	program := tea.NewProgram(m)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		program.Quit()
	}()

	// Run the program
	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
