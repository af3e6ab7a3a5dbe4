package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/config"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/core"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/perception"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/recall"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/store"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// defaultUserID identifies the single local user. Multi-user is a server
// concern; the CLI always talks about one plan.
const defaultUserID = "local"

// historyWindow is how many messages ride along as model context.
const historyWindow = 20

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sophiaStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
	toolStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func dbPath(ws string, cfg *config.Config) string {
	p := cfg.Storage.DatabasePath
	if p == "" {
		p = ".sophia/sophia.db"
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ws, p)
}

func loggingSettings(cfg *config.Config) logging.Settings {
	return logging.Settings{
		DebugMode:  cfg.Logging.DebugMode,
		Categories: cfg.Logging.Categories,
		Level:      cfg.Logging.Level,
	}
}

// runChat starts the interactive conversation loop.
func runChat() error {
	ws := resolveWorkspace()
	cfg, err := loadConfig(ws)
	if err != nil {
		return err
	}

	if err := logging.Initialize(ws, loggingSettings(cfg)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.CloseAll()

	st, err := store.NewStore(dbPath(ws, cfg))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	llm, err := perception.NewClientFromConfig(cfg)
	if err != nil {
		return err
	}

	var recallSvc types.RecallService = recall.Noop{}
	if cfg.Recall.Enabled && cfg.Recall.APIKey != "" {
		embedder, err := recall.NewGenAIEmbedder(context.Background(), cfg.Recall.APIKey, cfg.Recall.Model)
		if err != nil {
			fmt.Fprintln(os.Stderr, faintStyle.Render("recall désactivé : "+err.Error()))
		} else {
			recallSvc = recall.NewEngine(embedder)
		}
	}

	orch := core.New(cfg, st, llm, recallSvc)
	defer orch.Close()

	// Live-reload logging toggles while the chat runs.
	watcher, err := config.Watch(ws, func(next *config.Config) {
		logging.Apply(loggingSettings(next))
	})
	if err == nil {
		defer watcher.Close()
	}

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		fmt.Println()
		os.Exit(0)
	}()

	fmt.Println(sophiaStyle.Render("Sophia") + faintStyle.Render(" · "+cfg.LLM.Model+" · /aide pour les commandes"))
	fmt.Println()

	var history []types.Message
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(promptStyle.Render("toi> "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if quit := handleCommand(input, st, renderer); quit {
				break
			}
			continue
		}

		turnCtx, turnCancel := context.WithTimeout(ctx, timeout)
		res, err := orch.ProcessTurn(turnCtx, defaultUserID, input, history, nil)
		turnCancel()
		if err != nil {
			fmt.Fprintln(os.Stderr, faintStyle.Render("erreur : "+err.Error()))
			continue
		}

		printReply(renderer, res.ReplyText)
		for _, tool := range res.ExecutedTools {
			fmt.Println(toolStyle.Render("  ✓ " + tool))
		}
		fmt.Println()

		history = append(history,
			types.Message{Role: "user", Content: input},
			types.Message{Role: "assistant", Content: res.ReplyText},
		)
		if len(history) > historyWindow {
			history = history[len(history)-historyWindow:]
		}
	}
	return scanner.Err()
}

func printReply(renderer *glamour.TermRenderer, text string) {
	label := sophiaStyle.Render("sophia> ")
	if renderer != nil {
		if out, err := renderer.Render(text); err == nil {
			fmt.Print(label + strings.TrimRight(out, "\n") + "\n")
			return
		}
	}
	fmt.Println(label + text)
}

// handleCommand runs a slash command; returns true on quit.
func handleCommand(input string, st *store.Store, renderer *glamour.TermRenderer) bool {
	switch strings.Fields(input)[0] {
	case "/quit", "/exit", "/q":
		fmt.Println(faintStyle.Render("À bientôt !"))
		return true
	case "/plan":
		printPlan(st, renderer)
	case "/aide", "/help":
		printReply(renderer, `**Commandes**
- `+"`/plan`"+` : affiche ton plan actuel
- `+"`/quit`"+` : quitte la discussion

Dis simplement « on fait le point » pour lancer le bilan du jour.`)
	default:
		fmt.Println(faintStyle.Render("Commande inconnue. /aide pour la liste."))
	}
	return false
}

func printPlan(st *store.Store, renderer *glamour.TermRenderer) {
	items, err := st.ListItems(defaultUserID)
	if err != nil {
		fmt.Fprintln(os.Stderr, faintStyle.Render("erreur : "+err.Error()))
		return
	}
	if len(items) == 0 {
		printReply(renderer, "Ton plan est vide pour l'instant. Raconte-moi ce que tu veux construire !")
		return
	}

	var b strings.Builder
	b.WriteString("**Ton plan**\n\n")
	for _, it := range items {
		mark := " "
		switch it.Status {
		case types.ItemActive:
			mark = "x"
		case types.ItemArchived:
			mark = "-"
		}
		fmt.Fprintf(&b, "- [%s] %s", mark, it.Title)
		if it.TargetReps > 0 {
			fmt.Fprintf(&b, " (%d×/semaine)", it.TargetReps)
		}
		b.WriteString("\n")
	}
	printReply(renderer, b.String())
}
