package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"tandem/config"
	"tandem/model"
	"tandem/provider"
	"tandem/session"
	"tandem/storage"
	"tandem/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := config.NewLogger(cfg.DataDir())

	providerID := activeProvider(cfg)
	pcfg := cfg.Provider(providerID)
	pc := provider.Config{
		Type:    provider.MapProviderID(providerID),
		BaseURL: pcfg.BaseURL,
		Model:   pcfg.Model,
		APIKey:  pcfg.APIKey,
	}
	if err := provider.ValidateConfig(pc); err != nil {
		return err
	}

	prov, err := provider.New(pc, log)
	if err != nil {
		return err
	}

	store, err := storage.NewSessionStore(cfg.DataDir())
	if err != nil {
		return err
	}
	defer store.Close()

	sess := session.New(prov,
		session.WithRegistry(builtinRegistry()),
		session.WithSystemPrompt(cfg.SystemPrompt),
		session.WithSampling(model.SamplingConfig{
			Temperature: cfg.Sampling.Temperature,
			TopK:        cfg.Sampling.TopK,
			TokenBuffer: cfg.Sampling.TokenBuffer,
		}),
		session.WithLogger(log),
	)

	fmt.Printf("tandem — %s (%s)\n", prov.Name(), prov.Model())
	fmt.Println("Type a message, or /help for commands.")

	return repl(sess, store, prov, providerID)
}

func activeProvider(cfg *config.Config) string {
	if cfg.ActiveProvider != "" {
		return cfg.ActiveProvider
	}
	return "local"
}

func repl(sess *session.Session, store *storage.SessionStore, prov provider.Provider, providerID string) error {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	var current *storage.Session

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := handleCommand(ctx, line, sess, store, prov, providerID, &current)
			if err != nil {
				fmt.Printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		frags, err := sess.SendMessage(ctx, line, nil)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		for frag := range frags {
			fmt.Print(frag)
		}
		fmt.Println()

		if current != nil {
			current.Messages = sess.History()
			if err := store.Save(current); err != nil {
				fmt.Printf("warning: failed to save session: %v\n", err)
			}
		}
	}
}

func handleCommand(ctx context.Context, line string, sess *session.Session, store *storage.SessionStore, prov provider.Provider, providerID string, current **storage.Session) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true, nil

	case "/help":
		fmt.Println(`Commands:
  /history          show the conversation so far
  /clear            clear the conversation
  /save <name>      save the conversation as a named session
  /sessions         list saved sessions
  /load <id>        resume a saved session
  /search <text>    search saved messages
  /model [name]     show or switch model
  /quit             exit`)
		return false, nil

	case "/history":
		for _, msg := range sess.History() {
			fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
		}
		return false, nil

	case "/clear":
		sess.ClearHistory()
		*current = nil
		fmt.Println("Conversation cleared.")
		return false, nil

	case "/save":
		if arg == "" {
			arg = "session " + time.Now().Format("2006-01-02 15:04")
		}
		s := &storage.Session{
			Name:     arg,
			Provider: providerID,
			Model:    prov.Model(),
			Messages: sess.History(),
		}
		if err := store.Save(s); err != nil {
			return false, err
		}
		*current = s
		fmt.Printf("Saved as %s (%s)\n", s.Name, s.ID)
		return false, nil

	case "/sessions":
		list, err := store.List()
		if err != nil {
			return false, err
		}
		if len(list) == 0 {
			fmt.Println("No saved sessions.")
			return false, nil
		}
		for _, md := range list {
			fmt.Printf("%s  %-24s %s/%s  %d messages  %s\n",
				md.ID, md.Name, md.Provider, md.Model, md.MessageCount,
				md.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return false, nil

	case "/load":
		if arg == "" {
			return false, fmt.Errorf("usage: /load <id>")
		}
		s, err := store.Load(arg)
		if err != nil {
			return false, err
		}
		sess.SetHistory(s.Messages)
		*current = s
		fmt.Printf("Loaded %s (%d messages)\n", s.Name, len(s.Messages))
		return false, nil

	case "/search":
		if arg == "" {
			return false, fmt.Errorf("usage: /search <text>")
		}
		matches, err := store.Search(arg)
		if err != nil {
			return false, err
		}
		if len(matches) == 0 {
			fmt.Println("No matches.")
			return false, nil
		}
		for _, m := range matches {
			fmt.Printf("%s [%s] %s: %s\n", m.SessionName, m.SessionID, m.Role, m.Preview)
		}
		return false, nil

	case "/model":
		if arg == "" {
			fmt.Printf("Current model: %s\n", prov.Model())
			return false, nil
		}
		prov.SetModel(arg)
		fmt.Printf("Model set to %s\n", arg)
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s", cmd)
	}
}

// builtinRegistry provides the small set of tools always available without
// an external tool server.
func builtinRegistry() *tools.FuncRegistry {
	reg := tools.NewFuncRegistry()

	reg.Register(
		mcptypes.NewTool("current_time",
			mcptypes.WithDescription("Returns the current date and time"),
		),
		func(ctx context.Context, args map[string]any) (string, error) {
			return time.Now().Format(time.RFC1123), nil
		},
	)

	reg.Register(
		mcptypes.NewTool("word_count",
			mcptypes.WithDescription("Counts the words in a piece of text"),
			mcptypes.WithString("text",
				mcptypes.Required(),
				mcptypes.Description("The text to count"),
			),
		),
		func(ctx context.Context, args map[string]any) (string, error) {
			text, _ := args["text"].(string)
			return fmt.Sprintf("%d words", len(strings.Fields(text))), nil
		},
	)

	return reg
}
