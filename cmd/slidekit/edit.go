package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fredcamaral/slidekit/internal/adapters/secondary/saveapi"
	"github.com/fredcamaral/slidekit/internal/adapters/secondary/surface"
	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/domain/ports"
	"github.com/fredcamaral/slidekit/internal/domain/services"
)

// selectTimeout bounds the wait for the frame to answer a selection
const selectTimeout = 2 * time.Second

// editScript is the YAML file driving an edit session
type editScript struct {
	Slide      int        `yaml:"slide"`
	OnConflict string     `yaml:"on_conflict"`
	Steps      []editStep `yaml:"steps"`
}

// editStep sets exactly one action
type editStep struct {
	Select string            `yaml:"select"`
	Text   *string           `yaml:"text"`
	Style  map[string]string `yaml:"style"`
	Move   *entities.Point   `yaml:"move"`
	Drag   *entities.Point   `yaml:"drag"`
	Delete bool              `yaml:"delete"`
	Undo   int               `yaml:"undo"`
	Redo   int               `yaml:"redo"`
	Save   bool              `yaml:"save"`
}

func (s editStep) name() string {
	switch {
	case s.Select != "":
		return "select"
	case s.Text != nil:
		return "text"
	case len(s.Style) > 0:
		return "style"
	case s.Move != nil:
		return "move"
	case s.Drag != nil:
		return "drag"
	case s.Delete:
		return "delete"
	case s.Undo > 0:
		return "undo"
	case s.Redo > 0:
		return "redo"
	case s.Save:
		return "save"
	default:
		return ""
	}
}

// editCmd represents the edit command
var editCmd = &cobra.Command{
	Use:   "edit [deck]",
	Short: "Apply a scripted edit session to one slide",
	Long: `Mount a slide headlessly, apply the steps of an edit script and save
the result through the save API.

Without --save-url a local save server is started for the deck.

Script example:
  slide: 0
  on_conflict: reload
  steps:
    - select: "#title"
    - text: "Hello World"
    - style: {color: "#c0392b"}
    - move: {x: 120, y: 80}
    - undo: 1
    - save: true`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)

	editCmd.Flags().StringP("script", "s", "", "Edit script (YAML)")
	editCmd.Flags().Int("slide", -1, "Slide index (overrides the script)")
	editCmd.Flags().String("save-url", "", "Save API base URL (default: start a local server)")
	editCmd.Flags().String("token", "", "Save API bearer token")
	editCmd.Flags().String("user", "", "Name recorded as the editor")
	editCmd.Flags().String("storage", "", "Slide store for the local server: memory or sqlite")
	editCmd.Flags().String("db", "", "SQLite database for the local server")
	editCmd.Flags().StringP("output", "o", "", "Write the final slide HTML here")
	_ = editCmd.MarkFlagRequired("script")
}

// loadEditScript reads and checks a script file
func loadEditScript(path string) (*editScript, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading edit script: %w", err)
	}
	var script editScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parsing edit script: %w", err)
	}
	if script.Slide < 0 {
		return nil, fmt.Errorf("slide index must be non-negative: %d", script.Slide)
	}
	if script.OnConflict != "" && !entities.ConflictStrategy(script.OnConflict).Valid() {
		return nil, fmt.Errorf("unknown on_conflict %q (must be reload or overwrite)", script.OnConflict)
	}
	for i, step := range script.Steps {
		if step.name() == "" {
			return nil, fmt.Errorf("step %d has no action", i+1)
		}
	}
	return &script, nil
}

// editOutcome is what an edit session leaves behind
type editOutcome struct {
	HTML     string
	Version  int
	Saved    bool
	Reloaded bool
	Status   entities.SaveStatus
}

// editRun holds the collaborators of one scripted session
type editRun struct {
	cfg            *entities.Config
	client         ports.SaveClient
	presentationID string
	script         *editScript
	clock          ports.TimeProvider
	logger         *slog.Logger
}

// run fetches the slide, mounts it and applies every step
func (r *editRun) run(ctx context.Context) (*editOutcome, error) {
	slide, err := r.client.Fetch(ctx, r.presentationID, r.script.Slide)
	if err != nil {
		return nil, fmt.Errorf("fetching slide %d: %w", r.script.Slide, err)
	}

	editor := r.cfg.Editor
	surf := surface.New(editor.GetOrigin(), editor.GetPreviewScaleCap(), r.logger)
	grid := services.NewGridOverlay(editor.GetGridSize())
	unsubscribe := surf.OnResize(grid.Update)
	defer unsubscribe()
	surf.Resize(entities.Rect{Width: entities.ReferenceWidth, Height: entities.ReferenceHeight})

	frame, err := surf.Mount(ctx, slide.HTMLContent)
	if err != nil {
		return nil, err
	}
	defer surf.Unmount()

	autosave := services.NewAutoSaveController(r.client, frame, r.clock, services.SlideRef{
		SlideID:        slide.ID,
		PresentationID: r.presentationID,
		Index:          r.script.Slide,
		Version:        slide.Metadata.Version,
	}, services.AutoSaveOptions{
		Debounce:    editor.GetAutoSaveDebounce(),
		StatusReset: editor.GetStatusReset(),
		EditedBy:    r.cfg.SaveAPI.EditedBy,
	}, r.logger)
	defer autosave.Close()

	session := services.NewEditSession(services.EditSessionDeps{
		Port:      frame.Host(),
		Document:  frame,
		Stack:     services.NewCommandStack(editor.GetMaxHistory(), r.logger),
		Alignment: services.NewAlignmentEngine(r.clock, editor.GetAlignmentThreshold(), r.logger),
		Tracker:   autosave,
		Grid:      grid,
		Logger:    r.logger,
	})

	changed := make(chan struct{}, 1)
	session.OnChange(func(entities.EditingSlideState) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = session.Run(runCtx) }()

	if err := session.StartEditMode(ctx); err != nil {
		return nil, err
	}

	out := &editOutcome{}
	for i, step := range r.script.Steps {
		if step.Save {
			reloaded, err := r.save(ctx, autosave)
			if err != nil {
				return nil, fmt.Errorf("step %d (save): %w", i+1, err)
			}
			out.Saved = true
			if reloaded != nil {
				out.HTML = reloaded.HTMLContent
				out.Reloaded = true
				out.Version = autosave.Version()
				out.Status = autosave.Status()
				return out, nil
			}
			continue
		}
		if err := applyStep(ctx, session, frame, step, changed); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.name(), err)
		}
	}

	if err := session.StopEditMode(ctx); err != nil {
		return nil, err
	}

	// unsaved edits are flushed the way a page unload would
	if autosave.HasUnsavedChanges() {
		if err := autosave.BeforeUnload(ctx); err != nil {
			return nil, fmt.Errorf("final save: %w", err)
		}
		out.Saved = true
	}

	out.HTML, err = frame.Serialize(ctx, true)
	if err != nil {
		return nil, err
	}
	out.Version = autosave.Version()
	out.Status = autosave.Status()
	return out, nil
}

// save persists now and applies the script's conflict strategy. The server
// copy is returned when the conflict was resolved by reloading.
func (r *editRun) save(ctx context.Context, autosave *services.AutoSaveController) (*entities.Slide, error) {
	err := autosave.Save(ctx)
	if err == nil || !errors.Is(err, entities.ErrConflict) || r.script.OnConflict == "" {
		return nil, err
	}

	r.logger.Warn("resolving save conflict", "strategy", r.script.OnConflict)
	return autosave.ResolveConflict(ctx, entities.ConflictStrategy(r.script.OnConflict))
}

func applyStep(ctx context.Context, session *services.EditSession, frame *surface.Frame, step editStep, changed <-chan struct{}) error {
	switch {
	case step.Select != "":
		return selectAndWait(ctx, session, frame, step.Select, changed)
	case step.Text != nil:
		return session.ApplyText(ctx, *step.Text)
	case len(step.Style) > 0:
		return session.ApplyStyles(ctx, step.Style)
	case step.Move != nil:
		return session.MoveSelected(ctx, *step.Move)
	case step.Drag != nil:
		if err := session.BeginDrag(ctx); err != nil {
			return err
		}
		if err := session.DragTo(ctx, *step.Drag); err != nil {
			return err
		}
		return session.EndDrag(ctx, *step.Drag)
	case step.Delete:
		return session.DeleteSelected(ctx)
	case step.Undo > 0:
		for i := 0; i < step.Undo; i++ {
			if err := session.Undo(ctx); err != nil {
				return err
			}
		}
	case step.Redo > 0:
		for i := 0; i < step.Redo; i++ {
			if err := session.Redo(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// selectAndWait selects path and blocks until the frame's answer arrives
func selectAndWait(ctx context.Context, session *services.EditSession, frame *surface.Frame, path string, changed <-chan struct{}) error {
	if _, err := frame.Describe(ctx, path); err != nil {
		return err
	}
	if err := session.ClearSelection(ctx); err != nil {
		return err
	}
	if err := session.SelectElement(ctx, path); err != nil {
		return err
	}

	timeout := time.NewTimer(selectTimeout)
	defer timeout.Stop()
	for {
		if session.State().SelectedElement != nil {
			return nil
		}
		select {
		case <-changed:
		case <-timeout.C:
			return fmt.Errorf("frame did not select %s", path)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func runEdit(cmd *cobra.Command, args []string) error {
	deckPath := args[0]
	if err := validateDeckPath(deckPath); err != nil {
		return err
	}

	scriptPath, _ := cmd.Flags().GetString("script")
	script, err := loadEditScript(scriptPath)
	if err != nil {
		return err
	}
	if idx, _ := cmd.Flags().GetInt("slide"); idx >= 0 {
		script.Slide = idx
	}

	cfg, logger, closeLog, err := setup(cmd, deckPath)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx := cmd.Context()
	var presentationID string

	if cfg.SaveAPI.BaseURL == "" {
		stack, err := startLocalSaveServer(ctx, cfg, deckPath, logger)
		if err != nil {
			return err
		}
		defer func() { _ = stack.shutdown(cfg.Server.GetShutdownTimeout()) }()
		presentationID = stack.deck.ID
	} else {
		loader, _, err := newDeckLoader(logger)
		if err != nil {
			return err
		}
		deck, err := loader.Load(ctx, deckPath)
		if err != nil {
			return err
		}
		presentationID = deck.ID
	}

	client, err := saveapi.NewClient(cfg.SaveAPI, nil, logger)
	if err != nil {
		return err
	}

	run := &editRun{
		cfg:            cfg,
		client:         client,
		presentationID: presentationID,
		script:         script,
		clock:          ports.NewRealTimeProvider(),
		logger:         logger,
	}
	out, err := run.run(ctx)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		if err := os.WriteFile(filepath.Clean(path), []byte(out.HTML), 0o600); err != nil {
			return fmt.Errorf("writing slide: %w", err)
		}
	}

	state := "unchanged"
	switch {
	case out.Reloaded:
		state = "reloaded from server"
	case out.Saved:
		state = "saved"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Slide %d of %s %s (version %d)\n", script.Slide, presentationID, state, out.Version)
	return nil
}

// startLocalSaveServer serves the deck on a loopback port with a one-off
// token and points the save API config at it
func startLocalSaveServer(ctx context.Context, cfg *entities.Config, deckPath string, logger *slog.Logger) (*serveStack, error) {
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	if cfg.Server.AuthToken == "" {
		cfg.Server.AuthToken = uuid.NewString()
	}

	stack, err := buildServeStack(ctx, cfg, deckPath, false, logger)
	if err != nil {
		return nil, err
	}
	if err := stack.start(ctx, cfg, deckPath, false); err != nil {
		_ = stack.shutdown(cfg.Server.GetShutdownTimeout())
		return nil, err
	}

	cfg.SaveAPI.BaseURL = "http://" + stack.server.Addr()
	cfg.SaveAPI.Token = cfg.Server.AuthToken
	return stack, nil
}
