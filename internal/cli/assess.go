package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gifts-assessment-service/internal/app"
	"gifts-assessment-service/internal/catalog"
	"gifts-assessment-service/internal/config"
	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/infra/memory"
	"gifts-assessment-service/internal/infra/sqlite"
	"gifts-assessment-service/internal/insight"
	"gifts-assessment-service/internal/logger"
	transport "gifts-assessment-service/internal/transport/http"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var scaleLabels = map[string][]string{
	"en": {"Never true of me", "Rarely true of me", "Sometimes true of me", "Always true of me"},
	"pt": {"Nunca", "Raramente", "Às vezes", "Sempre"},
}

type assessOptions struct {
	locale     string
	perGift    int
	identity   string
	token      string
	regenerate bool
}

// NewAssessCmd runs the assessment interactively in the terminal. Progress is
// kept in a local SQLite file so an interrupted assessment can be resumed.
func NewAssessCmd(configPath *string) *cobra.Command {
	opts := assessOptions{
		identity: os.Getenv("GIFTS_IDENTITY"),
		token:    os.Getenv("GIFTS_TOKEN"),
	}
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Take the gifts assessment in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			// The console logger would interleave with the prompts.
			return runAssess(cmd.Context(), cfg, opts, cmd.OutOrStdout(), logger.Nop())
		},
	}
	cmd.Flags().StringVar(&opts.locale, "locale", "", "question and result language (en, pt)")
	cmd.Flags().IntVar(&opts.perGift, "per-gift", 0, "questions per gift")
	cmd.Flags().StringVar(&opts.identity, "identity", opts.identity, "identity used for cached insights")
	cmd.Flags().StringVar(&opts.token, "token", opts.token, "bearer token for the insight server")
	cmd.Flags().BoolVar(&opts.regenerate, "regenerate", false, "ignore cached insights")
	return cmd
}

func runAssess(ctx context.Context, cfg config.Config, opts assessOptions, out io.Writer, log *logger.Logger) error {
	if opts.locale == "" {
		opts.locale = cfg.Quiz.Locale
	}
	if opts.perGift == 0 {
		opts.perGift = cfg.Quiz.QuestionsPerGift
	}

	store, err := sqlite.Open(cfg.Quiz.StatePath)
	if err != nil {
		return err
	}
	defer store.Close()
	manager := app.NewSessionStateManagerWithClock(store,
		config.TTLDuration(cfg.Quiz.StateMaxAge, app.DefaultStateMaxAge), time.Now, log)

	builtin := catalog.MustBuiltin()
	pool := app.NewQuestionPool(nil, builtin, log, nil)
	service := app.NewAssessmentService(memory.NewScoringRepository(), pool, log, nil)

	state, questions, err := resumeOrBegin(ctx, manager, pool, opts)
	if err != nil {
		return err
	}

	// A resumed assessment keeps the language it was started in.
	locale := sessionLocale(state, opts.locale)
	labels := scaleLabels[locale]
	if labels == nil {
		labels = scaleLabels[domain.DefaultLocale]
	}
	progress := color.New(color.FgHiBlack).SprintfFunc()
	for i, q := range questions {
		if _, done := state.Answers[q.ID]; done {
			continue
		}
		prompt := promptui.Select{
			Label: fmt.Sprintf("%s %s", progress("[%d/%d]", i+1, len(questions)), q.Prompt),
			Items: labels,
			Size:  len(labels),
		}
		score, _, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			color.New(color.FgYellow).Fprintln(out, "Progress saved. Run assess again to continue.")
			return nil
		}
		if err != nil {
			return err
		}
		state, err = manager.RecordAnswer(ctx, state, q.ID, score)
		if err != nil {
			log.Warn("saving progress failed", "error", err)
		}
	}

	scores := service.ScoreLocal(ctx, state.Answers, questions)
	if err := manager.Clear(ctx); err != nil {
		log.Warn("clearing saved progress failed", "error", err)
	}

	tables := insight.MustBuiltinTables()
	analyzerOpts := []insight.Option{insight.WithCache(memory.NewAnalysisCache(cfg.Insight.CacheSize, time.Hour))}
	if cfg.Insight.ServerURL != "" {
		analyzerOpts = append(analyzerOpts, insight.WithServerTier(
			transport.NewRemoteTier(cfg.Insight.ServerURL, config.TTLDuration(cfg.Insight.ServerTimeout, 45*time.Second))))
	}
	if completer := insight.SelectCompleter(providerConfigs(cfg), log); completer != nil {
		analyzerOpts = append(analyzerOpts, insight.WithCompleter(completer))
	}
	analyzer := insight.NewAnalyzer(tables, insightOptions(cfg), log, analyzerOpts...)

	color.New(color.FgCyan).Fprintln(out, "Analyzing your results...")
	result, err := analyzer.Analyze(ctx, insight.AnalysisRequest{
		Scores:     scores,
		Identity:   opts.identity,
		Token:      opts.token,
		Locale:     locale,
		Regenerate: opts.regenerate,
	})
	if err != nil {
		return err
	}
	renderResult(out, tables, result)
	return nil
}

// resumeOrBegin offers to resume saved progress and otherwise starts a new quiz.
func resumeOrBegin(ctx context.Context, manager *app.SessionStateManager, pool *app.QuestionPool, opts assessOptions) (domain.AssessmentState, []domain.Question, error) {
	if saved, ok := manager.Restore(ctx); ok {
		questions := app.ResolveOrder(pool.Catalog(ctx), saved.QuestionOrder, saved.Locale)
		prompt := promptui.Select{
			Label: fmt.Sprintf("Saved assessment found (%d of %d answered)", len(saved.Answers), len(saved.QuestionOrder)),
			Items: []string{"Resume", "Start over"},
		}
		choice, _, err := prompt.Run()
		if err != nil {
			return domain.AssessmentState{}, nil, err
		}
		if choice == 0 && len(questions) > 0 {
			return saved, questions, nil
		}
		if err := manager.Clear(ctx); err != nil {
			return domain.AssessmentState{}, nil, err
		}
	}

	id := uuid.NewString()
	questions, err := app.NewGenerator(pool).Generate(ctx, id, opts.perGift, opts.locale)
	if err != nil {
		return domain.AssessmentState{}, nil, err
	}
	state := manager.Begin(id, opts.locale, app.QuestionIDs(questions))
	if err := manager.Persist(ctx, state); err != nil {
		return domain.AssessmentState{}, nil, err
	}
	return state, questions, nil
}

func sessionLocale(state domain.AssessmentState, fallback string) string {
	if state.Locale != "" {
		return state.Locale
	}
	return fallback
}

func renderResult(w io.Writer, tables *insight.Tables, r domain.AnalysisResult) {
	title := color.New(color.FgCyan, color.Bold)
	strong := color.New(color.Bold)
	faint := color.New(color.FgHiBlack)

	title.Fprintln(w, "\nYour gifts")
	for i, s := range r.Ranked {
		marker := "  "
		if i < len(r.TopGifts) {
			marker = "* "
		}
		fmt.Fprintf(w, "%s%-22s %s %5.1f%%\n", marker, tables.GiftName(s.Gift, r.Locale), bar(s.Percentage, 20), s.Percentage)
	}

	if len(r.Compatibilities) > 0 {
		title.Fprintf(w, "\nCompatibility (overall %.0f)\n", r.OverallCompatibility)
		for _, p := range r.Compatibilities {
			fmt.Fprintf(w, "  %s + %s: %d\n", tables.GiftName(p.Primary, r.Locale), tables.GiftName(p.Secondary, r.Locale), p.Score)
		}
		if r.Synergy != "" {
			fmt.Fprintf(w, "  %s\n", r.Synergy)
		}
	}

	if len(r.Ministries) > 0 {
		title.Fprintln(w, "\nMinistries")
		for _, m := range r.Ministries {
			strong.Fprintf(w, "  %s (%d)\n", m.Name, m.Score)
			if m.Description != "" {
				fmt.Fprintf(w, "    %s\n", m.Description)
			}
		}
	}

	n := r.Narrative
	title.Fprintln(w, "\nInsights")
	section(w, strong, "", n.PersonalizedInsights)
	section(w, strong, "Strengths", n.StrengthsDescription)
	section(w, strong, "Challenges", n.ChallengesGuidance)
	section(w, strong, "Development", n.DevelopmentPlan)
	if len(n.PracticalApplications) > 0 {
		strong.Fprintln(w, "  Practical applications")
		for _, a := range n.PracticalApplications {
			fmt.Fprintf(w, "    - %s\n", a)
		}
	}
	faint.Fprintf(w, "\nsource: %s, confidence %d%%\n", r.Tier, r.Confidence)
}

func section(w io.Writer, heading *color.Color, name, text string) {
	if text == "" {
		return
	}
	if name != "" {
		heading.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintf(w, "    %s\n", text)
}

func bar(pct float64, width int) string {
	filled := int(pct/100*float64(width) + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
