package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/lessonword/internal/handler"
	appI18n "github.com/pavelanni/lessonword/internal/i18n"
	"github.com/pavelanni/lessonword/internal/lesson"
	"github.com/pavelanni/lessonword/internal/model"
	"github.com/pavelanni/lessonword/internal/render"
	"github.com/pavelanni/lessonword/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lessonword",
		Short: "Convert Lesson pages to and from editable XHTML documents",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), importCmd(), loadCmd(), lessonsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `lessonword --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// commonFlags registers the database, conversion and logging flags every
// command shares.
func commonFlags(f *pflag.FlagSet) {
	f.String("db", "lessonword.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Label language (en, ru, ar)")
	f.String("image-handling", string(model.ImagesReferenced), "Image handling (embedded, referenced)")
	f.String("image-dir", ".", "Base directory for images embedded into exported documents")
	f.String("plugin-name", "lessonword", "Plugin name passed to the renderer")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP conversion server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	commonFlags(f)
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /lessonword)")
	f.StringSlice("cors-origins", nil, "Allowed CORS origins (repeatable)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a lesson as an XHTML document",
		RunE:  runExport,
	}
	f := cmd.Flags()
	commonFlags(f)
	f.Int64("lesson", 0, "Lesson ID (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.Bool("strict", false, "Fail when any page could not be exported")
	_ = cmd.MarkFlagRequired("lesson")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an edited XHTML document into a lesson",
		RunE:  runImport,
	}
	f := cmd.Flags()
	commonFlags(f)
	f.Int64("lesson", 0, "Lesson ID (required)")
	f.StringP("input", "i", "-", "Input file path (- for stdin)")
	f.Bool("replace", false, "Replace the lesson's pages instead of appending")
	f.Bool("strict", false, "Fail when any page could not be imported")
	_ = cmd.MarkFlagRequired("lesson")
	return cmd
}

func loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [files...]",
		Short: "Load pages from JSON files into a lesson",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runLoad,
	}
	f := cmd.Flags()
	commonFlags(f)
	f.Int64("lesson", 0, "Lesson ID (0 creates a new lesson named by --name)")
	f.String("name", "Imported lesson", "Name of the lesson created when --lesson is 0")
	f.Bool("replace", false, "Reload changed files, replacing the lesson's pages")
	return cmd
}

func lessonsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lessons",
		Short: "List stored lessons as JSON",
		RunE:  runLessons,
	}
	commonFlags(cmd.Flags())
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("LESSONWORD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("lessonword")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/lessonword")
	v.AddConfigPath("/etc/lessonword")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// app is what every command needs once flags are read.
type app struct {
	db       *store.Store
	renderer *render.Renderer
	lessons  *lesson.Service
	cfg      model.ConvertConfig
}

func openApp(cmd *cobra.Command) (*app, *viper.Viper, error) {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cfg := model.ConvertConfig{
		Lang:          v.GetString("lang"),
		ImageHandling: model.ImageHandling(strings.ToLower(v.GetString("image-handling"))),
		ImageDir:      v.GetString("image-dir"),
		PluginName:    v.GetString("plugin-name"),
	}
	switch cfg.ImageHandling {
	case model.ImagesEmbedded, model.ImagesReferenced:
	default:
		slog.Warn("invalid image-handling, using referenced", "value", cfg.ImageHandling)
		cfg.ImageHandling = model.ImagesReferenced
	}

	if err := appI18n.Init(cfg.Lang); err != nil {
		return nil, nil, fmt.Errorf("init i18n: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	ropts := []render.Option{render.WithLogger(slog.Default())}
	if cfg.ImageHandling == model.ImagesEmbedded {
		ropts = append(ropts, render.WithImages(os.DirFS(cfg.ImageDir)))
	}
	r := render.New(ropts...)

	return &app{
		db:       db,
		renderer: r,
		lessons:  lesson.New(db, r, cfg, lesson.WithLogger(slog.Default())),
		cfg:      cfg,
	}, v, nil
}

// cliContext carries a localizer for the configured language so CLI
// summaries are translated like HTTP responses.
func cliContext(lang string) context.Context {
	return appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, v, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.db.Close()

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	h := handler.New(a.db, a.lessons, a.renderer)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if origins := v.GetStringSlice("cors-origins"); len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept-Language", "Content-Type"},
			ExposedHeaders:   []string{"Content-Language", "Content-Disposition", "X-Run-Id", "X-Pages-Failed"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(appI18n.Middleware(a.cfg.Lang))

	if basePath != "" {
		r.Route(basePath, h.Routes)
	} else {
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"lang", a.cfg.Lang,
		"image_handling", a.cfg.ImageHandling,
		"base_path", basePath,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, v, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.db.Close()

	ctx := cliContext(a.cfg.Lang)
	rep, err := a.lessons.ExportLesson(ctx, v.GetInt64("lesson"))
	if err != nil {
		return fmt.Errorf("export lesson: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := io.WriteString(w, rep.Markup); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	fmt.Fprintln(os.Stderr, appI18n.Tp(ctx, "PagesExported", rep.Pages))
	return reportFailures(ctx, rep.Failures, v.GetBool("strict"), rep.Err())
}

func runImport(cmd *cobra.Command, _ []string) error {
	a, v, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.db.Close()

	inPath := v.GetString("input")
	var data []byte
	if inPath == "" || inPath == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(inPath)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	ctx := cliContext(a.cfg.Lang)
	rep, err := a.lessons.ImportLesson(ctx, v.GetInt64("lesson"), string(data), v.GetBool("replace"))
	if err != nil {
		return fmt.Errorf("import lesson: %w", err)
	}
	fmt.Fprintln(os.Stderr, appI18n.Tp(ctx, "PagesImported", rep.Imported))
	return reportFailures(ctx, rep.Failures, v.GetBool("strict"), rep.Err())
}

func reportFailures(ctx context.Context, failures []lesson.Failure, strict bool, err error) error {
	if len(failures) == 0 {
		return nil
	}
	fmt.Fprintln(os.Stderr, appI18n.Tp(ctx, "PagesFailed", len(failures)))
	for _, f := range failures {
		slog.Warn("page skipped", "page_id", f.PageID, "title", f.Title, "error", f.Error)
	}
	if strict {
		return err
	}
	return nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	a, v, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.db.Close()

	lessonID := v.GetInt64("lesson")
	if lessonID == 0 {
		lessonID, err = a.db.CreateLesson(v.GetString("name"))
		if err != nil {
			return fmt.Errorf("create lesson: %w", err)
		}
		slog.Info("created lesson", "lesson_id", lessonID, "name", v.GetString("name"))
	}

	ctx := cliContext(a.cfg.Lang)
	for _, path := range args {
		rep, err := a.lessons.LoadQuestions(ctx, lessonID, path, v.GetBool("replace"))
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		if rep.Skipped {
			fmt.Fprintln(os.Stderr, path+": "+appI18n.T(ctx, "QuestionsUnchanged"))
			continue
		}
		fmt.Fprintln(os.Stderr, path+": "+appI18n.Tp(ctx, "QuestionsLoaded", rep.Loaded))
	}
	return nil
}

func runLessons(cmd *cobra.Command, _ []string) error {
	a, _, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.db.Close()

	lessons, err := a.db.ListLessons()
	if err != nil {
		return fmt.Errorf("list lessons: %w", err)
	}
	if lessons == nil {
		lessons = []model.Lesson{}
	}
	data, err := json.MarshalIndent(lessons, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}
