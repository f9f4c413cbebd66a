package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/istorica/mentorai/internal/gateway"
	"github.com/istorica/mentorai/internal/handler"
	appI18n "github.com/istorica/mentorai/internal/i18n"
	"github.com/istorica/mentorai/internal/model"
	"github.com/istorica/mentorai/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mentorai",
		Short: "AI history mentor backend for Romanian and Russian students",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `mentorai --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "mentorai.db", "SQLite database path")
	f.StringP("lang", "l", "ro", "Default message language (ro, ru)")
	f.String("deepseek-url", "https://api.deepseek.com", "DeepSeek API base URL")
	f.String("deepseek-key", "", "DeepSeek API key (or set MENTORAI_DEEPSEEK_KEY)")
	f.String("deepseek-model", "deepseek-chat", "DeepSeek chat model name")
	f.String("deepseek-reasoner-model", "deepseek-reasoner", "DeepSeek reasoning model name")
	f.String("mistral-url", "https://api.mistral.ai/v1", "Mistral API base URL")
	f.String("mistral-key", "", "Mistral API key (or set MENTORAI_MISTRAL_KEY)")
	f.String("mistral-model", "mistral-medium", "Mistral model name")
	f.String("teacher-password", "", "Initial teacher password (or set MENTORAI_TEACHER_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export quiz results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "mentorai.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
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

	v.SetEnvPrefix("MENTORAI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("mentorai")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/mentorai")
	v.AddConfigPath("/etc/mentorai")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed the initial teacher account if no users exist.
	if err := seedTeacher(db, v.GetString("teacher-password")); err != nil {
		return fmt.Errorf("seed teacher: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	if v.GetString("deepseek-key") == "" {
		slog.Warn("DeepSeek API key not set, chat requests will fail over to Mistral")
	}
	if v.GetString("mistral-key") == "" {
		slog.Warn("Mistral API key not set, failover and backup mode are unavailable")
	}

	g := gateway.New(gateway.Config{
		DeepSeekBaseURL:       v.GetString("deepseek-url"),
		DeepSeekAPIKey:        v.GetString("deepseek-key"),
		DeepSeekChatModel:     v.GetString("deepseek-model"),
		DeepSeekReasonerModel: v.GetString("deepseek-reasoner-model"),
		MistralBaseURL:        v.GetString("mistral-url"),
		MistralAPIKey:         v.GetString("mistral-key"),
		MistralModel:          v.GetString("mistral-model"),
	})

	h := handler.New(db, g)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"lang", lang,
		"deepseek_url", v.GetString("deepseek-url"),
		"deepseek_model", v.GetString("deepseek-model"),
		"mistral_url", v.GetString("mistral-url"),
		"mistral_model", v.GetString("mistral-model"),
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	students, err := db.ExportAllQuizzes()
	if err != nil {
		return fmt.Errorf("export quizzes: %w", err)
	}

	export := model.QuizExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Students:   students,
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
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

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func seedTeacher(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("teacher password is required: set --teacher-password flag or MENTORAI_TEACHER_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash teacher password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "profesor",
		FullName:     "Profesor",
		PasswordHash: string(hash),
		Role:         model.UserRoleTeacher,
		Status:       model.UserActive,
	})
	if err != nil {
		return fmt.Errorf("create teacher user: %w", err)
	}

	slog.Info("seeded default teacher account", "username", "profesor")
	return nil
}
