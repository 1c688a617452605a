package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/examcoach/internal/llm"
	"github.com/pavelanni/examcoach/internal/llm/prompts"
	"github.com/pavelanni/examcoach/internal/model"
)

func main() {
	// Provider keys may live in a .env file in the working directory.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error reading .env file", "error", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examcoach",
		Short: "Exam practice with LLM essay feedback",
	}

	serve := serveCmd()
	root.AddCommand(serve, gradeCmd(), bankCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examcoach --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addGradingFlags(f *pflag.FlagSet) {
	f.String("bank", "", "Question bank file (.json, .yaml); empty uses the built-in JAE English 2025 paper")
	f.String("backend", "gemini", "Grading backend (gemini, openai)")
	f.String("gemini-url", "https://generativelanguage.googleapis.com/v1beta", "Gemini REST API base URL")
	f.String("gemini-key", "", "Gemini API key (or set EXAMCOACH_GEMINI_KEY)")
	f.String("gemini-model", "gemini-2.5-flash", "Gemini model name")
	f.String("openai-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("openai-key", "", "API key for the OpenAI-compatible endpoint (or set EXAMCOACH_OPENAI_KEY)")
	f.String("openai-model", "llama3.2", "OpenAI-compatible model name")
	f.String("prompt-variant", string(prompts.PromptLadder), "Grading rubric (ladder = four feedback sections, basic = two)")
	f.Int("min-essay-chars", 5, "Minimum trimmed essay length accepted for grading")
	f.StringP("lang", "l", "en", "Language of messages and diagnostics (en, zh-Hant)")
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

	v.SetEnvPrefix("EXAMCOACH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examcoach")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examcoach")
	v.AddConfigPath("/etc/examcoach")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// examConfig reads the exam parameters shared by serve and grade.
func examConfig(v *viper.Viper) model.ExamConfig {
	variant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(variant) {
		slog.Warn("invalid prompt-variant, using ladder", "variant", variant)
		variant = string(prompts.PromptLadder)
	}
	return model.ExamConfig{
		Backend:       strings.ToLower(strings.TrimSpace(v.GetString("backend"))),
		PromptVariant: variant,
		MinEssayChars: v.GetInt("min-essay-chars"),
		RequireTopic:  v.GetBool("require-topic"),
		SettleDelay:   v.GetDuration("settle-delay"),
		ResetDelay:    v.GetDuration("reset-delay"),
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// newGrader builds the backend registry from the provider flags.
func newGrader(v *viper.Viper, cfg model.ExamConfig) (*llm.Grader, error) {
	providers := []llm.ProviderConfig{
		{Name: "gemini", URL: v.GetString("gemini-url"), Key: v.GetString("gemini-key"), Model: v.GetString("gemini-model")},
		{Name: "openai", URL: v.GetString("openai-url"), Key: v.GetString("openai-key"), Model: v.GetString("openai-model")},
	}
	registry, err := llm.NewRegistryFromConfig(providers)
	if err != nil {
		return nil, fmt.Errorf("build backends: %w", err)
	}

	b, err := registry.Get(cfg.Backend)
	if err != nil {
		slog.Warn("unknown grading backend, every grading request will report it",
			"backend", cfg.Backend, "known", registry.Names())
	} else if p, ok := b.(pinger); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// Not fatal: grading reports backend failures as diagnostics.
		if err := p.Ping(ctx); err != nil {
			slog.Warn("LLM health check failed", "backend", cfg.Backend, "error", err)
		} else {
			pc := providerFor(providers, cfg.Backend)
			slog.Info("LLM endpoint OK", "backend", cfg.Backend, "url", pc.URL, "model", pc.Model)
		}
	}

	return llm.NewGrader(registry, cfg.Backend, prompts.PromptVariant(cfg.PromptVariant)), nil
}

func providerFor(providers []llm.ProviderConfig, name string) llm.ProviderConfig {
	for _, p := range providers {
		if p.Name == name {
			return p
		}
	}
	return llm.ProviderConfig{Name: name}
}
