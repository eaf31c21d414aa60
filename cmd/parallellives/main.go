package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Hrishap/ParallelLives/engine/assembler"
	"github.com/Hrishap/ParallelLives/engine/choice"
	"github.com/Hrishap/ParallelLives/engine/llm"
	"github.com/Hrishap/ParallelLives/engine/narrative"
	"github.com/Hrishap/ParallelLives/engine/resolve"
	"github.com/Hrishap/ParallelLives/engine/telemetry"
	"github.com/Hrishap/ParallelLives/internal/profile"
	"github.com/Hrishap/ParallelLives/internal/version"
	"github.com/Hrishap/ParallelLives/providers/cityapi"
	"github.com/Hrishap/ParallelLives/providers/imagesearch"
	"github.com/Hrishap/ParallelLives/providers/occupation"
	"github.com/Hrishap/ParallelLives/providers/openmeteo"
	"github.com/Hrishap/ParallelLives/server"
	"github.com/Hrishap/ParallelLives/store"
	"github.com/Hrishap/ParallelLives/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "parallellives",
	Short: "Explore alternate life paths as a branching tree of narrated, scored scenarios.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is a convenience for direct binary execution; service managers
		// inject environment themselves.
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			panic(err)
		}

		setupLogger(instanceProfile)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			return
		}
		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			return
		}
		defer func() { _ = storeInstance.Close() }() //nolint:errcheck // cleanup

		exporter := telemetry.NewExporter(telemetry.DefaultConfig())
		asm := buildAssembler(instanceProfile, storeInstance, exporter)
		s := server.New(instanceProfile, storeInstance, asm, exporter)

		c := make(chan os.Signal, 1)
		signal.Notify(c, terminationSignals...)
		go func() {
			<-c
			slog.Info("shutting down")
			if err := s.Shutdown(context.Background()); err != nil {
				slog.Error("failed to shut down server", "error", err)
			}
			cancel()
		}()

		printGreetings(instanceProfile)
		if err := s.Start(ctx); err != nil {
			slog.Error("server stopped", "error", err)
			cancel()
		}
		<-ctx.Done()
	},
}

// buildAssembler wires the generation pipeline from the profile. Every
// collaborator is optional: a missing configuration leaves that provider nil
// and the resolver substitutes its documented fallback.
func buildAssembler(p *profile.Profile, st *store.Store, exporter *telemetry.Exporter) *assembler.Assembler {
	var llmService llm.Service
	if p.IsAIEnabled() {
		svc, err := llm.NewService(&llm.Config{
			Provider: p.LLMProvider,
			Model:    p.LLMModel,
			APIKey:   p.LLMAPIKey,
			BaseURL:  p.LLMBaseURL,
			Timeout:  p.LLMTimeout,
		})
		if err != nil {
			slog.Warn("failed to initialize LLM service, narratives will use the fallback template", "error", err)
		} else {
			llmService = svc
			slog.Info("LLM service initialized", "provider", p.LLMProvider, "model", p.LLMModel)
		}
	} else {
		slog.Info("no LLM API key configured, narratives will use the fallback template")
	}

	var classifier choice.Classifier
	var generator narrative.Generator
	if llmService != nil {
		classifier = choice.NewLLMClassifier(llmService)
		generator = narrative.NewLLMGenerator(llmService)
	}

	var location resolve.LocationMetricsProvider
	if p.CityAPIBaseURL != "" {
		location = cityapi.NewClient(p.CityAPIBaseURL)
	}
	var images resolve.ImageProvider
	if p.ImageAPIKey != "" {
		images = imagesearch.NewClient(p.ImageAPIBaseURL, p.ImageAPIKey)
	}
	climate := openmeteo.NewClient(p.GeoAPIBaseURL, p.ClimateAPIBaseURL)

	resolver := resolve.New(
		location,
		climate,
		occupation.NewCatalog(),
		images,
		resolve.Defaults{
			City:       p.DefaultCity,
			Country:    p.DefaultCountry,
			Occupation: p.DefaultOccupation,
		},
		exporter,
	)

	return assembler.New(
		st,
		choice.NewNormalizer(classifier),
		resolver,
		narrative.NewCoordinator(generator),
		exporter,
	)
}

func setupLogger(p *profile.Profile) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28090)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28090, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("pl")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("ParallelLives %s started\n", p.Version)
	fmt.Printf("Mode: %s\n", p.Mode)
	fmt.Printf("Database driver: %s\n", p.Driver)
	fmt.Printf("Data directory: %s\n", p.Data)
	if p.Addr == "" {
		fmt.Printf("API available at http://localhost:%d/api/v1\n", p.Port)
	} else {
		fmt.Printf("API available at http://%s:%d/api/v1\n", p.Addr, p.Port)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
