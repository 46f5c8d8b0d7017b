// Package main provides the entry point for the phrasecast CLI: it
// turns a phrase script into a single mixed audio track, synthesized
// phrase by phrase with caching, background mixing, fades and WAV/MP3
// export.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/phrasecast/phrasecast/pkg/cache"
	"github.com/phrasecast/phrasecast/pkg/config"
	"github.com/phrasecast/phrasecast/pkg/engines"
	"github.com/phrasecast/phrasecast/pkg/mp3"
	"github.com/phrasecast/phrasecast/pkg/phrase"
	"github.com/phrasecast/phrasecast/pkg/pipeline"
	"github.com/phrasecast/phrasecast/pkg/player"
)

var (
	// Version as provided by goreleaser.
	Version = ""

	debug bool

	inputFile      string
	outputFile     string
	outputFormat   string
	bitrate        int
	engineName     string
	voice          string
	model          string
	speed          float64
	backgroundFile string
	fadeInMs       int
	fadeOutMs      int
	attenuationDB  float64
	noCache        bool
	configStdout   bool

	rootCmd = &cobra.Command{
		Use:          "phrasecast",
		Short:        "Turn a phrase script into a narrated audio track",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, pipeline.ErrCancelled) || errors.Is(err, mp3.ErrCancelled) {
			fmt.Fprintln(os.Stderr, "cancelled")
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	generateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "phrase script file (required)")
	generateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output audio file (required)")
	generateCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format: wav or mp3 (default from config)")
	generateCmd.Flags().IntVar(&bitrate, "bitrate", 0, "MP3 bitrate in kbps: 128, 192, 256 or 320")
	generateCmd.Flags().StringVarP(&engineName, "engine", "e", "", "TTS engine: openai or elevenlabs")
	generateCmd.Flags().StringVar(&voice, "voice", "", "voice id")
	generateCmd.Flags().StringVar(&model, "model", "", "synthesis model")
	generateCmd.Flags().Float64Var(&speed, "speed", 0, "speech speed multiplier")
	generateCmd.Flags().StringVarP(&backgroundFile, "background", "b", "", "background audio file to loop under the track")
	generateCmd.Flags().IntVar(&fadeInMs, "fade-in", -1, "fade-in length in milliseconds")
	generateCmd.Flags().IntVar(&fadeOutMs, "fade-out", -1, "fade-out length in milliseconds")
	generateCmd.Flags().Float64Var(&attenuationDB, "attenuation", 0, "background attenuation in dB (typically negative)")
	generateCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the speech cache")
	_ = generateCmd.MarkFlagRequired("input")
	_ = generateCmd.MarkFlagRequired("output")

	playCmd.Flags().StringVarP(&inputFile, "input", "i", "", "phrase script file (required)")
	playCmd.Flags().StringVarP(&engineName, "engine", "e", "", "TTS engine: system, openai or elevenlabs")
	playCmd.Flags().StringVar(&voice, "voice", "", "voice id")
	playCmd.Flags().Float64Var(&speed, "speed", 0, "speech speed multiplier")
	_ = playCmd.MarkFlagRequired("input")

	voicesCmd.Flags().StringVarP(&engineName, "engine", "e", "", "TTS engine to query")

	configInitCmd.Flags().BoolVar(&configStdout, "stdout", false, "print the example config instead of writing it")

	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd, cacheClearCmd)
	rootCmd.AddCommand(generateCmd, playCmd, voicesCmd, cacheCmd, configInitCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an audio track from a phrase script",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)

		if cfg.Engine == "system" {
			return fmt.Errorf("the system engine is playback-only and cannot export audio; use 'phrasecast play'")
		}

		phrases, err := readPhrases(inputFile)
		if err != nil {
			return err
		}

		var background []byte
		if backgroundFile != "" {
			background, err = os.ReadFile(backgroundFile)
			if err != nil {
				return fmt.Errorf("read background audio: %w", err)
			}
		}

		engine, err := newEngine(cfg.Engine)
		if err != nil {
			return err
		}
		store := openCache(cfg)
		if store != nil {
			defer store.Close()
		}

		program, err := pipeline.New(engine, store).Run(
			cmd.Context(), phrases, synthesisOptions(cfg), background,
			pipeline.Config{
				FadeInMs:                cfg.Mix.FadeInMs,
				FadeOutMs:               cfg.Mix.FadeOutMs,
				BackgroundAttenuationDB: cfg.Mix.BackgroundAttenuationDB,
			},
			func(percent int, message string) {
				fmt.Fprintf(os.Stderr, "\r[%3d%%] %-40s", percent, message)
			},
		)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}

		data, err := pipeline.Export(cmd.Context(), program, cfg.Output.Format, cfg.Output.BitrateKbps,
			func(percent int) {
				fmt.Fprintf(os.Stderr, "\rEncoding: %3d%%", percent)
			})
		if cfg.Output.Format == pipeline.FormatMP3 {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return err
		}

		if err := os.WriteFile(outputFile, data, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		log.Info("track written", "path", outputFile, "bytes", len(data),
			"duration", fmt.Sprintf("%.2fs", program.Duration()))
		return nil
	},
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a phrase script aloud",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)

		phrases, err := readPhrases(inputFile)
		if err != nil {
			return err
		}
		opts := synthesisOptions(cfg)

		if cfg.Engine == "system" {
			speaker, err := engines.NewSystemEngine()
			if err != nil {
				return err
			}
			return pipeline.PlayProgram(cmd.Context(), speaker, phrases, opts)
		}

		engine, err := newEngine(cfg.Engine)
		if err != nil {
			return err
		}
		store := openCache(cfg)
		if store != nil {
			defer store.Close()
		}

		program, err := pipeline.New(engine, store).Run(cmd.Context(), phrases, opts, nil,
			pipeline.Config{
				FadeInMs:                cfg.Mix.FadeInMs,
				FadeOutMs:               cfg.Mix.FadeOutMs,
				BackgroundAttenuationDB: cfg.Mix.BackgroundAttenuationDB,
			}, nil)
		if err != nil {
			return err
		}

		pl, err := player.New(program.SampleRate)
		if err != nil {
			return fmt.Errorf("initialize playback: %w", err)
		}
		defer pl.Close()
		for band, gain := range []float64{cfg.EQ.LowDB, cfg.EQ.MidDB, cfg.EQ.HighDB} {
			if gain != 0 {
				if err := pl.SetBandGain(band, gain); err != nil {
					log.Warn("ignoring EQ setting", "band", band, "error", err)
				}
			}
		}
		return pl.Play(program)
	},
}

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List voices available on an engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if engineName != "" {
			cfg.Engine = engineName
		}

		engine, err := newEngine(cfg.Engine)
		if err != nil {
			return err
		}
		caps := engine.Capabilities(cmd.Context())
		if !caps.ExportsAudio {
			fmt.Printf("%s is playback-only\n", engine.Name())
			return nil
		}

		fmt.Printf("Engine: %s\n", engine.Name())
		if len(caps.Models) > 0 {
			fmt.Printf("Models: %s\n", strings.Join(caps.Models, ", "))
		}
		for _, v := range caps.Voices {
			fmt.Printf("  %-24s %s\n", v.ID, v.Name)
		}
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the speech cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(store *cache.Store) error {
			stats, err := store.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("Entries: %d\nTotal size: %.2f MB\n", stats.Count,
				float64(stats.TotalSizeBytes)/1024/1024)
			for _, e := range stats.Entries {
				fmt.Printf("  %s  %-10s %8d bytes  %s\n",
					e.Key, e.Engine, e.SizeBytes, e.Text)
			}
			return nil
		})
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Evict oldest entries until the cache is under its size cap",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(store *cache.Store) error {
			return store.Prune(cache.DefaultPruneTarget)
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached speech",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(func(store *cache.Store) error {
			return store.Clear()
		})
	},
}

var configInitCmd = &cobra.Command{
	Use:   "config-init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configStdout {
			fmt.Print(config.Example())
			return nil
		}

		path, err := config.DefaultUserPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s", path)
		}
		if err := config.Save(config.Default(), path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

// readPhrases loads and parses the phrase script.
func readPhrases(path string) ([]phrase.Phrase, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phrase file: %w", err)
	}
	return phrase.Parse(string(content))
}

// newEngine builds a byte-producing engine with credentials from the
// environment.
func newEngine(name string) (engines.Engine, error) {
	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, err
	}
	switch name {
	case "openai":
		return engines.NewOpenAIEngine(creds.OpenAIKey), nil
	case "elevenlabs":
		return engines.NewElevenLabsEngine(creds.ElevenLabsKey), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (valid: openai, elevenlabs, system)", name)
	}
}

// openCache opens the configured cache store, degrading to no cache on
// failure.
func openCache(cfg *config.Config) *cache.Store {
	if !cfg.Cache.Enabled || noCache {
		return nil
	}
	store, err := cache.Open(cfg.Cache.Path, int64(cfg.Cache.MaxSizeMB)*1024*1024)
	if err != nil {
		log.Warn("speech cache unavailable, continuing without it", "error", err)
		return nil
	}
	if err := store.Prune(cache.DefaultPruneTarget); err != nil {
		log.Warn("cache prune failed", "error", err)
	}
	return store
}

// withCache runs fn against the configured cache store.
func withCache(fn func(*cache.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := cache.Open(cfg.Cache.Path, int64(cfg.Cache.MaxSizeMB)*1024*1024)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// applyFlags overlays command-line flags onto loaded config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if engineName != "" {
		cfg.Engine = engineName
	}
	if voice != "" {
		cfg.Synthesis.Voice = voice
	}
	if model != "" {
		cfg.Synthesis.Model = model
	}
	if speed > 0 {
		cfg.Synthesis.Speed = speed
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
	}
	if bitrate > 0 {
		cfg.Output.BitrateKbps = bitrate
	}
	if fadeInMs >= 0 {
		cfg.Mix.FadeInMs = fadeInMs
	}
	if fadeOutMs >= 0 {
		cfg.Mix.FadeOutMs = fadeOutMs
	}
	if cmd.Flags().Changed("attenuation") {
		cfg.Mix.BackgroundAttenuationDB = attenuationDB
	}
}

// synthesisOptions maps config onto engine options.
func synthesisOptions(cfg *config.Config) engines.Options {
	return engines.Options{
		Voice: cfg.Synthesis.Voice,
		Model: cfg.Synthesis.Model,
		Speed: cfg.Synthesis.Speed,
		Pitch: cfg.Synthesis.Pitch,
	}
}
