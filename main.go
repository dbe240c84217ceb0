// Package main provides the entry point for the callboard CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/callboard/internal/speech/engines"
	"github.com/dgnsrekt/callboard/internal/store"
	"github.com/dgnsrekt/callboard/ui"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"golang.org/x/text/language"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string

	rootCmd = &cobra.Command{
		Use:   "callboard [STORE_DIR]",
		Short: "Show and announce patient calls on a terminal board",
		Long: paragraph(
			fmt.Sprintf("\nShow patient calls on a public screen and %s the newest one.", keyword("announce")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveFilterDirs
		},
		RunE: execute,
	}
)

// settings is the validated view of the viper configuration.
type settings struct {
	Store  string
	Key    string
	Locale string
	Volume float64

	Engine         string
	PiperBinary    string
	PiperModel     string
	PiperSpeed     float64
	GTTSSlow       bool
	GTTSRate       int
	WyomingAddr    string
	WyomingVoices  map[string]string
	SpeechTimeout  time.Duration
	CacheDir       string
	CacheMaxSizeMB int
	SampleRate     int
}

func loadSettings() settings {
	return settings{
		Store:          expandPath(viper.GetString("store")),
		Key:            viper.GetString("key"),
		Locale:         viper.GetString("locale"),
		Volume:         viper.GetFloat64("volume"),
		Engine:         strings.ToLower(viper.GetString("speech.engine")),
		PiperBinary:    expandPath(viper.GetString("speech.piper.binary")),
		PiperModel:     expandPath(viper.GetString("speech.piper.model")),
		PiperSpeed:     viper.GetFloat64("speech.piper.speed"),
		GTTSSlow:       viper.GetBool("speech.gtts.slow"),
		GTTSRate:       viper.GetInt("speech.gtts.requests_per_minute"),
		WyomingAddr:    viper.GetString("speech.wyoming.endpoint"),
		WyomingVoices:  viper.GetStringMapString("speech.wyoming.voices"),
		SpeechTimeout:  viper.GetDuration("speech.timeout"),
		CacheDir:       expandPath(viper.GetString("cache.dir")),
		CacheMaxSizeMB: viper.GetInt("cache.max_size"),
		SampleRate:     viper.GetInt("audio.sample_rate"),
	}
}

func (s settings) validate() error {
	if s.Store == "" {
		return errors.New("no store directory configured")
	}
	if strings.ContainsAny(s.Key, `/\`) {
		return fmt.Errorf("invalid store key %q: must not contain path separators", s.Key)
	}
	if _, err := language.Parse(s.Locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", s.Locale, err)
	}
	if s.Volume < 0 || s.Volume > 1 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %.2f", s.Volume)
	}
	if !slices.Contains(engines.Names, s.Engine) {
		return fmt.Errorf("unknown speech engine %q (want one of %s)", s.Engine, strings.Join(engines.Names, ", "))
	}
	if s.PiperSpeed < engines.MinSpeed || s.PiperSpeed > engines.MaxSpeed {
		return fmt.Errorf("piper speed must be between %.1f and %.1f, got %.2f", engines.MinSpeed, engines.MaxSpeed, s.PiperSpeed)
	}
	if s.GTTSRate < 1 {
		return fmt.Errorf("gtts requests_per_minute must be positive, got %d", s.GTTSRate)
	}
	if s.CacheMaxSizeMB < 0 || s.CacheMaxSizeMB > 10000 {
		return fmt.Errorf("cache max_size must be between 0 and 10000 MB, got %d", s.CacheMaxSizeMB)
	}
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		return fmt.Errorf("audio sample_rate must be between 8000 and 192000 Hz, got %d", s.SampleRate)
	}
	return nil
}

func (s settings) uiConfig() (ui.Config, error) {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return ui.Config{}, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.StoreDir = s.Store
	cfg.Key = s.Key
	cfg.Locale = s.Locale
	cfg.Volume = s.Volume
	cfg.Speech = engines.Config{
		Engine:                s.Engine,
		PiperBinary:           s.PiperBinary,
		PiperModel:            s.PiperModel,
		PiperSpeed:            s.PiperSpeed,
		GTTSSlow:              s.GTTSSlow,
		GTTSRequestsPerMinute: s.GTTSRate,
		WyomingEndpoint:       s.WyomingAddr,
		WyomingVoices:         s.WyomingVoices,
		Timeout:               s.SpeechTimeout,
	}
	cfg.CacheDir = s.CacheDir
	cfg.CacheMaxSize = int64(s.CacheMaxSizeMB) << 20
	cfg.SampleRate = s.SampleRate
	return cfg, nil
}

func execute(_ *cobra.Command, args []string) error {
	if len(args) == 1 {
		viper.Set("store", args[0])
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("callboard needs a terminal to display the board")
	}

	s := loadSettings()
	if err := s.validate(); err != nil {
		return err
	}
	cfg, err := s.uiConfig()
	if err != nil {
		return err
	}
	return runTUI(cfg)
}

func runTUI(cfg ui.Config) error {
	p, cleanup, err := ui.NewProgram(cfg)
	if err != nil {
		return fmt.Errorf("unable to start board: %w", err)
	}
	defer func() {
		if err := cleanup(); err != nil {
			log.Error("cleanup failed", "error", err)
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func expandPath(path string) string {
	if path == "" {
		return path
	}
	if p, err := homedir.Expand(path); err == nil {
		path = p
	}
	return os.ExpandEnv(path)
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()
	cobra.OnInitialize(readConfigFlag)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringP("store", "d", "", "store directory (overridden by STORE_DIR)")
	rootCmd.PersistentFlags().StringP("key", "k", store.DefaultKey, "store key the calls are written to")
	rootCmd.Flags().StringP("engine", "e", "", "speech engine ("+strings.Join(engines.Names, "/")+")")
	rootCmd.Flags().StringP("locale", "l", "", "announcement locale, e.g. en-US or pt-BR")
	rootCmd.Flags().Float64("volume", 1.0, "announcement volume (0.0 to 1.0)")

	// Config bindings
	_ = viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("key", rootCmd.PersistentFlags().Lookup("key"))
	_ = viper.BindPFlag("speech.engine", rootCmd.Flags().Lookup("engine"))
	_ = viper.BindPFlag("locale", rootCmd.Flags().Lookup("locale"))
	_ = viper.BindPFlag("volume", rootCmd.Flags().Lookup("volume"))

	setDefaults()

	rootCmd.AddCommand(callCmd, configCmd, manCmd)
}

func setDefaults() {
	scope := gap.NewScope(gap.User, "callboard")
	if dir, err := scope.DataPath("store"); err == nil {
		viper.SetDefault("store", dir)
	}
	if dir, err := scope.CacheDir(); err == nil {
		viper.SetDefault("cache.dir", filepath.Join(dir, "audio"))
	}

	viper.SetDefault("key", store.DefaultKey)
	viper.SetDefault("locale", "en-US")
	viper.SetDefault("volume", 1.0)
	viper.SetDefault("cache.max_size", 100)
	viper.SetDefault("audio.sample_rate", 22050)

	viper.SetDefault("speech.engine", engines.NamePiper)
	viper.SetDefault("speech.timeout", 30*time.Second)
	viper.SetDefault("speech.piper.binary", "")
	viper.SetDefault("speech.piper.model", "")
	viper.SetDefault("speech.piper.speed", engines.DefaultSpeed)
	viper.SetDefault("speech.gtts.slow", false)
	viper.SetDefault("speech.gtts.requests_per_minute", 30)
	viper.SetDefault("speech.wyoming.endpoint", "localhost:10200")
}

// readConfigFlag loads the file given with --config, if it is not the one
// already read.
func readConfigFlag() {
	if configFile == "" || configFile == viper.ConfigFileUsed() {
		return
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		log.Warn("Could not read configuration file", "path", configFile, "err", err)
	}
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "callboard")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "callboard")}, dirs...)
	}

	if c := os.Getenv("CALLBOARD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("callboard")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("callboard")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	configFile = filepath.Join(dirs[0], "callboard.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
