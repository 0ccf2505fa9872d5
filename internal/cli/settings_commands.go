package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"baduanjin-watch/internal/settings"
)

func runSettings(args []string) error {
	if len(args) == 0 {
		printSettingsUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runSettingsShow(args[1:])
	case "set":
		return runSettingsSet(args[1:])
	case "help", "-h", "--help":
		printSettingsUsage()
		return nil
	default:
		printSettingsUsage()
		return fmt.Errorf("unknown settings subcommand %q", args[0])
	}
}

func runSettingsShow(args []string) error {
	fs := flag.NewFlagSet("settings show", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"path":     settings.Path(env.dir),
			"settings": env.cfg,
		})
	}

	fmt.Printf("path: %s\n", settings.Path(env.dir))
	fmt.Printf("server_url: %s\n", defaultIfEmpty(env.cfg.ServerURL, "(not set)"))
	fmt.Printf("poll_interval_seconds: %d\n", env.cfg.PollIntervalSeconds)
	fmt.Printf("analysis_timeout_minutes: %d\n", env.cfg.AnalysisTimeoutMinutes)
	fmt.Printf("conversion_timeout_minutes: %d\n", env.cfg.ConversionTimeoutMinutes)
	return nil
}

func runSettingsSet(args []string) error {
	fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
	server := fs.String("server", "", "default backend base URL (empty keeps current)")
	pollInterval := fs.Int("poll-interval-seconds", -1, "seconds between status checks (>=1, -1 keeps current)")
	analysisTimeout := fs.Int("analysis-timeout-minutes", -1, "poll budget for analysis jobs (>=1, -1 keeps current)")
	conversionTimeout := fs.Int("conversion-timeout-minutes", -1, "poll budget for conversion jobs (>=1, -1 keeps current)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}
	cfg := env.cfg

	if strings.TrimSpace(*server) != "" {
		cfg.ServerURL = strings.TrimSpace(*server)
	}
	if *pollInterval != -1 {
		if *pollInterval <= 0 {
			return errors.New("--poll-interval-seconds must be >= 1")
		}
		cfg.PollIntervalSeconds = *pollInterval
	}
	if *analysisTimeout != -1 {
		if *analysisTimeout <= 0 {
			return errors.New("--analysis-timeout-minutes must be >= 1")
		}
		cfg.AnalysisTimeoutMinutes = *analysisTimeout
	}
	if *conversionTimeout != -1 {
		if *conversionTimeout <= 0 {
			return errors.New("--conversion-timeout-minutes must be >= 1")
		}
		cfg.ConversionTimeoutMinutes = *conversionTimeout
	}

	if err := settings.Save(env.dir, cfg); err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(cfg)
	}

	fmt.Printf("updated settings in %s\n", settings.Path(env.dir))
	fmt.Printf("server_url: %s\n", defaultIfEmpty(cfg.ServerURL, "(not set)"))
	fmt.Printf("poll_interval_seconds: %d\n", cfg.PollIntervalSeconds)
	fmt.Printf("analysis_timeout_minutes: %d\n", cfg.AnalysisTimeoutMinutes)
	fmt.Printf("conversion_timeout_minutes: %d\n", cfg.ConversionTimeoutMinutes)
	return nil
}

func printSettingsUsage() {
	fmt.Println("settings commands:")
	fmt.Println("  settings show")
	fmt.Println("  settings set [--server URL] [--poll-interval-seconds N] [--analysis-timeout-minutes N] [--conversion-timeout-minutes N]")
}
