// Command jsrun executes one script through the sandbox and prints its
// settled value and console output.
//
//	jsrun [-bridge embedder|local] [-timeout 5s] [-json] [-config profile.yaml] script.js
//
// With no script argument, or "-", the script is read from stdin.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"

	"github.com/GriffinCanCode/jsruntime/internal/infrastructure/logging"
	"github.com/GriffinCanCode/jsruntime/internal/sandbox"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// profile is the YAML form of the runtime settings. Flags given explicitly
// win over the file.
type profile struct {
	Bridge        string        `yaml:"bridge"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxCallStack  int           `yaml:"max_call_stack"`
	MaxTasks      int           `yaml:"max_tasks"`
	EnableConsole *bool         `yaml:"console"`
	EnableTimers  *bool         `yaml:"timers"`
	LogLevel      string        `yaml:"log_level"`
}

func (p profile) apply(cfg *sandbox.Config) {
	if p.Bridge != "" {
		cfg.ContextBridge = p.Bridge
	}
	if p.Timeout > 0 {
		cfg.Timeout = p.Timeout
	}
	if p.MaxCallStack > 0 {
		cfg.MaxCallStackSize = p.MaxCallStack
	}
	if p.MaxTasks > 0 {
		cfg.MaxTasks = p.MaxTasks
	}
	if p.EnableConsole != nil {
		cfg.EnableConsole = *p.EnableConsole
	}
	if p.EnableTimers != nil {
		cfg.EnableTimers = *p.EnableTimers
	}
}

func loadProfile(path string) (profile, error) {
	var p profile
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse config %s: %w", path, err)
	}
	return p, nil
}

type output struct {
	ExecutionID string             `json:"execution_id"`
	Value       interface{}        `json:"value"`
	Console     []sandbox.LogEntry `json:"console"`
	Tasks       int                `json:"tasks"`
	DurationMs  float64            `json:"duration_ms"`
	Error       string             `json:"error,omitempty"`
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("jsrun", flag.ContinueOnError)
	fs.SetOutput(stderr)
	bridge := fs.String("bridge", "", "context bridge: embedder or local")
	timeout := fs.Duration("timeout", 0, "execution timeout, event loop included")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	configPath := fs.String("config", "", "YAML runtime profile")
	verbose := fs.Bool("v", false, "debug logging to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := sandbox.DefaultConfig()
	logLevel := "error"
	if *configPath != "" {
		p, err := loadProfile(*configPath)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		p.apply(&cfg)
		if p.LogLevel != "" {
			logLevel = p.LogLevel
		}
	}
	if *bridge != "" {
		cfg.ContextBridge = *bridge
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *verbose {
		logLevel = "debug"
	}

	script, err := readScript(fs.Arg(0), stdin)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	logCfg := logging.DevelopmentConfig()
	logCfg.Level = logLevel
	logCfg.Fields = map[string]string{"cli": "jsrun"}
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer logger.Sync()

	rt, err := sandbox.New(cfg, sandbox.WithLogger(logger.Component("sandbox")))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer rt.Close()

	res, execErr := rt.Execute(context.Background(), script)
	if res == nil {
		fmt.Fprintln(stderr, execErr)
		return 1
	}

	if *asJSON {
		out := output{
			ExecutionID: res.ExecutionID,
			Value:       res.Value,
			Console:     res.Console,
			Tasks:       res.Tasks,
			DurationMs:  float64(res.Duration.Microseconds()) / 1000,
		}
		if execErr != nil {
			out.Error = execErr.Error()
		}
		data, err := sonic.Marshal(out)
		if err != nil {
			out.Value = fmt.Sprint(res.Value)
			data, _ = sonic.Marshal(out)
		}
		fmt.Fprintln(stdout, string(data))
	} else {
		for _, entry := range res.Console {
			fmt.Fprintf(stdout, "[%s] %s\n", entry.Level, entry.Message)
		}
		if execErr != nil {
			fmt.Fprintln(stderr, "error:", execErr)
		} else if res.Value != nil {
			fmt.Fprintln(stdout, res.Value)
		}
	}

	if execErr != nil {
		return 1
	}
	return 0
}

func readScript(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(data), nil
}
