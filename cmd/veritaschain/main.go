// Command veritaschain is a thin CLI over the Repository façade: enough to
// initialize a repo, commit a manifest of entities/actions/events, inspect
// branches and the commit log, and merge two branches.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/veritaschain/veritaschain"
	"github.com/veritaschain/veritaschain/internal/config"
	"github.com/veritaschain/veritaschain/internal/hash"
	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/telemetry"
	"github.com/veritaschain/veritaschain/internal/vcs"
	"github.com/veritaschain/veritaschain/internal/verrors"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := parseLogLevel(os.Getenv("VERITAS_LOG_LEVEL"))
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger, os.Args[1:]); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger, args []string) error {
	_ = godotenv.Load()

	invocationID := uuid.New().String()
	logger = logger.With("invocation_id", invocationID)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("no subcommand given")
	}

	repo, err := veritaschain.Open(ctx, cfg, veritaschain.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	switch args[0] {
	case "init":
		logger.Info("repository initialized", "path", cfg.RepoPath, "default_branch", cfg.DefaultBranch, "version", version)
		return nil
	case "commit":
		return cmdCommit(ctx, repo, cfg, args[1:])
	case "branch":
		return cmdBranch(ctx, repo, args[1:])
	case "log":
		return cmdLog(ctx, repo, args[1:])
	case "merge":
		return cmdMerge(ctx, repo, args[1:])
	default:
		printUsage()
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: veritaschain <command> [flags]

commands:
  init                          initialize the configured store
  commit -manifest FILE          commit a JSON manifest of entities/actions/events
  branch list|create|switch NAME create or switch branches
  log -branch NAME               print a branch's commit history
  merge -into NAME -from NAME    three-way merge one branch into another`)
}

// manifest is the JSON shape accepted by "commit": one new version per
// object to store and fold into the commit's tree.
type manifest struct {
	Branch   string         `json:"branch"`
	Author   string         `json:"author"`
	Message  string         `json:"message"`
	Entities []model.Entity `json:"entities,omitempty"`
	Actions  []model.Action `json:"actions,omitempty"`
	Events   []model.Event  `json:"events,omitempty"`
}

func cmdCommit(ctx context.Context, repo *veritaschain.Repository, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("commit", flag.ExitOnError)
	path := fs.String("manifest", "", "path to a JSON manifest of entities/actions/events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("commit: -manifest is required")
	}

	raw, err := os.ReadFile(*path)
	if err != nil {
		return fmt.Errorf("commit: read manifest: %w", err)
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("commit: parse manifest: %w", err)
	}
	if m.Branch == "" {
		m.Branch = cfg.DefaultBranch
	}

	var changes []vcs.Change
	for _, e := range m.Entities {
		h, err := hash.Entity(e)
		if err != nil {
			return fmt.Errorf("commit: hash entity %s: %w", e.LogicalID, err)
		}
		if err := repo.Store.Entities().Put(ctx, h, e); err != nil {
			return fmt.Errorf("commit: store entity %s: %w", e.LogicalID, err)
		}
		changes = append(changes, vcs.Change{Kind: model.KindEntities, LogicalID: e.LogicalID, Hash: h})
	}
	for _, a := range m.Actions {
		h, err := hash.Action(a)
		if err != nil {
			return fmt.Errorf("commit: hash action %s: %w", a.LogicalID, err)
		}
		if err := repo.Store.Actions().Put(ctx, h, a); err != nil {
			return fmt.Errorf("commit: store action %s: %w", a.LogicalID, err)
		}
		changes = append(changes, vcs.Change{Kind: model.KindActions, LogicalID: a.LogicalID, Hash: h})
	}
	for _, ev := range m.Events {
		h, err := hash.Event(ev)
		if err != nil {
			return fmt.Errorf("commit: hash event %s: %w", ev.LogicalID, err)
		}
		if err := repo.Store.Events().Put(ctx, h, ev); err != nil {
			return fmt.Errorf("commit: store event %s: %w", ev.LogicalID, err)
		}
		changes = append(changes, vcs.Change{Kind: model.KindEvents, LogicalID: ev.LogicalID, Hash: h})
	}

	commit, err := repo.VCS.Commit(ctx, m.Branch, m.Author, m.Message, changes)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Info("committed", "branch", m.Branch, "commit", commit.ID, "objects", len(changes))
	return nil
}

func cmdBranch(ctx context.Context, repo *veritaschain.Repository, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("branch: subcommand required (list|create|switch)")
	}
	switch args[0] {
	case "list":
		branches, err := repo.VCS.Branches().List(ctx)
		if err != nil {
			return err
		}
		current, err := repo.VCS.Branches().Current(ctx)
		if err != nil {
			return err
		}
		for _, b := range branches {
			marker := "  "
			if b.Name == current {
				marker = "* "
			}
			fmt.Printf("%s%s\t%s\n", marker, b.Name, b.Head)
		}
		return nil
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("branch create: name required")
		}
		current, err := repo.VCS.Branches().Current(ctx)
		if err != nil {
			return err
		}
		head, err := repo.VCS.Branches().Head(ctx, current)
		if err != nil {
			return err
		}
		return repo.VCS.Branches().Create(ctx, args[1], head, os.Getenv("USER"), false)
	case "switch":
		if len(args) < 2 {
			return fmt.Errorf("branch switch: name required")
		}
		return repo.VCS.Branches().Switch(ctx, args[1], vcs.SwitchOptions{Author: os.Getenv("USER")})
	default:
		return fmt.Errorf("branch: unknown subcommand %q", args[0])
	}
}

func cmdLog(ctx context.Context, repo *veritaschain.Repository, args []string) error {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	branch := fs.String("branch", "", "branch to inspect (default: current)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	name := *branch
	if name == "" {
		current, err := repo.VCS.Branches().Current(ctx)
		if err != nil {
			return err
		}
		name = current
	}

	head, err := repo.VCS.Branches().Head(ctx, name)
	if err != nil {
		return err
	}
	for head != "" {
		c, err := repo.Store.Commits().Get(ctx, head)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s  %s\n", head, c.Timestamp.Format("2006-01-02T15:04:05Z07:00"), c.Message)
		if len(c.Parents) == 0 {
			break
		}
		head = c.Parents[0]
	}
	return nil
}

func cmdMerge(ctx context.Context, repo *veritaschain.Repository, args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	into := fs.String("into", "", "branch to merge into (ours)")
	from := fs.String("from", "", "branch to merge from (theirs)")
	strategy := fs.String("strategy", "auto", "merge strategy: auto|ours|theirs|manual")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *into == "" || *from == "" {
		return fmt.Errorf("merge: -into and -from are required")
	}

	result, err := repo.VCS.Merge(ctx, *into, *from, vcs.MergeOptions{Strategy: parseStrategy(*strategy)})
	if err != nil && errors.Is(err, verrors.AlreadyUpToDate) {
		slog.Info("already up to date", "into", *into, "from", *from)
		return nil
	}
	if err != nil {
		if result.Conflicts != nil {
			slog.Warn("merge produced unresolved conflicts", "count", len(result.Conflicts))
		}
		return fmt.Errorf("merge: %w", err)
	}

	if result.FastForward {
		slog.Info("merge fast-forwarded", "into", *into, "commit", result.Commit.ID)
	} else {
		slog.Info("merge committed", "into", *into, "commit", result.Commit.ID)
	}
	return nil
}

func parseStrategy(s string) vcs.MergeStrategy {
	switch strings.ToLower(s) {
	case "ours":
		return vcs.StrategyOurs
	case "theirs":
		return vcs.StrategyTheirs
	case "manual":
		return vcs.StrategyManual
	default:
		return vcs.StrategyAuto
	}
}

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
