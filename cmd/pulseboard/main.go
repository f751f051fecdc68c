package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pulseboard/internal/config"
	"pulseboard/internal/metrics"
	"pulseboard/internal/recon"
	"pulseboard/internal/replay"
	"pulseboard/internal/schedule"
	"pulseboard/internal/scrape"
	"pulseboard/internal/store"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "add":
		cmdAdd()
	case "projects":
		cmdProjects()
	case "pause":
		cmdSetStatus("pause", "paused")
	case "resume":
		cmdSetStatus("resume", "active")
	case "run":
		cmdRun()
	case "loop":
		cmdLoop()
	case "leaderboard":
		cmdLeaderboard()
	case "seed":
		cmdSeed()
	default:
		printHelp()
	}
}

func printHelp() {
	fmt.Println("Usage: pulseboard <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init         Create a config file at ./pulseboard.yaml")
	fmt.Println("  add          Add a tracked project (keywords + cooldown)")
	fmt.Println("  projects     List projects")
	fmt.Println("  pause        Pause a project")
	fmt.Println("  resume       Resume a paused project")
	fmt.Println("  run          Trigger one reconciliation run for a project")
	fmt.Println("  loop         Run the scheduler until interrupted")
	fmt.Println("  leaderboard  Show a project's top scorers")
	fmt.Println("  seed         Create a demo project for replay mode")
}

func newLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// app bundles the wired dependencies behind every data command.
type app struct {
	cfg    config.Config
	store  *store.Store
	engine *recon.Engine
	log    zerolog.Logger
}

func mustOpen(cfgPath string) *app {
	log := newLogger()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	st, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	var fetcher scrape.Fetcher
	if cfg.Scraper.Mode == config.ModeLive {
		fetcher = scrape.NewLiveClient(cfg.Scraper.Token, cfg.Scraper.ActorID)
	} else {
		fetcher = replay.New(time.Now().UnixNano())
	}
	return &app{
		cfg:    cfg,
		store:  st,
		engine: recon.New(st, fetcher, log, cfg.Scraper.MaxItems),
		log:    log,
	}
}

func (a *app) close() { _ = a.store.Close() }

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./pulseboard.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	if err := config.Save(*path, config.Default()); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	abs, _ := filepath.Abs(*path)
	fmt.Println("Config written to:", abs)
}

func cmdAdd() {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	cfgPath := fs.String("config", "./pulseboard.yaml", "config path")
	name := fs.String("name", "", "project display name")
	keywords := fs.String("keywords", "", "comma-separated keywords")
	cooldown := fs.Int("cooldown", 6, "scrape cooldown in hours (1, 6, 12 or 24)")
	_ = fs.Parse(os.Args[2:])

	if !schedule.ValidCooldown(*cooldown) {
		fmt.Println("error: cooldown must be one of 1, 6, 12, 24")
		os.Exit(1)
	}
	kws := splitKeywords(*keywords)
	if *name == "" || len(kws) == 0 {
		fmt.Println("error: -name and -keywords are required")
		os.Exit(1)
	}

	a := mustOpen(*cfgPath)
	defer a.close()
	p, err := a.store.CreateProject(context.Background(), *name, kws, *cooldown)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Printf("Created project %s (%s)\n", p.ID, p.Name)
}

func cmdProjects() {
	fs := flag.NewFlagSet("projects", flag.ExitOnError)
	cfgPath := fs.String("config", "./pulseboard.yaml", "config path")
	_ = fs.Parse(os.Args[2:])

	a := mustOpen(*cfgPath)
	defer a.close()
	all, err := a.store.ListProjects(context.Background())
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	for _, p := range all {
		next := "-"
		if !p.NextRunAt.IsZero() {
			next = p.NextRunAt.Format(time.RFC3339)
		}
		fmt.Printf("%s  %-20s %-7s cooldown=%dh next=%s keywords=%s\n",
			p.ID, p.Name, p.Status, p.CooldownHours, next, strings.Join(p.Keywords, ","))
	}
}

func cmdSetStatus(name, status string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cfgPath := fs.String("config", "./pulseboard.yaml", "config path")
	project := fs.String("project", "", "project id")
	_ = fs.Parse(os.Args[2:])
	if *project == "" {
		fmt.Println("error: -project is required")
		os.Exit(1)
	}

	a := mustOpen(*cfgPath)
	defer a.close()
	if err := a.store.SetProjectStatus(context.Background(), *project, status); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Printf("Project %s is now %s\n", *project, status)
}

func cmdRun() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./pulseboard.yaml", "config path")
	project := fs.String("project", "", "project id")
	_ = fs.Parse(os.Args[2:])
	if *project == "" {
		fmt.Println("error: -project is required")
		os.Exit(1)
	}

	a := mustOpen(*cfgPath)
	defer a.close()
	metrics.StartServer(a.cfg.Metrics.Addr)

	sum, err := a.engine.Run(context.Background(), *project)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Printf("Run %s: scraped=%d new=%d updated=%d failed=%d points=%.2f\n",
		sum.RunID, sum.Scraped, sum.NewPosts, sum.UpdatedPosts, sum.Failed, sum.PointsAwarded)
}

func cmdLoop() {
	fs := flag.NewFlagSet("loop", flag.ExitOnError)
	cfgPath := fs.String("config", "./pulseboard.yaml", "config path")
	_ = fs.Parse(os.Args[2:])

	a := mustOpen(*cfgPath)
	defer a.close()
	metrics.StartServer(a.cfg.Metrics.Addr)

	interval := time.Duration(a.cfg.Loop.PollMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.log.Info().Dur("interval", interval).Msg("scheduler started")
	_ = schedule.Loop(ctx, a.store, a.engine.Run, interval, a.log)
}

func cmdLeaderboard() {
	fs := flag.NewFlagSet("leaderboard", flag.ExitOnError)
	cfgPath := fs.String("config", "./pulseboard.yaml", "config path")
	project := fs.String("project", "", "project id")
	limit := fs.Int("limit", 20, "rows to show")
	_ = fs.Parse(os.Args[2:])
	if *project == "" {
		fmt.Println("error: -project is required")
		os.Exit(1)
	}

	a := mustOpen(*cfgPath)
	defer a.close()
	rows, err := a.store.Leaderboard(context.Background(), *project, *limit)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	for _, r := range rows {
		fmt.Printf("#%-3d @%-20s score=%-10.2f posts=%d\n", r.Rank, r.Handle, r.TotalScore, r.PostCount)
	}
}

func cmdSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	cfgPath := fs.String("config", "./pulseboard.yaml", "config path")
	_ = fs.Parse(os.Args[2:])

	a := mustOpen(*cfgPath)
	defer a.close()
	p, err := a.store.CreateProject(context.Background(), "demo project",
		[]string{"solana", "defi", "web3"}, 1)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Printf("Created demo project %s; try: pulseboard run -project %s\n", p.ID, p.ID)
}

func splitKeywords(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
