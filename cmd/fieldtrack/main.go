// Package main is the fieldtrack entry point: `serve` runs the ingestion
// endpoint against the remote store, `track` runs the device-local session
// daemon for one technician.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuadrantworks/fieldtrack/internal/config"
	"github.com/cuadrantworks/fieldtrack/internal/db"
	"github.com/cuadrantworks/fieldtrack/internal/domain"
	"github.com/cuadrantworks/fieldtrack/internal/ingest"
	"github.com/cuadrantworks/fieldtrack/internal/prompt"
	"github.com/cuadrantworks/fieldtrack/internal/remote"
	"github.com/cuadrantworks/fieldtrack/internal/repository"
	syncengine "github.com/cuadrantworks/fieldtrack/internal/sync"
	"github.com/cuadrantworks/fieldtrack/internal/tracker"
)

func main() {
	root := &cobra.Command{
		Use:   "fieldtrack",
		Short: "Workday tracking for field technicians",
		Long: `Fieldtrack records a technician's workday: session state, jobs,
pauses and location history, kept locally first and reconciled to a
central store whenever connectivity allows.`,
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd(), trackCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the location ingestion endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.RemoteDSN == "" {
				return errors.New("FIELDTRACK_REMOTE_DSN is required")
			}
			log, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := remote.Connect(ctx, cfg.RemoteDSN)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := &http.Server{
				Addr:    cfg.ListenAddr,
				Handler: ingest.NewServer(store, log).Routes(),
			}
			errCh := make(chan error, 1)
			go func() {
				log.Info("ingestion endpoint listening", "addr", cfg.ListenAddr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func trackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "track",
		Short: "Run the device-local tracking session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.TechnicianID == "" {
				return errors.New("FIELDTRACK_TECHNICIAN_ID is required")
			}
			if cfg.RemoteDSN == "" {
				return errors.New("FIELDTRACK_REMOTE_DSN is required")
			}
			log, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			database, err := db.OpenDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer database.Close()

			store, err := remote.Connect(ctx, cfg.RemoteDSN)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := syncengine.NewEngine(syncengine.Config{
				Workdays: repository.NewSQLiteWorkdayRepo(database),
				Jobs:     repository.NewSQLiteJobRepo(database),
				Pauses:   repository.NewSQLitePauseRepo(database),
				Events:   repository.NewSQLiteEventRepo(database),
				Samples:  repository.NewSQLiteSampleRepo(database),
				Remote:   store,
				Observer: syncengine.NewLogObserver(log),
			})

			tr := tracker.New(tracker.Config{
				TechnicianID: cfg.TechnicianID,
				DB:           database,
				UoW:          db.NewSQLiteUnitOfWork(database),
				Sync:         engine,
				Client:       prompt.NewHTTPClient(prompt.LoadClientConfig(), prompt.NewLogObserver(log)),
				Gate:         prompt.DefaultGateConfig(),
				Notifier:     terminalNotifier{},
				Log:          log,
			})
			if err := tr.Load(ctx); err != nil {
				return err
			}

			go engine.Run(ctx)
			go tr.Run(ctx)

			return commandLoop(ctx, tr)
		},
	}
}

// commandLoop reads line commands from stdin until EOF or cancellation.
// The location watch normally feeds OnLocation from the platform; here a
// manual `loc` command stands in for it.
func commandLoop(ctx context.Context, tr *tracker.Tracker) error {
	fmt.Println("commands: start [lat lon] | pause | resume | job <description> | done <job-id> <summary> | loc <lat> <lon> | status | end | quit")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := dispatch(ctx, tr, strings.Fields(line)); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
	}
}

var errQuit = errors.New("quit")

func dispatch(ctx context.Context, tr *tracker.Tracker, args []string) error {
	if len(args) == 0 {
		return nil
	}
	switch args[0] {
	case "start":
		var loc *domain.LocationPoint
		if len(args) == 3 {
			p, err := parsePoint(args[1], args[2])
			if err != nil {
				return err
			}
			loc = p
		}
		day, err := tr.StartDay(ctx, loc)
		if err != nil {
			return err
		}
		fmt.Printf("workday %s started\n", day.ID)
	case "pause":
		return tr.PauseDay(ctx)
	case "resume":
		return tr.ResumeDay(ctx)
	case "job":
		if len(args) < 2 {
			return errors.New("usage: job <description>")
		}
		job, err := tr.StartJob(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("job %s started\n", job.ID)
	case "done":
		if len(args) < 3 {
			return errors.New("usage: done <job-id> <summary>")
		}
		if _, err := tr.CompleteJob(ctx, args[1], strings.Join(args[2:], " ")); err != nil {
			return err
		}
	case "loc":
		if len(args) != 3 {
			return errors.New("usage: loc <lat> <lon>")
		}
		p, err := parsePoint(args[1], args[2])
		if err != nil {
			return err
		}
		tr.OnLocation(ctx, *p)
	case "status":
		day := tr.Current()
		if day == nil {
			fmt.Println("no workday")
			return nil
		}
		fmt.Printf("status=%s elapsed=%s jobs=%d\n", day.Status, tr.Elapsed().Round(time.Second), len(day.Jobs))
	case "end":
		if err := tr.EndDay(ctx); err != nil {
			return err
		}
		day := tr.Current()
		if day != nil && day.Summary != nil {
			fmt.Printf("day ended: active=%s distance=%.0fm jobs=%d\n",
				day.Summary.ActiveDuration.Round(time.Second),
				day.Summary.DistanceMeters,
				day.Summary.JobsCompleted)
		}
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func parsePoint(latStr, lonStr string) (*domain.LocationPoint, error) {
	var lat, lon float64
	if _, err := fmt.Sscanf(latStr+" "+lonStr, "%f %f", &lat, &lon); err != nil {
		return nil, fmt.Errorf("parsing coordinates: %w", err)
	}
	p := domain.NewLocationPoint(lat, lon, time.Now().UTC())
	return &p, nil
}

// terminalNotifier surfaces prompts on stdout; intake itself stays manual
// via the job/done commands.
type terminalNotifier struct{}

func (terminalNotifier) ShowJobIntake(reason string) {
	fmt.Printf("\n>> start a new job? (%s) — use: job <description>\n", reason)
}

func (terminalNotifier) ShowCompletionIntake(jobID, description, reason string) {
	fmt.Printf("\n>> complete job %s (%s)? (%s) — use: done %s <summary>\n", jobID, description, reason, jobID)
}

func (terminalNotifier) Notify(message string) {
	fmt.Printf("\n>> %s\n", message)
}
