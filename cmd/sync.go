package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"collection-mapper/core/database"
	"collection-mapper/core/persist"
	"collection-mapper/core/storage"
	"collection-mapper/feature/things"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// thingsSyncOptions holds the flags of the sync things command.
type thingsSyncOptions struct {
	Source string
	Object string
	Upsert bool
	DryRun bool
	Yes    bool
	Report bool
}

var thingsSyncOpts thingsSyncOptions

// syncCmd is the parent command for all sync operations.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize stored collections with a source document set",
}

var syncThingsCmd = &cobra.Command{
	Use:   "things",
	Short: "Make the stored things mirror a JSON array of documents",
	Long: `Reads a JSON array of thing documents and reconciles the things table with it.

Documents are matched to stored things by ID. Matched things are updated,
unmatched documents are inserted and stored things no document matches are
deleted. With --upsert each document is stored on its own and nothing is deleted.

Examples:
  # Plan only
  sync things --source things.json --dry-run

  # Read the source from object storage and store a report
  sync things --object things/source.json --report

  # Apply without the confirmation prompt
  sync things --source things.json --yes`,
	RunE: runThingsSync,
}

func init() {
	syncThingsCmd.Flags().StringVar(&thingsSyncOpts.Source, "source", "", "Local JSON file to read (default: read from object storage)")
	syncThingsCmd.Flags().StringVar(&thingsSyncOpts.Object, "object", "", "Storage object to read (default: things.source_object)")
	syncThingsCmd.Flags().BoolVar(&thingsSyncOpts.Upsert, "upsert", false, "Upsert each document instead of mirroring the whole set")
	syncThingsCmd.Flags().BoolVar(&thingsSyncOpts.DryRun, "dry-run", false, "Plan only, make no changes")
	syncThingsCmd.Flags().BoolVar(&thingsSyncOpts.Yes, "yes", false, "Auto-confirm deletions (non-interactive)")
	syncThingsCmd.Flags().BoolVar(&thingsSyncOpts.Report, "report", false, "Write the plan report to object storage")

	syncCmd.AddCommand(syncThingsCmd)
	RootCmd.AddCommand(syncCmd)
}

func runThingsSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	opts := thingsSyncOpts

	cfg, l, err := bootstrap()
	if err != nil {
		return err
	}
	defer l.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	engine, err := newEngine()
	if err != nil {
		return err
	}

	svc := things.NewService(db, engine, l, cfg.Things)
	if err := svc.Prepare(ctx); err != nil {
		return fmt.Errorf("failed to prepare schema: %w", err)
	}

	var client storage.Client
	if opts.Source == "" || opts.Report {
		client, err = storage.NewClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		exists, err := client.BucketExists(ctx, cfg.Storage.Bucket)
		if err != nil {
			return fmt.Errorf("failed to check bucket %s: %w", cfg.Storage.Bucket, err)
		}
		if !exists {
			return fmt.Errorf("bucket %s does not exist", cfg.Storage.Bucket)
		}
	}

	object := opts.Object
	if object == "" {
		object = cfg.Things.SourceObject
	}

	dtos, err := loadThings(ctx, client, cfg.Storage.Bucket, object, opts.Source)
	if err != nil {
		return err
	}
	l.Info("Source loaded", zap.Int("documents", len(dtos)))

	s := &thingsSync{
		service: svc,
		client:  client,
		bucket:  cfg.Storage.Bucket,
		prefix:  cfg.Things.ReportPrefix,
		logger:  l,
		in:      os.Stdin,
		out:     cmd.OutOrStdout(),
	}
	return s.run(ctx, dtos, opts)
}

// loadThings reads documents from file when set, otherwise from bucket/object.
func loadThings(ctx context.Context, client storage.Client, bucket, object, file string) ([]things.ThingDTO, error) {
	var dtos []things.ThingDTO
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read source: %w", err)
		}
		if err := json.Unmarshal(data, &dtos); err != nil {
			return nil, fmt.Errorf("failed to decode source %s: %w", file, err)
		}
		return dtos, nil
	}

	if client == nil {
		return nil, fmt.Errorf("no source file and no storage client")
	}
	if err := storage.ReadJSON(ctx, client, bucket, object, &dtos); err != nil {
		return nil, err
	}
	return dtos, nil
}

// thingsSync runs one invocation of the sync things command.
type thingsSync struct {
	service *things.Service
	client  storage.Client
	bucket  string
	prefix  string
	logger  *zap.Logger
	in      io.Reader
	out     io.Writer
}

func (s *thingsSync) run(ctx context.Context, dtos []things.ThingDTO, opts thingsSyncOptions) error {
	if opts.Upsert {
		return s.upsert(ctx, dtos, opts.DryRun)
	}

	// Step 1: Plan (always runs)
	staged, err := s.service.Stage(ctx, dtos)
	if err != nil {
		return fmt.Errorf("failed to plan sync: %w", err)
	}
	plan := staged.Report
	s.printReport(plan)

	if opts.DryRun {
		s.logger.Info("Dry-run mode: No changes were made.")
		return s.writeReport(ctx, plan, opts.Report)
	}

	if plan.Summary.Matched == 0 && plan.Summary.Empty() {
		s.logger.Info("Nothing to synchronize.")
		return nil
	}

	// Step 2: Deleting stored things needs confirmation
	if plan.Summary.Removed > 0 && !confirm(s.in, s.out, opts.Yes) {
		s.logger.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	// Step 3: Apply the confirmed plan
	report, err := s.service.Commit(ctx, staged)
	if err != nil {
		return fmt.Errorf("failed to apply sync: %w", err)
	}
	s.logger.Info("Successfully synchronized things",
		zap.Int("executed", report.Executed),
		zap.Int("saved", report.Saved),
	)
	return s.writeReport(ctx, report, opts.Report)
}

func (s *thingsSync) upsert(ctx context.Context, dtos []things.ThingDTO, dryRun bool) error {
	if dtos == nil {
		return things.ErrNoDocuments
	}
	if err := things.ValidateAll(dtos); err != nil {
		return err
	}
	if dryRun {
		s.logger.Info("Dry-run mode: documents are valid, nothing was stored.", zap.Int("documents", len(dtos)))
		return nil
	}

	counts := map[persist.Outcome]int{}
	for i, dto := range dtos {
		_, outcome, err := s.service.Upsert(ctx, dto)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		counts[outcome]++
	}

	s.logger.Info("Upsert complete",
		zap.Int("created", counts[persist.Created]),
		zap.Int("updated", counts[persist.Updated]),
	)
	return nil
}

// printReport logs the plan summary and a sample of removals.
func (s *thingsSync) printReport(r *things.Report) {
	s.logger.Info("Sync plan",
		zap.String("plan_id", r.PlanID),
		zap.Int("matched", r.Summary.Matched),
		zap.Int("inserted", r.Summary.Inserted),
		zap.Int("removed", r.Summary.Removed),
	)

	maxShow := min(5, len(r.Removed))
	for _, id := range r.Removed[:maxShow] {
		s.logger.Info("Planned removal", zap.Uint("id", id))
	}
	if len(r.Removed) > maxShow {
		s.logger.Info("Additional removals not shown", zap.Int("count", len(r.Removed)-maxShow))
	}
}

func (s *thingsSync) writeReport(ctx context.Context, r *things.Report, enabled bool) error {
	if !enabled {
		return nil
	}
	if s.client == nil {
		return fmt.Errorf("report requested but no storage client")
	}

	object := reportObject(s.prefix, r.PlanID)
	if err := storage.WriteJSON(ctx, s.client, s.bucket, object, r); err != nil {
		return err
	}
	s.logger.Info("Report written", zap.String("object", object))
	return nil
}

func reportObject(prefix, planID string) string {
	return path.Join(prefix, planID+".json")
}

// confirm asks for "yes" on in unless yes is already set.
func confirm(in io.Reader, out io.Writer, yes bool) bool {
	if yes {
		fmt.Fprintln(out, "Auto-confirmed via --yes flag")
		return true
	}

	fmt.Fprint(out, "Type 'yes' to confirm deleting stored things: ")
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
