package things

import (
	"context"
	"errors"
	"fmt"

	"collection-mapper/core/database"
	"collection-mapper/core/mapping"
	"collection-mapper/core/persist"
	"collection-mapper/core/reconcile"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no thing has the requested ID.
var ErrNotFound = errors.New("thing not found")

// Service handles thing operations.
type Service struct {
	db          *gorm.DB
	engine      *reconcile.Engine
	transformer mapping.Transformer[ThingDTO, *Thing]
	logger      *zap.Logger
	cfg         Config
}

// NewService creates a new things service. The engine's registry must hold
// the ThingDTO -> *Thing relation (see Register).
func NewService(db *gorm.DB, engine *reconcile.Engine, logger *zap.Logger, cfg Config) *Service {
	return &Service{
		db:          db,
		engine:      engine,
		transformer: NewTransformer(),
		logger:      logger,
		cfg:         cfg,
	}
}

// Config returns the feature configuration.
func (s *Service) Config() Config { return s.cfg }

// Prepare makes sure the things table has every column the model needs.
func (s *Service) Prepare(ctx context.Context) error {
	if s.db == nil {
		return errors.New("database not available")
	}

	missing, err := database.MissingColumns(s.db.WithContext(ctx), &Thing{})
	if err != nil {
		return fmt.Errorf("failed to inspect things table: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}
	if !s.cfg.AutoMigrate {
		return fmt.Errorf("things table is missing columns %v", missing)
	}

	s.logger.Info("Migrating things table", zap.Strings("missing_columns", missing))
	if err := s.db.WithContext(ctx).AutoMigrate(&Thing{}); err != nil {
		return fmt.Errorf("failed to migrate things table: %w", err)
	}
	return nil
}

func (s *Service) collection() (*persist.GormCollection[Thing], error) {
	if s.db == nil {
		return nil, errors.New("database not available")
	}
	return persist.NewGormCollection[Thing](s.db)
}

// Upsert stores one document, merging it onto the thing with the same ID or
// creating a new one.
func (s *Service) Upsert(ctx context.Context, dto ThingDTO) (*Thing, persist.Outcome, error) {
	if err := dto.Validate(); err != nil {
		return nil, 0, err
	}

	coll, err := s.collection()
	if err != nil {
		return nil, 0, err
	}

	thing, outcome, err := persist.UpsertRegistered(ctx, s.engine.Registry(), dto, persist.Collection[*Thing](coll), s.transformer)
	if err != nil {
		return nil, 0, err
	}

	if _, err := coll.SaveChanges(ctx); err != nil {
		return nil, 0, err
	}

	s.logger.Debug("Thing upserted", zap.Uint("id", thing.ID), zap.Stringer("outcome", outcome))
	return thing, outcome, nil
}

// ErrNoDocuments is returned when a sync is given no document list at all.
// An empty list is valid and removes every stored thing.
var ErrNoDocuments = fmt.Errorf("%w: document list is absent", ErrInvalidThing)

// StagedSync is a computed sync plan together with the rows it was built from.
// Commit applies exactly this plan.
type StagedSync struct {
	Report *Report

	plan    *reconcile.Plan[ThingDTO, *Thing]
	current []*Thing
}

// PlanSync computes how the stored things would change to mirror dtos.
func (s *Service) PlanSync(ctx context.Context, dtos []ThingDTO) (*Report, error) {
	staged, err := s.Stage(ctx, dtos)
	if err != nil {
		return nil, err
	}
	return staged.Report, nil
}

// Sync makes the stored things mirror dtos and commits the changes.
func (s *Service) Sync(ctx context.Context, dtos []ThingDTO, dryRun bool) (*Report, error) {
	staged, err := s.Stage(ctx, dtos)
	if err != nil {
		return nil, err
	}
	if dryRun {
		return staged.Report, nil
	}
	return s.Commit(ctx, staged)
}

// Stage loads the stored things and plans their reconciliation with dtos
// without changing anything.
func (s *Service) Stage(ctx context.Context, dtos []ThingDTO) (*StagedSync, error) {
	if dtos == nil {
		return nil, ErrNoDocuments
	}
	if err := ValidateAll(dtos); err != nil {
		return nil, err
	}

	rel, err := reconcile.Resolve[ThingDTO, *Thing](s.engine)
	if err != nil {
		return nil, err
	}

	coll, err := s.collection()
	if err != nil {
		return nil, err
	}

	plan, current, err := persist.Plan(ctx, reconcile.Matcher[ThingDTO, *Thing](rel), dtos, persist.Store[*Thing](coll))
	if err != nil {
		return nil, err
	}

	report := NewReport(plan)
	report.DryRun = true
	return &StagedSync{Report: report, plan: plan, current: current}, nil
}

// Commit applies a staged plan. It fails with reconcile.ErrStalePlan when
// the stored things no longer are the ones the plan was built from, so only
// the reported removals can happen.
func (s *Service) Commit(ctx context.Context, staged *StagedSync) (*Report, error) {
	if staged == nil || staged.plan == nil {
		return nil, fmt.Errorf("%w: nothing staged", persist.ErrInvalidArgument)
	}

	coll, err := s.collection()
	if err != nil {
		return nil, err
	}

	rows, err := coll.All(ctx)
	if err != nil {
		return nil, err
	}
	if !sameIDs(rows, staged.current) {
		return nil, fmt.Errorf("%w: things changed since plan %s was computed", reconcile.ErrStalePlan, staged.plan.ID)
	}

	executed, err := persist.Apply(ctx, staged.plan, rows, persist.Store[*Thing](coll), s.transformer)
	if err != nil {
		return nil, err
	}

	saved, err := coll.SaveChanges(ctx)
	if err != nil {
		return nil, err
	}

	report := *staged.Report
	report.DryRun = false
	report.Executed = executed
	report.Saved = saved

	s.logger.Info("Things synchronized",
		zap.String("plan_id", report.PlanID),
		zap.Int("matched", report.Summary.Matched),
		zap.Int("inserted", report.Summary.Inserted),
		zap.Int("removed", report.Summary.Removed),
		zap.Int("saved", saved),
	)
	return &report, nil
}

func sameIDs(a, b []*Thing) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// List returns every stored thing ordered by ID.
func (s *Service) List(ctx context.Context) ([]*Thing, error) {
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	return coll.All(ctx)
}

// Get returns the thing with the given ID.
func (s *Service) Get(ctx context.Context, id uint) (*Thing, error) {
	if s.db == nil {
		return nil, errors.New("database not available")
	}

	var thing Thing
	err := s.db.WithContext(ctx).First(&thing, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thing %d: %w", id, err)
	}
	return &thing, nil
}
