package pipeline

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/zonehop/internal/cluster"
	"github.com/leapstack-labs/zonehop/internal/dataset"
	"github.com/leapstack-labs/zonehop/internal/location"
	"github.com/leapstack-labs/zonehop/internal/storage"
	"github.com/leapstack-labs/zonehop/internal/validate"
	"github.com/leapstack-labs/zonehop/internal/zoneconfig"
)

// Stage names, in execution order.
const (
	StageLoadConfig     = "load_config"
	StageCopy           = "copy"
	StagePreValidation  = "pre_validation"
	StageSubmit         = "submit"
	StagePostValidation = "post_validation"
)

// Stages returns the stage names in execution order.
func Stages() []string {
	return []string{StageLoadConfig, StageCopy, StagePreValidation, StageSubmit, StagePostValidation}
}

// LoadedConfig is the output of the load_config stage.
type LoadedConfig struct {
	Document *zoneconfig.Document `json:"document"`
	Hop      zoneconfig.Hop       `json:"hop"`
}

type stageFunc func(ctx context.Context) (any, error)

func (e *execution) stage(name string) stageFunc {
	switch name {
	case StageLoadConfig:
		return e.loadConfig
	case StageCopy:
		return e.copy
	case StagePreValidation:
		return e.preValidate
	case StageSubmit:
		return e.submit
	case StagePostValidation:
		return e.postValidate
	}
	return nil
}

func (e *execution) loadConfig(ctx context.Context) (any, error) {
	doc, err := zoneconfig.Load(ctx, e.deps.Stores, e.params.AppConfigPath)
	if err != nil {
		return nil, err
	}
	hop, err := doc.Descriptors(e.params.DatasetPath)
	if err != nil {
		return nil, err
	}
	return &LoadedConfig{Document: doc, Hop: hop}, nil
}

func (e *execution) copy(ctx context.Context) (any, error) {
	cfg, err := Output[*LoadedConfig](e.pc, StageLoadConfig)
	if err != nil {
		return nil, err
	}
	src, err := cfg.Hop.Source.Location()
	if err != nil {
		return nil, err
	}
	dst, err := cfg.Hop.Destination.Location()
	if err != nil {
		return nil, err
	}
	if err := e.pingStores(ctx, src, dst); err != nil {
		return nil, err
	}
	return e.deps.Copier.Copy(ctx, src, dst)
}

// pingStores checks that the stores behind locs are reachable before any
// object is written.
func (e *execution) pingStores(ctx context.Context, locs ...location.Location) error {
	pinged := make(map[storage.ObjectStore]bool, len(locs))
	for _, loc := range locs {
		store, err := e.deps.Stores.StoreFor(loc)
		if err != nil {
			return err
		}
		if pinged[store] {
			continue
		}
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("store for %s unreachable: %w", loc, err)
		}
		pinged[store] = true
	}
	return nil
}

// preValidate compares the copied dataset (reference) against its source
// (candidate) by count only.
func (e *execution) preValidate(ctx context.Context) (any, error) {
	cfg, err := Output[*LoadedConfig](e.pc, StageLoadConfig)
	if err != nil {
		return nil, err
	}
	ref, cand, err := e.readPair(ctx, cfg.Hop.Destination, cfg.Hop.Source)
	if err != nil {
		return nil, err
	}
	res, err := validate.CountParity(ref, cand)
	report := validate.NewReport(cfg.Hop.Destination.FullURI(), cfg.Hop.Source.FullURI(), res)
	e.recordColumns(StagePreValidation, report)
	return report, err
}

func (e *execution) submit(ctx context.Context) (any, error) {
	return e.deps.Jobs.Run(ctx, cluster.JobRequest{
		DatasetName:     e.params.DatasetName,
		DatasetPath:     e.params.DatasetPath,
		SparkConfigPath: e.params.SparkConfigPath,
		CodePath:        e.params.FinalCodePath,
	})
}

// postValidate compares the transform output against its masked source by
// count, then checks declared column types on the output. Both checks run;
// a count failure takes precedence.
func (e *execution) postValidate(ctx context.Context) (any, error) {
	cfg, err := Output[*LoadedConfig](e.pc, StageLoadConfig)
	if err != nil {
		return nil, err
	}
	ref, cand, err := e.readPair(ctx, cfg.Hop.MaskedDestination, cfg.Hop.MaskedSource)
	if err != nil {
		return nil, err
	}

	counts, countErr := validate.CountParity(ref, cand)
	var opts []validate.Option
	if e.deps.StrictDecimal {
		opts = append(opts, validate.WithStrictDecimal())
	}
	types, typeErr := validate.Datatypes(ref, cfg.Document.TransformationCols, opts...)

	report := validate.NewReport(cfg.Hop.MaskedDestination.FullURI(), cfg.Hop.MaskedSource.FullURI(), counts, types)
	e.recordColumns(StagePostValidation, report)
	if countErr != nil {
		return report, countErr
	}
	return report, typeErr
}

func (e *execution) readPair(ctx context.Context, refDesc, candDesc location.Descriptor) (ref, cand *dataset.Table, err error) {
	ref, err = e.read(ctx, refDesc)
	if err != nil {
		return nil, nil, err
	}
	cand, err = e.read(ctx, candDesc)
	if err != nil {
		return nil, nil, err
	}
	return ref, cand, nil
}

func (e *execution) read(ctx context.Context, d location.Descriptor) (*dataset.Table, error) {
	loc, err := d.Location()
	if err != nil {
		return nil, err
	}
	t, err := e.deps.Reader.Read(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("read %s zone %s: %w", d.Zone, loc, err)
	}
	e.logger.Debug("dataset read", "zone", d.Zone, "location", loc.String(), "columns", len(t.Columns), "rows", t.NumRows())
	return t, nil
}

func (e *execution) recordColumns(stage string, report *validate.Report) {
	passed, failed := 0, 0
	for _, res := range report.Results {
		for _, col := range res.Columns {
			if col.Passed {
				passed++
			} else {
				failed++
			}
		}
	}
	e.metrics.RecordColumns(stage, passed, failed)
}
