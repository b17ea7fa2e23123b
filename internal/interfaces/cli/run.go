package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/CiteDisrupt/internal/application/export"
	"github.com/turtacn/CiteDisrupt/internal/application/pipeline"
	"github.com/turtacn/CiteDisrupt/internal/config"
	"github.com/turtacn/CiteDisrupt/internal/domain/citation"
	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/internal/domain/panel"
	neo4jdb "github.com/turtacn/CiteDisrupt/internal/infrastructure/database/neo4j"
	neorepo "github.com/turtacn/CiteDisrupt/internal/infrastructure/database/neo4j/repositories"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/database/redis"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/ingest"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/storage/minio"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// runOptions holds the run command's flags.
type runOptions struct {
	InputDir  string
	Companies []string
	Workers   int
	TopN      int
	OutDir    string
	Refresh   bool
	SaveDB    bool
	Upload    bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the disruption metrics batch over company citation tables",
		Long:  "Reads one CSV citation table per company from the input directory,\ncomputes network statistics, Pure F and disruption indices for every\ncompany in parallel, assembles the company-year panel and writes the\nrun artifacts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runBatch(cmd, cliCtx, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.InputDir, "input", "i", "", "directory of per-company citation CSVs (default: ingest.input_dir)")
	f.StringSliceVar(&opts.Companies, "companies", nil, "restrict the run to these companies")
	f.IntVarP(&opts.Workers, "workers", "w", 0, "concurrent companies (default: pipeline.concurrency)")
	f.IntVar(&opts.TopN, "top", 0, "ranking list length")
	f.StringVar(&opts.OutDir, "out", "artifacts", "local artifact directory (empty disables)")
	f.BoolVar(&opts.Refresh, "refresh", false, "recompute even when cached results exist")
	f.BoolVar(&opts.SaveDB, "save", false, "persist panel rows and run metadata to PostgreSQL")
	f.BoolVar(&opts.Upload, "upload", false, "upload artifacts to object storage")

	return cmd
}

// runBatch drives one batch: ingest, compute, export, persist, report.
func runBatch(cmd *cobra.Command, cliCtx *CLIContext, opts *runOptions) error {
	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	cfg := cliCtx.Config
	log := cliCtx.Logger
	params := cfg.Engine.Params()
	startedAt := time.Now()

	inputDir := opts.InputDir
	if inputDir == "" {
		inputDir = cfg.Ingest.InputDir
	}
	if inputDir == "" {
		return errors.New(errors.ErrCodeInvalidParam, "no input directory: pass --input or set ingest.input_dir")
	}

	inputs, skipped, err := loadInputs(ctx, params, log, inputDir, opts.Companies)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return errors.New(errors.ErrCodeNotFound, "no company tables matched under "+inputDir)
	}

	svcCfg := pipeline.ServiceConfig{Params: params, CacheTTL: cfg.Pipeline.CacheTTL}

	if cfg.Pipeline.CacheEnabled && !opts.Refresh {
		client, err := redis.NewClient(redisConfig(cfg), log)
		if err != nil {
			log.Warn("result cache unavailable, computing everything", logging.Err(err))
		} else {
			defer client.Close()
			svcCfg.Cache = redis.NewResultCache(client, log,
				redis.WithPrefix(cfg.Redis.KeyPrefix),
				redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
		}
	}

	if cfg.Pipeline.PublishEvents {
		producer, err := kafka.NewProducer(producerConfig(cfg), log)
		if err != nil {
			log.Warn("event publishing unavailable", logging.Err(err))
		} else {
			defer producer.Close()
			svcCfg.Events = kafka.NewCompanyEventPublisher(producer, kafka.EventPublisherConfig{
				CompletedTopic: cfg.Kafka.TopicCompleted,
				FailedTopic:    cfg.Kafka.TopicFailed,
				Source:         "citedisrupt-cli",
			}, log)
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = cfg.Pipeline.Concurrency
	}

	svc := pipeline.NewService(svcCfg, log)
	runner := pipeline.NewRunner(svc, params, pipeline.RunnerConfig{Workers: workers, TopN: opts.TopN}, log)

	batch := runner.Run(ctx, inputs)

	report := &runReport{
		RunID:     batch.RunID,
		Companies: len(batch.Results),
		PanelRows: len(batch.Panel),
		Summary:   batch.Summary,
		Failed:    batch.Failed,
		Skipped:   skipped,
		Warnings:  len(batch.Warnings),
	}

	if opts.OutDir != "" {
		manifest, err := export.NewService(NewDirStore(opts.OutDir), log).ExportBatch(ctx, batch)
		if err != nil {
			return err
		}
		report.Artifacts = append(report.Artifacts, artifactLocation{
			Store: "dir:" + opts.OutDir,
			Count: len(manifest.Artifacts),
		})
	}

	if opts.Upload {
		if err := uploadArtifacts(ctx, cfg, log, batch, report); err != nil {
			return err
		}
	}

	if opts.SaveDB {
		if err := savePanelRun(ctx, cliCtx, batch, startedAt, len(inputs)+len(skipped)); err != nil {
			return err
		}
		report.Saved = true
	}

	if cfg.Neo4j.Enabled {
		if err := persistNetworks(ctx, cfg, log, params, batch, inputs); err != nil {
			return err
		}
		report.GraphSaved = true
	}

	report.Elapsed = time.Since(startedAt).Round(time.Millisecond).String()
	return PrintResult(cmd, report)
}

// loadInputs reads every matching company table under dir. Tables that
// fail to parse never enter the batch; they are reported as skipped.
func loadInputs(ctx context.Context, params engine.Params, log logging.Logger, dir string, companies []string) ([]pipeline.CompanyInput, []panel.CompanyFailure, error) {
	files, err := ingest.ListCompanyFiles(dir)
	if err != nil {
		return nil, nil, err
	}

	want := make(map[string]bool, len(companies))
	for _, c := range companies {
		want[ingest.StandardizeCompanyName(c)] = true
	}

	reader := ingest.NewCSVReader(params, log)
	var (
		inputs  []pipeline.CompanyInput
		skipped []panel.CompanyFailure
	)
	for _, path := range files {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		name := ingest.StandardizeCompanyName(base)
		if len(want) > 0 && !want[name] {
			continue
		}
		table, err := reader.ReadCompanyFile(ctx, path)
		if err != nil {
			log.Error("company table unreadable, skipping",
				logging.String(logging.FieldCompany, name), logging.Err(err))
			skipped = append(skipped, panel.CompanyFailure{CompanyName: name, Reason: err.Error()})
			continue
		}
		inputs = append(inputs, pipeline.CompanyInput{
			CompanyName: table.CompanyName,
			Records:     table.Records,
			RowErrors:   table.RowErrors,
		})
	}
	return inputs, skipped, nil
}

// uploadArtifacts exports the batch a second time, against the object
// store.
func uploadArtifacts(ctx context.Context, cfg *config.Config, log logging.Logger, batch *pipeline.BatchResult, report *runReport) error {
	client, err := minio.NewClient(minioConfig(cfg), log)
	if err != nil {
		return err
	}
	defer client.Close()

	repo := minio.NewArtifactRepository(client, log)
	manifest, err := export.NewService(repo, log).ExportBatch(ctx, batch)
	if err != nil {
		return err
	}
	report.Artifacts = append(report.Artifacts, artifactLocation{
		Store: "s3:" + cfg.MinIO.Bucket,
		Count: len(manifest.Artifacts),
	})
	return nil
}

// savePanelRun writes the batch's panel rows and run metadata through
// one PostgreSQL pool.
func savePanelRun(ctx context.Context, cliCtx *CLIContext, batch *pipeline.BatchResult, startedAt time.Time, total int) error {
	repo, runs, closeStore, err := openPanelStore(cliCtx)
	if err != nil {
		return err
	}
	defer closeStore()

	panels := make([]panel.CompanyPanel, 0, len(batch.Results))
	for _, res := range batch.Results {
		panels = append(panels, panel.CompanyPanel{
			CompanyName:  res.CompanyName,
			TotalPatents: res.NetworkStats.FocalPatents,
			Records:      res.Records,
		})
	}
	if err := repo.SavePanels(ctx, panels); err != nil {
		return err
	}

	return runs.RecordRun(ctx, panel.RunRecord{
		RunID:           batch.RunID,
		StartedAt:       startedAt,
		FinishedAt:      time.Now(),
		CompaniesTotal:  total,
		CompaniesFailed: total - len(batch.Results),
	})
}

// persistNetworks rebuilds each surviving company's citation graph and
// writes nodes, edges and statistics to the graph store. Results carry
// only derived metrics, so the graph is rebuilt from the same records
// the batch consumed.
func persistNetworks(ctx context.Context, cfg *config.Config, log logging.Logger, params engine.Params, batch *pipeline.BatchResult, inputs []pipeline.CompanyInput) error {
	drv, err := neo4jdb.NewDriver(neo4jConfig(cfg), log)
	if err != nil {
		return err
	}
	defer drv.Close()

	repo := neorepo.NewNetworkRepository(drv, log)
	builder := citation.NewBuilder(params, log)

	records := make(map[string][]citation.PatentRecord, len(inputs))
	for _, in := range inputs {
		records[in.CompanyName] = in.Records
	}

	for _, res := range batch.Results {
		recs, ok := records[res.CompanyName]
		if !ok {
			continue
		}
		graph, err := builder.Build(res.CompanyName, recs)
		if err != nil {
			return err
		}
		ids := graph.PatentIDs()
		patents := make([]*citation.Patent, 0, len(ids))
		for _, id := range ids {
			if p, ok := graph.Patent(id); ok {
				patents = append(patents, p)
			}
		}
		if err := repo.EnsurePatentNodes(ctx, res.CompanyName, patents); err != nil {
			return err
		}
		if err := repo.BatchCreateCitations(ctx, graph.Edges()); err != nil {
			return err
		}
		if err := repo.SaveNetworkStats(ctx, batch.RunID, res.NetworkStats); err != nil {
			return err
		}
	}
	return nil
}

// artifactLocation says where one export landed.
type artifactLocation struct {
	Store string `json:"store"`
	Count int    `json:"count"`
}

// runReport is the run command's printable outcome.
type runReport struct {
	RunID      string                 `json:"run_id"`
	Companies  int                    `json:"companies"`
	PanelRows  int                    `json:"panel_rows"`
	Summary    panel.Summary          `json:"summary"`
	Failed     []panel.CompanyFailure `json:"failed,omitempty"`
	Skipped    []panel.CompanyFailure `json:"skipped,omitempty"`
	Warnings   int                    `json:"warnings,omitempty"`
	Artifacts  []artifactLocation     `json:"artifacts,omitempty"`
	Saved      bool                   `json:"saved,omitempty"`
	GraphSaved bool                   `json:"graph_saved,omitempty"`
	Elapsed    string                 `json:"elapsed"`
}

func (r *runReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Run %s finished in %s\n", r.RunID, r.Elapsed)
	fmt.Fprintf(&sb, "  companies: %d ok, %d failed, %d skipped\n", r.Companies, len(r.Failed), len(r.Skipped))
	fmt.Fprintf(&sb, "  panel rows: %d\n", r.PanelRows)
	fmt.Fprintf(&sb, "  mean DI %.4f (median %.4f, stddev %.4f), mean Pure F %.4f\n",
		r.Summary.AverageDI, r.Summary.MedianDI, r.Summary.StdDevDI, r.Summary.AveragePureF)
	for _, a := range r.Artifacts {
		fmt.Fprintf(&sb, "  artifacts: %d -> %s\n", a.Count, a.Store)
	}
	if r.Saved {
		sb.WriteString("  panel saved to database\n")
	}
	if r.GraphSaved {
		sb.WriteString("  citation networks saved to graph store\n")
	}
	for _, f := range r.Failed {
		fmt.Fprintf(&sb, "  FAILED %s: %s\n", f.CompanyName, f.Reason)
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(&sb, "  SKIPPED %s: %s\n", s.CompanyName, s.Reason)
	}
	if r.Warnings > 0 {
		fmt.Fprintf(&sb, "  warnings: %d (see summary.json)\n", r.Warnings)
	}
	return strings.TrimRight(sb.String(), "\n")
}
