package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/turtacn/CiteDisrupt/internal/infrastructure/ingest"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// queueOptions holds the queue command's flags.
type queueOptions struct {
	InputDir  string
	Companies []string
	RunID     string
}

func newQueueCmd() *cobra.Command {
	opts := &queueOptions{}

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Enqueue company compute jobs onto the work queue",
		Long:  "Publishes one compute job per company table so detached workers can\nprocess the batch.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return enqueueJobs(cmd, cliCtx, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.InputDir, "input", "i", "", "directory of per-company citation CSVs (default: ingest.input_dir)")
	f.StringSliceVar(&opts.Companies, "companies", nil, "restrict to these companies")
	f.StringVar(&opts.RunID, "run-id", "", "run identifier shared by the jobs (default: random)")

	return cmd
}

func enqueueJobs(cmd *cobra.Command, cliCtx *CLIContext, opts *queueOptions) error {
	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	cfg := cliCtx.Config
	log := cliCtx.Logger

	inputDir := opts.InputDir
	if inputDir == "" {
		inputDir = cfg.Ingest.InputDir
	}
	if inputDir == "" {
		return errors.New(errors.ErrCodeInvalidParam, "no input directory: pass --input or set ingest.input_dir")
	}

	files, err := ingest.ListCompanyFiles(inputDir)
	if err != nil {
		return err
	}

	want := make(map[string]bool, len(opts.Companies))
	for _, c := range opts.Companies {
		want[ingest.StandardizeCompanyName(c)] = true
	}

	type jobFile struct {
		company string
		path    string
	}
	var matched []jobFile
	for _, path := range files {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		name := ingest.StandardizeCompanyName(base)
		if len(want) > 0 && !want[name] {
			continue
		}
		matched = append(matched, jobFile{company: name, path: path})
	}
	if len(matched) == 0 {
		return errors.New(errors.ErrCodeNotFound, "no company tables matched under "+inputDir)
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	producer, err := kafka.NewProducer(producerConfig(cfg), log)
	if err != nil {
		return err
	}
	defer producer.Close()

	queue := kafka.NewComputeQueue(producer, log)
	params := cfg.Engine.Params()
	now := time.Now().UTC()

	for _, jf := range matched {
		job := kafka.CompanyComputeJob{
			RunID:       runID,
			CompanyName: jf.company,
			InputPath:   jf.path,
			Params:      params,
			SubmittedAt: now,
		}
		if err := queue.Enqueue(ctx, job); err != nil {
			return err
		}
	}

	PrintSuccess(cmd, fmt.Sprintf("queued %d compute jobs under run %s", len(matched), runID))
	return nil
}
