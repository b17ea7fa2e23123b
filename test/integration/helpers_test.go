// Package integration runs the batch over real fixture citation tables:
// CSV parsing, the parallel runner and panel assembly with no mocks.
// Set CITEDISRUPT_INTEGRATION_TEST=1 to enable; the tests need no
// external services.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turtacn/CiteDisrupt/internal/application/pipeline"
	"github.com/turtacn/CiteDisrupt/internal/domain/engine"
	"github.com/turtacn/CiteDisrupt/internal/infrastructure/ingest"
)

const envIntegrationEnabled = "CITEDISRUPT_INTEGRATION_TEST"

func skipUnlessIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(envIntegrationEnabled) == "" {
		t.Skipf("skipping integration test: set %s=1 to enable", envIntegrationEnabled)
	}
}

// Fixture corpus: three companies with distinct shapes. Alpha Devices
// has an internal citation chain plus shared backward references, so
// its match classifier sees high-quality links. Beta Labs only cites
// outside the corpus. Gamma's table carries two broken rows around its
// good ones.
const alphaCSV = `citing_patent_id,forward_citation_count,forward_cited_numbers,forward_cited_dates,backward_cited_numbers,backward_cited_dates,grant_date,ipc_code,assignee_name
US1000,3,"US1001,US1002,EXT900","2011-03-01,2012-07-20,2013-01-05","B100,B101","2005-02-10,2006-11-30",2010-06-15,G06F17/30,Alpha Devices
US1001,2,"US1003,EXT901","2013-09-12,2014-04-02","US1000,B100","2010-06-15,2005-02-10",2011-03-01,G06F17/30,Alpha Devices
US1002,1,EXT902,2015-05-17,B102,2008-08-08,2012-07-20,H04L29/06,Alpha Devices
US1003,0,,,"US1001,US1002,B101","2011-03-01,2012-07-20,2006-11-30",2013-09-12,G06F17/30,Alpha Devices
`

const betaCSV = `citing_patent_id,forward_citation_count,forward_cited_numbers,forward_cited_dates,backward_cited_numbers,backward_cited_dates,grant_date,ipc_code,assignee_name
US2000,2,"EXT950,EXT951","2015-06-30,2016-01-22",B200,2009-03-03,2014-02-11,C07D213/00,Beta Labs
US2001,0,,,B201,2011-12-01,2015-10-05,C07D213/00,Beta Labs
`

const gammaCSV = `citing_patent_id,forward_citation_count,forward_cited_numbers,forward_cited_dates,backward_cited_numbers,backward_cited_dates,grant_date,ipc_code,assignee_name
US3000,1,EXT960,2013-02-14,B300,2007-07-07,2012-04-18,G01N33/48,Gamma
,1,EXT961,2013-03-01,B300,2007-07-07,2012-05-05,G01N33/48,Gamma
US3002,0,,,B301,2008-01-15,not-a-date,G01N33/48,Gamma
US3001,0,,,"B300,B301","2007-07-07,2008-01-15",2012-09-09,G01N33/48,Gamma
`

// writeFixtures lays one citation table per company into a temp dir
// and returns the directory.
func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"Alpha Devices.csv": alphaCSV,
		"beta_labs.csv":     betaCSV,
		"gamma.csv":         gammaCSV,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

// loadInputs reads every fixture table through the production reader.
func loadInputs(t *testing.T, dir string, params engine.Params) []pipeline.CompanyInput {
	t.Helper()
	paths, err := ingest.ListCompanyFiles(dir)
	require.NoError(t, err)

	reader := ingest.NewCSVReader(params, nil)
	inputs := make([]pipeline.CompanyInput, 0, len(paths))
	for _, p := range paths {
		table, err := reader.ReadCompanyFile(context.Background(), p)
		require.NoError(t, err)
		inputs = append(inputs, pipeline.CompanyInput{
			CompanyName: table.CompanyName,
			Records:     table.Records,
			RowErrors:   table.RowErrors,
		})
	}
	return inputs
}

// runBatch executes one full batch over the fixture directory.
func runBatch(t *testing.T, dir string, params engine.Params, workers int) *pipeline.BatchResult {
	t.Helper()
	inputs := loadInputs(t, dir, params)
	svc := pipeline.NewService(pipeline.ServiceConfig{Params: params}, nil)
	runner := pipeline.NewRunner(svc, params, pipeline.RunnerConfig{Workers: workers}, nil)
	return runner.Run(context.Background(), inputs)
}
