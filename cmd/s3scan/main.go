// Command s3scan runs one parallel SQL scan over an S3 (or S3-compatible)
// prefix and prints matched records to stdout.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/seike460/s3scan/internal/config"
	"github.com/seike460/s3scan/internal/dashboard"
	"github.com/seike460/s3scan/internal/engine"
	"github.com/seike460/s3scan/internal/export"
	"github.com/seike460/s3scan/internal/logger"
	"github.com/seike460/s3scan/internal/prefixgen"
	modernS3 "github.com/seike460/s3scan/internal/s3"
	"github.com/seike460/s3scan/internal/scanclient"
	"github.com/seike460/s3scan/internal/telemetry"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	f, err := parseFlags(args)
	if err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "s3scan: loading config: %v\n", err)
		return 1
	}
	applyFlagOverrides(cfg, f)

	logger.InitializeLogger(cfg)
	log := logger.GetLogger().SetComponent("cli")

	client, err := buildScanClient(cfg, f)
	if err != nil {
		log.Error("failed to construct scan client: %v", err)
		return 1
	}

	prefixes, err := resolvePrefixes(f)
	if err != nil {
		log.Error("failed to resolve scan prefixes: %v", err)
		return 1
	}

	query := engine.Query{
		Projection:      f.OutputFields,
		Where:           f.Where,
		Limit:           f.Limit,
		Count:           f.Count,
		WithFilename:    f.WithFilename,
		FieldDelimiter:  f.FieldDelimiter,
		RecordDelimiter: f.RecordDelimiter,
		MaxRetries:      firstPositive(f.MaxRetries, cfg.Engine.MaxRetries),
	}

	exporting := f.ExportFormat != ""
	var recordBuf bytes.Buffer
	var outWriter io.Writer = os.Stdout
	if exporting {
		outWriter = io.MultiWriter(os.Stdout, &recordBuf)
	}

	var reporter *engine.StatusReporter
	var discovered int64
	if cfg.Dashboard.Enabled {
		reporter = engine.NewStatusReporter(os.Stderr, time.Second, &discovered)
	}

	var dash *dashboard.Server
	if cfg.Dashboard.Enabled && reporter != nil {
		dash = dashboard.NewServer(cfg.Dashboard.Addr, reporter, f.StatusSecret)
		go func() {
			if err := dash.ListenAndServe(); err != nil {
				log.Warn("dashboard server stopped: %v", err)
			}
		}()
		defer dash.Close()
	}

	opts := engine.RunOptions{
		Query:          query,
		Prefixes:       prefixes,
		ThreadCount:    firstPositive(f.ThreadCount, cfg.Engine.ThreadCount),
		Verbose:        f.Verbose,
		EstimateCost:   f.EstimateCost,
		QueueTimeout:   time.Duration(firstPositive(f.QueueTimeout, cfg.Engine.QueueTimeout)) * time.Second,
		StatusInterval: time.Second,
		Out:            outWriter,
		StatusOut:      os.Stderr,
		Status:         reporter,
	}

	ctx := context.Background()
	result := engine.Run(ctx, client, opts)

	if result.Cost != nil {
		fmt.Fprintln(os.Stderr, result.Cost.String())
	}

	if exporting {
		if err := exportRecords(cfg, f, &recordBuf); err != nil {
			log.Error("export failed: %v", err)
		}
	}

	publishTelemetry(cfg, query, result)

	if result.Summary.FatalErr != nil {
		log.Error("scan failed: %v", result.Summary.FatalErr)
		return 1
	}
	return 0
}

func applyFlagOverrides(cfg *config.Config, f *Flags) {
	if f.Profile != "" {
		cfg.AWS.Profile = f.Profile
	}
	if f.Region != "" {
		cfg.AWS.Region = f.Region
	}
	if f.Endpoint != "" {
		cfg.AWS.Endpoint = f.Endpoint
	}
	if f.StatusAddr != "" {
		cfg.Dashboard.Enabled = true
		cfg.Dashboard.Addr = f.StatusAddr
	}
	if f.KafkaBrokers != "" {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.Brokers = f.KafkaBrokers
	}
	if f.KafkaTopic != "" {
		cfg.Telemetry.Topic = f.KafkaTopic
	}
}

// buildScanClient picks the AWS or MinIO backend based on --minio and
// --endpoint.
func buildScanClient(cfg *config.Config, f *Flags) (engine.ScanClient, error) {
	if f.MinIO || cfg.AWS.Endpoint != "" {
		endpoint := cfg.AWS.Endpoint
		if endpoint == "" {
			return nil, fmt.Errorf("--minio requires --endpoint")
		}
		host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")

		cl, err := minio.New(host, &minio.Options{
			Creds:  credentials.NewEnvAWS(),
			Secure: !f.Insecure,
		})
		if err != nil {
			return nil, fmt.Errorf("constructing minio client: %w", err)
		}
		return scanclient.NewMinIOClient(cl), nil
	}

	var sess *session.Session
	if cfg.AWS.Endpoint != "" {
		sess = modernS3.NewClientWithEndpoint(cfg.GetRegion(), cfg.AWS.Endpoint, true).Session()
	} else {
		sess = modernS3.NewClient(cfg.GetRegion()).Session()
	}
	return scanclient.NewAWSClient(sess), nil
}

// resolvePrefixes returns the "s3://bucket/prefix" strings the Lister
// walks, either the positional arguments the caller typed, or the
// date-range expansion of --pilot/--message-type/--start-date/--end-date.
func resolvePrefixes(f *Flags) ([]string, error) {
	if f.Pilot == "" {
		if len(f.Prefixes) == 0 {
			return nil, fmt.Errorf("no prefixes given: pass s3://bucket/prefix or --pilot")
		}
		return f.Prefixes, nil
	}

	if f.Bucket == "" {
		return nil, fmt.Errorf("--pilot requires --bucket")
	}
	if f.MessageType == "" {
		return nil, fmt.Errorf("--pilot requires --message-type")
	}
	start, err := time.Parse(time.RFC3339, f.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid --start-date: %w", err)
	}
	end, err := time.Parse(time.RFC3339, f.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid --end-date: %w", err)
	}

	return prefixgen.Prefixes(f.Bucket, f.Pilot, f.MessageType, start, end), nil
}

func exportRecords(cfg *config.Config, f *Flags, buf *bytes.Buffer) error {
	records := decodeRecords(buf)
	if len(records) == 0 {
		return nil
	}

	base := strings.TrimRight(f.ExportDir, "/") + "/s3scan-export"
	var paths []string

	switch f.ExportFormat {
	case "json":
		path := base + ".json"
		if err := export.WriteJSONNewline(records, path); err != nil {
			return err
		}
		paths = append(paths, path)
	case "csv":
		path := base + ".csv"
		if err := export.WriteCSV(records, path); err != nil {
			return err
		}
		paths = append(paths, path)
	default:
		return fmt.Errorf("unknown --export-format %q", f.ExportFormat)
	}

	if f.ExportUploadTo == "" {
		return nil
	}

	zipPath := base + ".zip"
	if err := export.ZipFiles(zipPath, paths); err != nil {
		return err
	}
	client := modernS3.NewClient(cfg.GetRegion())
	return export.UploadBundle(client, f.ExportUploadTo, []string{zipPath})
}

func decodeRecords(buf *bytes.Buffer) []map[string]interface{} {
	var records []map[string]interface{}
	for _, line := range strings.Split(buf.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec map[string]interface{}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func publishTelemetry(cfg *config.Config, query engine.Query, result engine.Result) {
	if !cfg.Telemetry.Enabled {
		return
	}
	brokers := strings.Split(cfg.Telemetry.Brokers, ",")
	pub := telemetry.NewPublisher(brokers, cfg.Telemetry.Topic)
	defer pub.Close()

	summary := telemetry.RunSummary{
		RunID:           logger.GetLogger().RunID(),
		Query:           query.Expression(),
		RecordsMatched:  result.Summary.RecordsMatched,
		BytesScanned:    result.Summary.BytesScanned,
		BytesReturned:   result.Summary.BytesReturned,
		FilesCompleted:  result.Summary.FilesCompleted,
		FilesDiscovered: result.Summary.FilesDiscovered,
		StoppedEarly:    result.Summary.StoppedEarly,
	}
	if result.Summary.FatalErr != nil {
		summary.Failed = true
		summary.ErrorMessage = result.Summary.FatalErr.Error()
	}
	if result.Cost != nil {
		summary.EstimatedCost = result.Cost.Total
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pub.Publish(ctx, summary); err != nil {
		logger.GetLogger().Warn("publishing run-summary telemetry: %v", err)
	}
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
