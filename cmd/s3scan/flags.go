package main

import (
	"flag"
	"fmt"
	"os"
)

// Flags holds every command-line option s3scan accepts. Options with a
// short spelling register it and the long spelling against the same
// destination field; the remaining options have a long spelling only.
type Flags struct {
	Where           string
	FieldDelimiter  string
	RecordDelimiter string
	Limit           int
	Verbose         bool
	Count           bool
	WithFilename    bool
	OutputFields    string
	ThreadCount     int
	MaxRetries      int
	EstimateCost    bool
	QueueTimeout    int
	Profile         string
	Region          string

	Endpoint string
	MinIO    bool
	Insecure bool

	StatusAddr   string
	StatusSecret string

	KafkaBrokers string
	KafkaTopic   string

	Bucket      string
	Pilot       string
	MessageType string
	StartDate   string
	EndDate     string

	ExportFormat   string
	ExportDir      string
	ExportUploadTo string

	Prefixes []string
}

func parseFlags(args []string) (*Flags, error) {
	fs := flag.NewFlagSet("s3scan", flag.ContinueOnError)
	f := &Flags{}

	registerStringPair(fs, &f.Where, "w", "where", "", "SQL WHERE predicate (without the WHERE keyword)")
	registerStringPair(fs, &f.FieldDelimiter, "d", "field_delimiter", "", "CSV field delimiter (selects CSV input framing)")
	registerStringPair(fs, &f.RecordDelimiter, "D", "record_delimiter", "", "CSV record delimiter")
	registerIntPair(fs, &f.Limit, "l", "limit", 0, "maximum matched records to emit (0 = unlimited)")
	registerBoolPair(fs, &f.Verbose, "v", "verbose", false, "print a periodically refreshed progress line to stderr")
	registerBoolPair(fs, &f.Count, "c", "count", false, "print a single match count instead of records")
	registerBoolPair(fs, &f.WithFilename, "H", "with_filename", false, "prefix each record with its s3://bucket/key")
	registerStringPair(fs, &f.OutputFields, "o", "output_fields", "", "comma-separated SELECT projection list")
	registerIntPair(fs, &f.ThreadCount, "t", "thread_count", 0, "number of scan worker goroutines (0 = config default)")
	registerIntPair(fs, &f.MaxRetries, "M", "max_retries", 0, "per-key retry budget (0 = config default)")
	registerBoolPair(fs, &f.EstimateCost, "e", "estimate_cost", false, "print a dollar cost estimate to stderr after the run")
	registerIntPair(fs, &f.QueueTimeout, "T", "queue_timeout", 0, "seconds the aggregator waits for worker activity before failing (0 = config default)")

	fs.StringVar(&f.Profile, "profile", "", "AWS credentials profile")
	fs.StringVar(&f.Region, "region", "", "AWS region")

	fs.StringVar(&f.Endpoint, "endpoint", "", "S3-compatible endpoint URL (selects the MinIO backend)")
	fs.BoolVar(&f.MinIO, "minio", false, "force the MinIO backend even without --endpoint")
	fs.BoolVar(&f.Insecure, "insecure", false, "disable TLS when talking to --endpoint")

	fs.StringVar(&f.StatusAddr, "status-addr", "", "address to serve the live status dashboard on, e.g. :8700")
	fs.StringVar(&f.StatusSecret, "status-secret", "", "HS256 secret required as a bearer token on the dashboard")

	fs.StringVar(&f.KafkaBrokers, "kafka-brokers", "", "comma-separated Kafka brokers; enables the run-summary telemetry sink")
	fs.StringVar(&f.KafkaTopic, "kafka-topic", "", "Kafka topic for the run-summary telemetry sink")

	fs.StringVar(&f.Bucket, "bucket", "", "bucket to scan when --pilot selects prefixes by date range")
	fs.StringVar(&f.Pilot, "pilot", "", "pilot name; used with --message-type/--start-date/--end-date instead of positional prefixes")
	fs.StringVar(&f.MessageType, "message-type", "", "message type folder segment")
	fs.StringVar(&f.StartDate, "start-date", "", "RFC3339 start of the date range")
	fs.StringVar(&f.EndDate, "end-date", "", "RFC3339 end of the date range")

	fs.StringVar(&f.ExportFormat, "export-format", "", "write matched records to a local bundle: json or csv")
	fs.StringVar(&f.ExportDir, "export-dir", ".", "directory the export bundle is written to")
	fs.StringVar(&f.ExportUploadTo, "export-upload-to", "", "bucket to upload the export bundle to after the run")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "s3scan - parallel object-storage SQL scan\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] s3://bucket/prefix [s3://bucket/prefix ...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	f.Prefixes = fs.Args()
	return f, nil
}

func registerStringPair(fs *flag.FlagSet, dst *string, short, long, def, usage string) {
	fs.StringVar(dst, short, def, usage)
	fs.StringVar(dst, long, def, usage)
}

func registerIntPair(fs *flag.FlagSet, dst *int, short, long string, def int, usage string) {
	fs.IntVar(dst, short, def, usage)
	fs.IntVar(dst, long, def, usage)
}

func registerBoolPair(fs *flag.FlagSet, dst *bool, short, long string, def bool, usage string) {
	fs.BoolVar(dst, short, def, usage)
	fs.BoolVar(dst, long, def, usage)
}
