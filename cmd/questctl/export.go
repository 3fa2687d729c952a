package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"questchain/rpc"
	"questchain/storage/archive"
)

const jwtSecretEnv = "QUESTCHAIN_QUERY_JWT_SECRET"

func exportEvents(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export-events", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	driver := fs.String("driver", archive.DriverSQLite, "archive driver (sqlite or postgres)")
	dsn := fs.String("dsn", "", "archive data source name")
	out := fs.String("out", "", "parquet output path")
	eventType := fs.String("type", "", "only export this event type")
	from := fs.Int64("from", 0, "minimum event timestamp")
	to := fs.Int64("to", 0, "maximum event timestamp")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*dsn) == "" || strings.TrimSpace(*out) == "" {
		return fmt.Errorf("export-events: -dsn and -out are required: %w", errUsage)
	}
	store, err := archive.Open(archive.Config{Driver: *driver, DSN: *dsn})
	if err != nil {
		return fmt.Errorf("export-events: %w", err)
	}
	defer store.Close()

	file, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("export-events: %w", err)
	}
	n, err := store.ExportParquet(context.Background(), file, archive.Filter{
		Type:          *eventType,
		FromTimestamp: *from,
		ToTimestamp:   *to,
	})
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("export-events: %w", err)
	}
	fmt.Fprintf(stdout, "exported %d events to %s\n", n, *out)
	return nil
}

func issueToken(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	subject := fs.String("subject", "", "token subject")
	issuer := fs.String("issuer", "", "token issuer")
	audience := fs.String("audience", "", "token audience")
	scopes := fs.String("scopes", "", "space separated scopes")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*subject) == "" {
		return fmt.Errorf("token: -subject is required: %w", errUsage)
	}
	secret := strings.TrimSpace(os.Getenv(jwtSecretEnv))
	if secret == "" {
		return fmt.Errorf("token: %s is not set", jwtSecretEnv)
	}
	cfg := rpc.AuthConfig{Secret: secret, Issuer: *issuer, Audience: *audience}
	signed, err := rpc.IssueToken(cfg, *subject, strings.Fields(*scopes), *ttl, time.Now())
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	fmt.Fprintln(stdout, signed)
	return nil
}
