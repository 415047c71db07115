package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/moments/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-m string   mode: local | remote
//	-l string   local SQLite DSN
//	-d string   PostgreSQL DSN
//	-o string   object store: s3 | minio | memory
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g. "http://127.0.0.1:9000/")
//	-w string   public base URL of stored objects
//	-n string   owner email
//	-s string   session signing secret
//	-t int      session validity, minutes
//	-k int      upload concurrency
//	-x string   export directory
//	-j string   log backend: slog | zap
//
// os.Args is filtered with flagx.FilterArgs first so unrelated flags
// (for example -c) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-m", "-l", "-d", "-o", "-u", "-p", "-b", "-g", "-e", "-w", "-n", "-s", "-t", "-k", "-x", "-j",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Mode, "m", config.Mode, "mode: local or remote")
	fs.StringVar(&config.LocalDSN, "l", config.LocalDSN, "local SQLite DSN")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.ObjectStore, "o", config.ObjectStore, "object store: s3, minio or memory")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3PublicBaseURL, "w", config.S3PublicBaseURL, "public base URL of stored objects")
	fs.StringVar(&config.OwnerEmail, "n", config.OwnerEmail, "owner email")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	sessionValidity := fs.Int("t", int(config.SessionValidityDuration.Minutes()), "session validity (in minutes)")
	fs.IntVar(&config.UploadConcurrency, "k", config.UploadConcurrency, "upload concurrency")
	fs.StringVar(&config.ExportDir, "x", config.ExportDir, "export directory")
	fs.StringVar(&config.LogBackend, "j", config.LogBackend, "log backend: slog or zap")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Minute
}
