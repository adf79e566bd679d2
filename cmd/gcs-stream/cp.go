package main

import (
	"context"
	"errors"
	"flag"
	"io"

	"github.com/dvcrn/gcs-stream/internal/apperr"
	"github.com/dvcrn/gcs-stream/internal/config"
	"github.com/dvcrn/gcs-stream/internal/credentials"
	serverhttp "github.com/dvcrn/gcs-stream/internal/http"
	"github.com/dvcrn/gcs-stream/internal/logger"
	"github.com/dvcrn/gcs-stream/internal/storage"
	"github.com/google/subcommands"
	"github.com/google/uuid"
)

type cpCmd struct {
	stdin  io.Reader
	stdout io.Writer
}

func newCpCmd(stdin io.Reader, stdout io.Writer) *cpCmd {
	return &cpCmd{stdin: stdin, stdout: stdout}
}

func (*cpCmd) Name() string     { return "cp" }
func (*cpCmd) Synopsis() string { return "Transfer a single file" }
func (*cpCmd) Usage() string {
	return `cp <SRC> <DST>

  Copy one object between stdin/stdout and Cloud Storage. Exactly one of SRC
  and DST must be "-"; the other is a gs://bucket/key URL.

  Authentication uses the service account key named by
  GOOGLE_APPLICATION_CREDENTIALS, or the compute metadata server when unset.

  Example:
    tar c dir | gcs-stream cp - gs://my-bucket/backups/dir.tar
    gcs-stream cp gs://my-bucket/backups/dir.tar - | tar x
`
}

func (*cpCmd) SetFlags(_ *flag.FlagSet) {}

func (c *cpCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	src, dst := f.Arg(0), f.Arg(1)

	// Checked before the configuration is read.
	if _, _, err := storage.ResolveTransfer(src, dst); err != nil {
		logger.Get().Error().Err(err).Msg("Invalid arguments")
		if errors.Is(err, storage.ErrUsage) {
			f.Usage()
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Get().Error().Err(err).Msg("Failed to load configuration")
		return subcommands.ExitFailure
	}

	logger.WithInvocationID(uuid.NewString())

	httpClient := serverhttp.NewHTTPClient(cfg.Timeout)
	provider := credentials.NewTokenProvider(credentials.Options{
		CredentialsPath:  cfg.CredentialsPath,
		TokenURL:         cfg.TokenURL,
		ScopeBaseURL:     cfg.ScopeBaseURL,
		MetadataTokenURL: cfg.MetadataTokenURL,
		HTTPClient:       httpClient,
	})
	client := storage.NewClient(provider,
		storage.WithHTTPClient(httpClient),
		storage.WithEndpoints(cfg.StorageBaseURL, cfg.UploadBaseURL),
		storage.WithBufferSize(cfg.BufferSize),
	)

	logger.Get().Debug().
		Str("src", src).
		Str("dst", dst).
		Str("auth", provider.Name()).
		Msg("Starting transfer")

	if err := client.Copy(ctx, src, dst, c.stdin, c.stdout); err != nil {
		logger.Get().Error().
			Err(err).
			Str("kind", apperr.KindOf(err).String()).
			Msg("Transfer failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
