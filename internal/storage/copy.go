package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dvcrn/gcs-stream/internal/apperr"
)

// StdStream stands for stdin as a source and stdout as a destination.
const StdStream = "-"

// ErrUsage marks a SRC/DST pair that is not exactly one "-" and one locator.
var ErrUsage = errors.New("one of SRC or DST should be -")

// Direction says which way bytes flow.
type Direction int

const (
	DirectionUpload Direction = iota
	DirectionDownload
)

func (d Direction) String() string {
	if d == DirectionDownload {
		return "download"
	}
	return "upload"
}

// ResolveTransfer validates a SRC/DST pair and parses the remote side. It never
// touches the network.
func ResolveTransfer(src, dst string) (Direction, ObjectLocator, error) {
	switch {
	case src == StdStream && dst != StdStream:
		loc, err := ParseLocator(dst)
		return DirectionUpload, loc, err
	case src != StdStream && dst == StdStream:
		loc, err := ParseLocator(src)
		return DirectionDownload, loc, err
	default:
		return 0, ObjectLocator{}, apperr.NewFatal(fmt.Errorf("%w (got SRC=%q DST=%q)", ErrUsage, src, dst))
	}
}

// Copy runs the transfer described by src and dst, reading stdin for uploads
// and writing stdout for downloads.
func (c *Client) Copy(ctx context.Context, src, dst string, stdin io.Reader, stdout io.Writer) error {
	direction, loc, err := ResolveTransfer(src, dst)
	if err != nil {
		return err
	}

	switch direction {
	case DirectionDownload:
		return c.Download(ctx, loc, stdout)
	default:
		return c.Upload(ctx, loc, stdin)
	}
}
