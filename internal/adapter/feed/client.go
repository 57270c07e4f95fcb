package feed

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/couchcryptid/ccaa-covid-etl/internal/domain"
	"github.com/couchcryptid/ccaa-covid-etl/internal/observability"
)

// Fetcher downloads the accumulated-cases feed and writes a normalized UTF-8
// copy of it to disk.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewFetcher creates a feed fetcher whose requests time out after timeout.
func NewFetcher(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Fetch downloads url, decodes it from Latin-1, strips footnote asterisks, and
// writes the result to outputPath. The file is replaced atomically on success
// and removed on any failure.
func (f *Fetcher) Fetch(ctx context.Context, url, outputPath string) (err error) {
	start := time.Now()
	defer func() {
		f.metrics.FetchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			_ = os.Remove(outputPath)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", domain.ErrTransport, err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: feed request: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: feed status %d: %s", domain.ErrTransport, resp.StatusCode, bytes.TrimSpace(body))
	}

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), filepath.Base(outputPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", domain.ErrIO, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // already gone after a successful rename

	body := &countingReader{r: resp.Body}
	normErr := Normalize(tmp, body)
	closeErr := tmp.Close()
	f.metrics.FetchBytes.Add(float64(body.n))

	switch {
	case body.err != nil:
		return fmt.Errorf("%w: read feed body: %w", domain.ErrTransport, body.err)
	case normErr != nil:
		return fmt.Errorf("%w: write %s: %w", domain.ErrIO, tmpName, normErr)
	case closeErr != nil:
		return fmt.Errorf("%w: close %s: %w", domain.ErrIO, tmpName, closeErr)
	}

	if err := os.Rename(tmpName, outputPath); err != nil {
		return fmt.Errorf("%w: replace %s: %w", domain.ErrIO, outputPath, err)
	}

	f.logger.Info("feed fetched",
		"url", url,
		"path", outputPath,
		"bytes", body.n,
		"duration", time.Since(start),
	)
	return nil
}

// Normalize copies src to dst line by line, decoding ISO-8859-1 to UTF-8,
// removing every '*', and rewriting CRLF endings as LF. A final line without
// a terminator is written without one.
func Normalize(dst io.Writer, src io.Reader) error {
	br := bufio.NewReader(charmap.ISO8859_1.NewDecoder().Reader(src))
	bw := bufio.NewWriter(dst)

	for {
		line, err := br.ReadString('\n')
		if line != "" {
			terminated := strings.HasSuffix(line, "\n")
			line = strings.TrimRight(line, "\r\n")
			if _, werr := bw.WriteString(strings.ReplaceAll(line, "*", "")); werr != nil {
				return werr
			}
			if terminated {
				if werr := bw.WriteByte('\n'); werr != nil {
					return werr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// countingReader records the bytes read and the first non-EOF read error so
// Fetch can tell a broken download from a failed write.
type countingReader struct {
	r   io.Reader
	n   int64
	err error
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if err != nil && !errors.Is(err, io.EOF) && c.err == nil {
		c.err = err
	}
	return n, err
}
