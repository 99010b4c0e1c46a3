package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

// logTailInterval is the pause between range requests while following a
// log. The platform flushes logs in batches, so polling faster gains
// nothing.
const logTailInterval = 5 * time.Second

// Service tiers and logfile names the log endpoints accept.
var (
	logServices = []string{"app", "router", "worker"}
	logNames    = []string{"access", "cdn", "error", "request"}
)

// LogServices returns the accepted service tiers, sorted.
func LogServices() []string { return append([]string(nil), logServices...) }

// LogNames returns the accepted logfile names, sorted.
func LogNames() []string { return append([]string(nil), logNames...) }

// ValidateLogQuery checks a service/logname pair against the platform's
// vocabulary before any request is made.
func ValidateLogQuery(service, name string) error {
	if !contains(logServices, service) {
		return reconcile.NewValidationError(
			fmt.Sprintf("unknown service %q (one of: %s)", service, strings.Join(logServices, ", ")), nil)
	}
	if !contains(logNames, name) {
		return reconcile.NewValidationError(
			fmt.Sprintf("unknown log name %q (one of: %s)", name, strings.Join(logNames, ", ")), nil)
	}
	return nil
}

func contains(sorted []string, value string) bool {
	i := sort.SearchStrings(sorted, value)
	return i < len(sorted) && sorted[i] == value
}

// logsResponse is the wire model of the environment logs endpoint. Each
// listed download links to a signed URL the log can be read from without
// API credentials.
type logsResponse struct {
	Embedded struct {
		Downloads []logDownload `json:"downloads"`
	} `json:"_embedded"`
}

type logDownload struct {
	Name    string `json:"name"`
	Service string `json:"service"`
	Date    string `json:"date"`
	Links   struct {
		Tail *struct {
			Href string `json:"href"`
		} `json:"http://ns.nimbus.example/rel/logs/tail"`
	} `json:"_links"`
}

// TailLogURL resolves the signed URL for following today's logfile of the
// given service and name.
func (c *Client) TailLogURL(ctx context.Context, programID, envID int64, service, name string) (string, error) {
	q := url.Values{}
	q.Set("service", service)
	q.Set("name", name)
	q.Set("days", "1")

	var resp logsResponse
	path := fmt.Sprintf("api/program/%d/environment/%d/logs", programID, envID)
	if err := c.do(ctx, "GET", path, q, nil, &resp); err != nil {
		return "", err
	}

	for _, d := range resp.Embedded.Downloads {
		if d.Links.Tail != nil && d.Links.Tail.Href != "" {
			return d.Links.Tail.Href, nil
		}
	}
	return "", reconcile.NewRemoteError(
		fmt.Sprintf("no logfile %s/%s available for environment %d", service, name, envID), nil).
		WithCode(reconcile.ErrCodeNotFound)
}

// DownloadLog fetches one day's logfile archive and streams it into w.
// The platform serves the archive gzip-compressed; it is written as-is.
func (c *Client) DownloadLog(ctx context.Context, programID, envID int64, service, name, date string, w io.Writer) error {
	q := url.Values{}
	q.Set("service", service)
	q.Set("name", name)
	q.Set("date", date)

	path := fmt.Sprintf("api/program/%d/environment/%d/logs/download", programID, envID)
	return c.download(ctx, path, q, w)
}

// LogFileName is the conventional local filename for a downloaded log
// archive.
func LogFileName(envID int64, service, name, date string) string {
	return fmt.Sprintf("%s_%d-%s_%s.log.gz", date, envID, service, name)
}

// TailLog follows the logfile behind a signed tail URL, writing new
// content to w as it appears. The signed URL needs no API credentials, so
// this is a package function on a plain client rather than a Client
// method. The loop only ends with the context; cancellation is the normal
// way to stop tailing.
//
// An interval of zero polls at the default rate.
func TailLog(ctx context.Context, tailURL string, interval time.Duration, w io.Writer) error {
	if interval <= 0 {
		interval = logTailInterval
	}
	plain := &http.Client{Timeout: 30 * time.Second}

	offset, err := tailLength(ctx, plain, tailURL)
	if err != nil {
		return err
	}

	for {
		n, err := tailRange(ctx, plain, tailURL, offset, w)
		if err != nil {
			return err
		}
		offset += n

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// tailLength reads the current size of the remote logfile, the starting
// offset for range requests.
func tailLength(ctx context.Context, client *http.Client, tailURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, tailURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if resp.ContentLength < 0 {
			return 0, nil
		}
		return resp.ContentLength, nil
	case http.StatusNotFound:
		return 0, reconcile.NewRemoteError("logfile not found behind tail URL", nil).
			WithCode(reconcile.ErrCodeNotFound)
	default:
		return 0, reconcile.NewRemoteError(
			fmt.Sprintf("tail URL returned status %d", resp.StatusCode), nil)
	}
}

// tailRange fetches the logfile content past offset and writes it to w,
// returning the number of bytes consumed. A range-not-satisfiable response
// means no new content yet.
func tailRange(ctx context.Context, client *http.Client, tailURL string, offset int64, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tailURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		return io.Copy(w, resp.Body)
	case http.StatusRequestedRangeNotSatisfiable:
		return 0, nil
	default:
		return 0, reconcile.NewRemoteError(
			fmt.Sprintf("tail URL returned status %d", resp.StatusCode), nil)
	}
}
