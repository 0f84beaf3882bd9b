package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"flightsurety-service/internal/domain/entity"
)

func verifyCommand() *cobra.Command {
	var (
		url     string
		timeout time.Duration
	)
	c := &cobra.Command{
		Use:   "verify",
		Short: "Verifies the journal of a running service",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			client := &http.Client{
				Timeout:   timeout,
				Transport: otelhttp.NewTransport(http.DefaultTransport),
			}
			report, err := fetchReport(c, client, strings.TrimRight(url, "/")+"/journal/verify")
			if err != nil {
				return err
			}
			out := c.OutOrStdout()
			fmt.Fprintf(out, "records: %d\nlast index: %d\nlast hash: %s\nroots checked: %d\n",
				report.Total, report.LastIndex, report.LastHash, report.RootsChecked)
			if !report.OK {
				for _, e := range report.Errors {
					fmt.Fprintln(out, "error:", e)
				}
				return fmt.Errorf("journal failed verification with %d errors", len(report.Errors))
			}
			fmt.Fprintln(out, "journal ok")
			return nil
		},
	}
	c.Flags().StringVar(&url, "url", "http://localhost:8080", "base URL of the service")
	c.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	return c
}

func fetchReport(c *cobra.Command, client *http.Client, endpoint string) (entity.VerifyReport, error) {
	var report entity.VerifyReport
	req, err := http.NewRequestWithContext(c.Context(), http.MethodGet, endpoint, nil)
	if err != nil {
		return report, errors.Wrap(err, "build request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return report, errors.Wrap(err, "call journal/verify")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return report, fmt.Errorf("journal/verify returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return report, errors.Wrap(err, "decode report")
	}
	return report, nil
}
