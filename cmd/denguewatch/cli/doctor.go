package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newDoctorCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run health checks against a denguewatch server",
		Long: `Run a series of diagnostic checks against a denguewatch server:

  1. Reachability, can we connect at all?
  2. Server health, does /health report ok (including the database)?
  3. Records, has the server finished its first load?
  4. Store sync, does the server hold as many records as the database?
  5. Map coverage, does every region with records appear on the map?

Examples:
  denguewatch doctor
  denguewatch doctor --server https://dengue.example.org`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := resolveServer(opts.server)
			if err != nil {
				return err
			}
			return runDoctor(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), NewClient(server))
		},
	}
}

type checkResult struct {
	name   string
	ok     bool
	detail string
	warn   bool
}

func runDoctor(ctx context.Context, out, errOut io.Writer, client *APIClient) error {
	fmt.Fprintf(errOut, "Running health checks against %s\n\n", client.BaseURL)

	checks := []checkResult{checkReachable(ctx, client)}

	health, healthCheck := checkHealth(ctx, client)
	checks = append(checks, healthCheck)

	if health != nil {
		checks = append(checks, checkLoaded(health))
		checks = append(checks, checkSync(health))
		checks = append(checks, checkCoverage(ctx, client))
	} else {
		checks = append(checks, checkResult{
			name:   "Records",
			detail: "could not determine (health endpoint unreachable)",
		})
	}

	allOK := true
	hasWarnings := false
	for _, c := range checks {
		icon := "✓"
		if !c.ok && !c.warn {
			icon = "✗"
			allOK = false
		} else if c.warn {
			icon = "⚠"
			hasWarnings = true
		}
		fmt.Fprintf(out, "  %s  %-14s %s\n", icon, c.name, c.detail)
	}

	fmt.Fprintln(out)
	switch {
	case allOK && !hasWarnings:
		fmt.Fprintln(errOut, "All checks passed ✓")
	case allOK:
		fmt.Fprintln(errOut, "Checks passed with warnings ⚠")
	default:
		fmt.Fprintln(errOut, "Some checks failed ✗")
		return fmt.Errorf("health check failed")
	}
	return nil
}

func checkReachable(ctx context.Context, client *APIClient) checkResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.BaseURL+"/health", nil)
	if err != nil {
		return checkResult{name: "Reachability", detail: err.Error()}
	}
	hc := &http.Client{Timeout: 10 * time.Second, Transport: client.HTTPClient.Transport}

	start := time.Now()
	resp, err := hc.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return checkResult{name: "Reachability", detail: fmt.Sprintf("cannot connect: %v", err)}
	}
	resp.Body.Close()

	return checkResult{
		name:   "Reachability",
		ok:     true,
		detail: fmt.Sprintf("connected (%dms)", elapsed.Milliseconds()),
	}
}

func checkHealth(ctx context.Context, client *APIClient) (*HealthResponse, checkResult) {
	health, err := client.Health(ctx)
	if err != nil {
		return nil, checkResult{
			name:   "Server Health",
			detail: fmt.Sprintf("health endpoint error: %v", err),
		}
	}
	return health, checkResult{
		name:   "Server Health",
		ok:     health.Status == "ok",
		detail: "status=" + health.Status,
	}
}

func checkLoaded(health *HealthResponse) checkResult {
	if !health.Loaded {
		return checkResult{
			name:   "Records",
			ok:     true,
			warn:   true,
			detail: "initial load has not completed",
		}
	}
	return checkResult{
		name:   "Records",
		ok:     true,
		detail: fmt.Sprintf("%d loaded", health.Records),
	}
}

func checkSync(health *HealthResponse) checkResult {
	if health.Store == nil {
		return checkResult{
			name:   "Store Sync",
			ok:     true,
			detail: "skipped (server reports no store counts)",
		}
	}
	if int64(health.Records) != health.Store.Records {
		return checkResult{
			name: "Store Sync",
			ok:   true,
			warn: true,
			detail: fmt.Sprintf("server holds %d records, store has %d (run 'denguewatch records refresh')",
				health.Records, health.Store.Records),
		}
	}
	return checkResult{
		name:   "Store Sync",
		ok:     true,
		detail: fmt.Sprintf("%d records, %d activity entries", health.Store.Records, health.Store.Activity),
	}
}

func checkCoverage(ctx context.Context, client *APIClient) checkResult {
	resp, err := client.Regions(ctx)
	if err != nil {
		return checkResult{name: "Map Coverage", detail: err.Error()}
	}
	if len(resp.Unmatched) > 0 {
		return checkResult{
			name:   "Map Coverage",
			ok:     true,
			warn:   true,
			detail: "not on map: " + strings.Join(resp.Unmatched, ", "),
		}
	}
	return checkResult{
		name:   "Map Coverage",
		ok:     true,
		detail: fmt.Sprintf("%d regions", len(resp.Regions)),
	}
}
