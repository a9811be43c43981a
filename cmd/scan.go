/*
Copyright (c) 2025 The orc Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"k8s.io/client-go/discovery"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/Danielkiss9/orc/internal/cleanup"
	"github.com/Danielkiss9/orc/internal/collector"
	"github.com/Danielkiss9/orc/internal/config"
	"github.com/Danielkiss9/orc/internal/kube"
)

// scanOptions holds the flags of the scan subcommand
type scanOptions struct {
	Once         bool
	Publish      bool
	OutputFormat string
}

func newScanCommand(root *rootOptions) *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the cluster from outside without a manager",
		Long: `Runs scan cycles with the current kubeconfig and prints each report.

With --once a single cycle runs and the command exits. Without it, cycles
repeat on the configured interval until interrupted.

The cluster token is loaded or registered before the first cycle, so a scan
needs the same trust as the operator. Reports are only sent to the collector
when --publish is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			if opts.OutputFormat != "table" && opts.OutputFormat != "json" {
				return fmt.Errorf("unsupported output format %q: use table or json", opts.OutputFormat)
			}

			restConfig, err := ctrl.GetConfig()
			if err != nil {
				return fmt.Errorf("unable to load kubeconfig: %w", err)
			}
			kubeClient, err := kube.NewClient(restConfig, scheme)
			if err != nil {
				return err
			}
			versions, err := discovery.NewDiscoveryClientForConfig(restConfig)
			if err != nil {
				return fmt.Errorf("unable to create discovery client: %w", err)
			}
			collectorClient, err := collector.NewClient(cfg.ConsoleURL)
			if err != nil {
				return err
			}

			return runScan(ctrl.SetupSignalHandler(), cfg, opts, kubeClient, versions, collectorClient, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.Once, "once", false, "Run a single cycle and exit")
	flags.BoolVar(&opts.Publish, "publish", false, "Send reports to the collector and configured notifiers")
	flags.StringVarP(&opts.OutputFormat, "output", "o", "table", "Output format: table|json")

	return cmd
}

// runScan establishes cluster trust before any resource is read, then runs
// one cycle or the scan loop. Publishing only decides which sinks receive the
// reports.
func runScan(ctx context.Context, cfg *config.Config, opts *scanOptions, kubeClient client.Client,
	versions kube.VersionSource, collectorClient *collector.Client, out io.Writer) error {
	trustManager, err := bootstrapTrust(ctx, kubeClient, versions, collectorClient, cfg)
	if err != nil {
		return fmt.Errorf("unable to establish cluster trust: %w", err)
	}

	orch, err := newOrchestrator(kubeClient, cfg)
	if err != nil {
		return err
	}

	sinks := []cleanup.Sink{&printSink{out: out, format: opts.OutputFormat}}
	if opts.Publish {
		publishers, err := newSinks(cfg, trustManager, collectorClient)
		if err != nil {
			return err
		}
		sinks = append(sinks, publishers...)
	}

	scheduler := cleanup.NewScheduler(orch, cfg.ScanInterval.Duration, sinks...)
	ctx = ctrl.LoggerInto(ctx, ctrl.Log.WithName("scan"))
	if !opts.Once {
		return scheduler.Start(ctx)
	}

	report, err := scheduler.Trigger(ctx)
	if err != nil {
		return err
	}
	if report.Outcome() != orcv1alpha1.OutcomeSuccess {
		return fmt.Errorf("scan finished with %d errors", report.Summary.TotalErrors)
	}
	return nil
}

// printSink writes every report to the terminal
type printSink struct {
	out    io.Writer
	format string
}

func (p *printSink) Name() string {
	return "stdout"
}

func (p *printSink) Publish(_ context.Context, report *orcv1alpha1.AggregateReport) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(p.out, report)
}

func printReport(out io.Writer, report *orcv1alpha1.AggregateReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tSCANNED\tORPHANED\tSKIPPED\tERRORS")
	for _, r := range report.Reports {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			r.ResourceType, r.TotalResources, len(r.OrphanedResources), len(r.SkippedResources), len(r.Errors))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if orphans := report.Orphans(); len(orphans) > 0 {
		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RESOURCE\tREASON")
		for _, o := range orphans {
			fmt.Fprintf(w, "%s\t%s\n", o.Resource.QualifiedName(), o.Reason)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	for _, r := range report.Reports {
		for _, e := range r.Errors {
			fmt.Fprintf(out, "error: %s: %s\n", r.ResourceType, e)
		}
	}

	fmt.Fprintf(out, "\n%d scanned, %d orphaned, %d skipped, %d errors in %dms (%s)\n",
		report.Summary.TotalScanned, report.Summary.TotalOrphaned, report.Summary.TotalSkipped,
		report.Summary.TotalErrors, report.Summary.ScanDuration, report.Outcome())
	return nil
}
