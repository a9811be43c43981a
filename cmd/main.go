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
	"flag"
	"fmt"
	"os"
	"time"

	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// to ensure that exec-entrypoint and run can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/Danielkiss9/orc/internal/config"
	"github.com/Danielkiss9/orc/internal/kube"
	"github.com/Danielkiss9/orc/internal/orchestrator"
	"github.com/Danielkiss9/orc/internal/scanner"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

// rootOptions holds the flags shared by every subcommand
type rootOptions struct {
	ConfigPath string
	ConsoleURL string
	Namespace  string
	DryRun     bool
	BatchSize  int
	Interval   time.Duration
	Scanners   []string
	zapOptions zap.Options
}

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{zapOptions: zap.Options{Development: true}}

	cmd := &cobra.Command{
		Use:   "orc",
		Short: "Find and clean up orphaned Kubernetes resources",
		Long: `orc scans a cluster for resources that nothing uses anymore: empty
namespaces, idle nodes, PodDisruptionBudgets without targets, unbound
PersistentVolumes and unused StorageClasses.

Dry-run is on by default. Nothing is deleted until dryRun is set to false.

Examples:
  # Run in-cluster as an operator with periodic scans
  orc run --config /etc/orc/config.yaml

  # Scan once from a workstation and print the findings
  orc scan --once

  # Scan only namespaces and print JSON
  orc scan --once --scanners Namespace -o json`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts.zapOptions)))
		},
	}

	opts.bindFlags(cmd)

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newScanCommand(opts))
	return cmd
}

// bindFlags registers the shared flags on cmd
func (o *rootOptions) bindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&o.ConfigPath, "config", "", "Path to the YAML config file")
	flags.StringVar(&o.ConsoleURL, "console-url", "", "Collector base URL (overrides config)")
	flags.StringVar(&o.Namespace, "namespace", "", "Namespace holding the cluster token Secret (overrides config)")
	flags.BoolVar(&o.DryRun, "dry-run", true, "Record orphans without deleting them (overrides config)")
	flags.IntVar(&o.BatchSize, "batch-size", 0, "Resources evaluated concurrently per batch (overrides config)")
	flags.DurationVar(&o.Interval, "interval", 0, "Time between scheduled scans (overrides config)")
	flags.StringSliceVar(&o.Scanners, "scanners", nil, "Scanner kinds to enable, all when empty (overrides config)")

	zapFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	o.zapOptions.BindFlags(zapFlags)
	flags.AddGoFlagSet(zapFlags)

	// controller-runtime registers --kubeconfig on the standard flag set
	flags.AddGoFlagSet(flag.CommandLine)
}

// loadConfig reads the config file and applies any flags set on the command line
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("console-url") {
		cfg.ConsoleURL = o.ConsoleURL
	}
	if flags.Changed("namespace") {
		cfg.Namespace = o.Namespace
	}
	if flags.Changed("dry-run") {
		dryRun := o.DryRun
		cfg.DryRun = &dryRun
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = o.BatchSize
	}
	if flags.Changed("interval") {
		cfg.ScanInterval.Duration = o.Interval
	}
	if flags.Changed("scanners") {
		cfg.Scanners = o.Scanners
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newOrchestrator builds the enabled scanners against the gateway
func newOrchestrator(gateway kube.Gateway, cfg *config.Config) (*orchestrator.Orchestrator, error) {
	registry, err := scanner.NewDefaultRegistry(gateway).Select(cfg.Scanners)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(registry, cfg.Policy())
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
