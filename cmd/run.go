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
	"fmt"

	"github.com/spf13/cobra"
	"k8s.io/client-go/discovery"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/metrics/filters"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	orcv1alpha1 "github.com/Danielkiss9/orc/api/v1alpha1"
	"github.com/Danielkiss9/orc/internal/cleanup"
	"github.com/Danielkiss9/orc/internal/collector"
	"github.com/Danielkiss9/orc/internal/config"
	"github.com/Danielkiss9/orc/internal/github"
	"github.com/Danielkiss9/orc/internal/kube"
	"github.com/Danielkiss9/orc/internal/trust"
	"github.com/Danielkiss9/orc/internal/webhook"
)

// runOptions holds the manager flags
type runOptions struct {
	MetricsAddr          string
	ProbeAddr            string
	EnableLeaderElection bool
	SecureMetrics        bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run orc in-cluster with periodic scans",
		Long: `Registers the cluster with the collector, then scans on every interval
and publishes each report. An initial scan runs at startup.

Only the elected replica scans when leader election is enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			return runOperator(ctrl.SetupSignalHandler(), cfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.MetricsAddr, "metrics-bind-address", "0", "The address the metrics endpoint binds to. "+
		"Use :8443 for HTTPS or :8080 for HTTP, or leave as 0 to disable the metrics service.")
	flags.StringVar(&opts.ProbeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flags.BoolVar(&opts.EnableLeaderElection, "leader-elect", false,
		"Enable leader election. Enabling this will ensure there is only one scanning replica.")
	flags.BoolVar(&opts.SecureMetrics, "metrics-secure", true,
		"If set, the metrics endpoint is served securely via HTTPS. Use --metrics-secure=false to use HTTP instead.")

	return cmd
}

func runOperator(ctx context.Context, cfg *config.Config, opts *runOptions) error {
	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return fmt.Errorf("unable to load kubeconfig: %w", err)
	}

	kubeClient, err := kube.NewClient(restConfig, scheme)
	if err != nil {
		return err
	}

	collectorClient, err := collector.NewClient(cfg.ConsoleURL)
	if err != nil {
		return err
	}

	versions, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		setupLog.Error(err, "unable to create discovery client")
		return err
	}

	trustManager, err := bootstrapTrust(ctx, kubeClient, versions, collectorClient, cfg)
	if err != nil {
		setupLog.Error(err, "unable to establish cluster trust")
		return err
	}

	orch, err := newOrchestrator(kubeClient, cfg)
	if err != nil {
		setupLog.Error(err, "unable to create orchestrator")
		return err
	}

	sinks, err := newSinks(cfg, trustManager, collectorClient)
	if err != nil {
		setupLog.Error(err, "unable to create report sinks")
		return err
	}

	metricsOpts := metricsserver.Options{
		BindAddress:   opts.MetricsAddr,
		SecureServing: opts.SecureMetrics,
	}
	if opts.SecureMetrics {
		metricsOpts.FilterProvider = filters.WithAuthenticationAndAuthorization
	}

	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{
		Scheme:                  scheme,
		Metrics:                 metricsOpts,
		HealthProbeBindAddress:  opts.ProbeAddr,
		LeaderElection:          opts.EnableLeaderElection,
		LeaderElectionID:        cfg.OperatorName + ".orc.io",
		LeaderElectionNamespace: cfg.Namespace,
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		return err
	}

	scheduler := cleanup.NewScheduler(orch, cfg.ScanInterval.Duration, sinks...)
	if err := mgr.Add(scheduler); err != nil {
		setupLog.Error(err, "unable to add scan scheduler")
		return err
	}

	if cfg.Trigger.Enabled {
		server := webhook.NewServer(cfg.Trigger.BindAddress, cfg.Trigger.Port, scheduler, cfg.Trigger.Secret)
		if err := mgr.Add(server); err != nil {
			setupLog.Error(err, "unable to add trigger server")
			return err
		}
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		return err
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		return err
	}

	setupLog.Info("starting manager",
		"dryRun", cfg.Policy().DryRun,
		"interval", cfg.ScanInterval.Duration.String(),
		"scanners", orch.Kinds())
	if err := mgr.Start(ctx); err != nil {
		setupLog.Error(err, "problem running manager")
		return err
	}
	return nil
}

// bootstrapTrust loads or obtains the cluster token before any scan runs
func bootstrapTrust(ctx context.Context, kubeClient client.Client, versions kube.VersionSource, registrar trust.Registrar, cfg *config.Config) (*trust.Manager, error) {
	clusterInfo := func(ctx context.Context) (orcv1alpha1.ClusterInfo, error) {
		return kube.LookupClusterInfo(ctx, kubeClient, versions)
	}

	manager := trust.NewManager(kubeClient, registrar, clusterInfo, trust.Config{
		OperatorName:      cfg.OperatorName,
		Namespace:         cfg.Namespace,
		RegistrationToken: cfg.RegistrationToken,
	})
	if err := manager.Initialize(ctrl.LoggerInto(ctx, setupLog)); err != nil {
		return nil, err
	}
	return manager, nil
}

// newSinks returns the collector reporter and, when configured, the GitHub notifier
func newSinks(cfg *config.Config, tokens collector.TokenSource, sender collector.ReportSender) ([]cleanup.Sink, error) {
	sinks := []cleanup.Sink{collector.NewReporter(tokens, sender)}

	if cfg.GitHubEnabled() {
		ghClient, err := github.NewClient(cfg.GitHub.Token)
		if err != nil {
			return nil, err
		}
		notifier, err := github.NewNotifier(ghClient, cfg.GitHub.Repository, cfg.GitHub.Issue)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, notifier)
	}

	return sinks, nil
}
