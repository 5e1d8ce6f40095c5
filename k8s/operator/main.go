package main

import (
	"log/slog"
	"os"

	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	flockv1alpha1 "github.com/absmach/flock/k8s/api/v1alpha1"
	"github.com/absmach/flock/k8s/config"
	"github.com/absmach/flock/k8s/operator/controller"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	_ = clientgoscheme.AddToScheme(scheme)
	_ = flockv1alpha1.AddToScheme(scheme)
}

func main() {
	opts := zap.Options{
		Development: true,
	}
	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	cfg, err := config.Load()
	if err != nil {
		setupLog.Error(err, "unable to load operator configuration")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		setupLog.Error(err, "invalid operator configuration")
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		setupLog.Error(err, "unable to parse log level", "level", cfg.LogLevel)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	restConfig, err := ctrl.GetConfig()
	if err != nil {
		setupLog.Error(err, "unable to get kubeconfig")
		os.Exit(1)
	}

	managerOpts := ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: cfg.MetricsAddr},
		HealthProbeBindAddress: cfg.HealthProbeAddr,
		LeaderElection:         cfg.LeaderElection,
		LeaderElectionID:       "flock-operator",
	}
	if cfg.Namespace != "" {
		managerOpts.Cache = cache.Options{
			DefaultNamespaces: map[string]cache.Config{cfg.Namespace: {}},
		}
	}

	mgr, err := ctrl.NewManager(restConfig, managerOpts)
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		os.Exit(1)
	}

	fleetController := controller.NewTrainerFleetController(
		mgr.GetClient(),
		logger,
		cfg.DefaultTrainerImage,
		cfg.DefaultBrokerURL,
	)
	if err := fleetController.SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "TrainerFleet")
		os.Exit(1)
	}

	monitor := controller.NewFleetMonitor(
		mgr.GetClient(),
		logger,
		cfg.CheckInterval,
		cfg.DegradedThreshold,
	)
	if err := mgr.Add(monitor); err != nil {
		setupLog.Error(err, "unable to add fleet monitor")
		os.Exit(1)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		os.Exit(1)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		os.Exit(1)
	}

	setupLog.Info("starting manager")
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		os.Exit(1)
	}
}
