package controller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	flockv1alpha1 "github.com/absmach/flock/k8s/api/v1alpha1"
)

// FleetMonitor periodically sweeps TrainerFleets for fleets that have
// had no ready trainers past the degraded threshold and marks them
// Failed. The reconciler only reacts to Deployment events, so a fleet
// stuck on an unpullable image would otherwise sit in Initializing
// forever. Satisfies manager.Runnable.
type FleetMonitor struct {
	client            client.Client
	logger            *slog.Logger
	checkInterval     time.Duration
	degradedThreshold time.Duration
}

func NewFleetMonitor(client client.Client, logger *slog.Logger, checkInterval, degradedThreshold time.Duration) *FleetMonitor {
	return &FleetMonitor{
		client:            client,
		logger:            logger,
		checkInterval:     checkInterval,
		degradedThreshold: degradedThreshold,
	}
}

func (m *FleetMonitor) Start(ctx context.Context) error {
	m.logger.Info("starting fleet monitor",
		"check_interval", m.checkInterval.String(),
		"degraded_threshold", m.degradedThreshold.String())

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("fleet monitor stopping")

			return nil
		case <-ticker.C:
			if err := m.checkAllFleets(ctx); err != nil {
				m.logger.Error("failed to check fleets", "error", err)
			}
		}
	}
}

func (m *FleetMonitor) checkAllFleets(ctx context.Context) error {
	var fleets flockv1alpha1.TrainerFleetList
	if err := m.client.List(ctx, &fleets); err != nil {
		return err
	}

	for i := range fleets.Items {
		fleet := &fleets.Items[i]
		if err := m.checkFleet(ctx, fleet); err != nil {
			m.logger.Error("failed to check fleet",
				"fleet", fleet.Name,
				"error", err)
		}
	}

	return nil
}

func (m *FleetMonitor) checkFleet(ctx context.Context, fleet *flockv1alpha1.TrainerFleet) error {
	if fleet.Status.ReadyReplicas > 0 || fleet.Status.Phase == flockv1alpha1.FleetPhaseFailed {
		return nil
	}

	ready := findCondition(fleet.Status.Conditions, flockv1alpha1.FleetConditionReady)
	if ready == nil || ready.Status == metav1.ConditionTrue {
		// The reconciler has not assessed this fleet yet.
		return nil
	}

	notReadyFor := time.Since(ready.LastTransitionTime.Time)
	if notReadyFor < m.degradedThreshold {
		return nil
	}

	m.logger.Warn("fleet has had no ready trainers past the degraded threshold",
		"fleet", fleet.Name,
		"namespace", fleet.Namespace,
		"not_ready_for", notReadyFor.String())

	fleet.Status.Phase = flockv1alpha1.FleetPhaseFailed
	fleet.Status.Conditions = mergeConditions(fleet.Status.Conditions, flockv1alpha1.FleetCondition{
		Type:               flockv1alpha1.FleetConditionReady,
		Status:             metav1.ConditionFalse,
		LastTransitionTime: *ready.LastTransitionTime.DeepCopy(),
		Reason:             "TrainersUnavailable",
		Message:            fmt.Sprintf("no trainers ready for %s", notReadyFor.Round(time.Second)),
	})

	return m.client.Status().Update(ctx, fleet)
}
