package controller

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	flockv1alpha1 "github.com/absmach/flock/k8s/api/v1alpha1"
)

const (
	fleetLabel      = "flock.absmach.fr/fleet"
	requeueInterval = 2 * time.Minute
)

// TrainerFleetController reconciles TrainerFleet resources into
// Deployments of trainer pods. Trainer liveness is not tracked here:
// trainers announce themselves to the coordinator over MQTT, and the
// coordinator's registry is the authority on which of them are alive.
type TrainerFleetController struct {
	client.Client
	Scheme *runtime.Scheme

	logger           *slog.Logger
	defaultImage     string
	defaultBrokerURL string
}

func NewTrainerFleetController(client client.Client, logger *slog.Logger, defaultImage, defaultBrokerURL string) *TrainerFleetController {
	return &TrainerFleetController{
		Client:           client,
		logger:           logger,
		defaultImage:     defaultImage,
		defaultBrokerURL: defaultBrokerURL,
	}
}

func (r *TrainerFleetController) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := r.logger.With("fleet", req.NamespacedName.String())

	var fleet flockv1alpha1.TrainerFleet
	if err := r.Get(ctx, req.NamespacedName, &fleet); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		log.Error("failed to get TrainerFleet", "error", err)

		return ctrl.Result{}, err
	}

	desired, err := r.buildDeployment(&fleet)
	if err != nil {
		log.Error("invalid fleet spec", "error", err)

		return ctrl.Result{}, err
	}

	deploymentName := types.NamespacedName{
		Name:      desired.Name,
		Namespace: desired.Namespace,
	}

	var deployment appsv1.Deployment
	err = r.Get(ctx, deploymentName, &deployment)
	switch {
	case apierrors.IsNotFound(err):
		if err := controllerutil.SetControllerReference(&fleet, desired, r.Scheme); err != nil {
			return ctrl.Result{}, err
		}

		log.Info("creating trainer deployment", "deployment", desired.Name)
		if err := r.Create(ctx, desired); err != nil {
			log.Error("failed to create deployment", "error", err)

			return ctrl.Result{}, err
		}
		deployment = *desired
	case err != nil:
		log.Error("failed to get deployment", "error", err)

		return ctrl.Result{}, err
	default:
		if deploymentNeedsUpdate(&deployment, desired) {
			deployment.Spec.Replicas = desired.Spec.Replicas
			deployment.Spec.Template = desired.Spec.Template

			log.Info("updating trainer deployment", "deployment", deployment.Name)
			if err := r.Update(ctx, &deployment); err != nil {
				log.Error("failed to update deployment", "error", err)

				return ctrl.Result{}, err
			}
		}
	}

	if err := r.updateFleetStatus(ctx, &fleet, &deployment); err != nil {
		log.Error("failed to update fleet status", "error", err)

		return ctrl.Result{}, err
	}

	return ctrl.Result{RequeueAfter: requeueInterval}, nil
}

func (r *TrainerFleetController) buildDeployment(fleet *flockv1alpha1.TrainerFleet) (*appsv1.Deployment, error) {
	image := fleet.Spec.Image
	if image == "" {
		image = r.defaultImage
	}
	if image == "" {
		return nil, fmt.Errorf("fleet %s has no image and no default is configured", fleet.Name)
	}

	if fleet.Spec.Connection.DomainID == "" || fleet.Spec.Connection.ChannelID == "" {
		return nil, fmt.Errorf("fleet %s connection requires domainId and channelId", fleet.Name)
	}

	brokerURL := fleet.Spec.Connection.BrokerURL
	if brokerURL == "" {
		brokerURL = r.defaultBrokerURL
	}

	replicas := int32(1)
	if fleet.Spec.Replicas != nil {
		replicas = *fleet.Spec.Replicas
	}

	// Each pod runs the trainer daemon with its pod name as the
	// trainer identity so MQTT client IDs stay unique across the fleet.
	args := []string{
		"trainer", "start",
		"--broker-url", brokerURL,
		"--domain-id", fleet.Spec.Connection.DomainID,
		"--channel-id", fleet.Spec.Connection.ChannelID,
		"--id", "$(POD_NAME)",
		"--name", "$(POD_NAME)",
	}
	if fleet.Spec.NumSamples > 0 {
		args = append(args, "--num-samples", strconv.FormatInt(fleet.Spec.NumSamples, 10))
	}
	if fleet.Spec.ModuleRef != "" {
		args = append(args, "--module-ref", fleet.Spec.ModuleRef)
	}

	limits, err := trainerResourceLimits(fleet.Spec.Resources)
	if err != nil {
		return nil, err
	}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      fmt.Sprintf("%s-trainers", fleet.Name),
			Namespace: fleet.Namespace,
			Labels: map[string]string{
				"app.kubernetes.io/name":      "trainer",
				"app.kubernetes.io/instance":  fleet.Name,
				"app.kubernetes.io/component": "trainer",
				fleetLabel:                    fleet.Name,
			},
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{
				MatchLabels: map[string]string{
					fleetLabel: fleet.Name,
				},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{
						fleetLabel: fleet.Name,
					},
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  "trainer",
							Image: image,
							Args:  args,
							Env: []corev1.EnvVar{
								{
									Name: "POD_NAME",
									ValueFrom: &corev1.EnvVarSource{
										FieldRef: &corev1.ObjectFieldSelector{
											FieldPath: "metadata.name",
										},
									},
								},
							},
							Resources: corev1.ResourceRequirements{
								Limits: limits,
							},
						},
					},
				},
			},
		},
	}, nil
}

func trainerResourceLimits(res *flockv1alpha1.TrainerResources) (corev1.ResourceList, error) {
	if res == nil {
		return nil, nil
	}

	limits := corev1.ResourceList{}
	if res.CPU != "" {
		qty, err := resource.ParseQuantity(res.CPU)
		if err != nil {
			return nil, fmt.Errorf("invalid cpu limit %q: %w", res.CPU, err)
		}
		limits[corev1.ResourceCPU] = qty
	}
	if res.Memory != "" {
		qty, err := resource.ParseQuantity(res.Memory)
		if err != nil {
			return nil, fmt.Errorf("invalid memory limit %q: %w", res.Memory, err)
		}
		limits[corev1.ResourceMemory] = qty
	}

	return limits, nil
}

func deploymentNeedsUpdate(current, desired *appsv1.Deployment) bool {
	if current.Spec.Replicas == nil || desired.Spec.Replicas == nil {
		return true
	}
	if *current.Spec.Replicas != *desired.Spec.Replicas {
		return true
	}

	cc := current.Spec.Template.Spec.Containers
	dc := desired.Spec.Template.Spec.Containers
	if len(cc) != len(dc) {
		return true
	}
	if cc[0].Image != dc[0].Image {
		return true
	}

	return !slices.Equal(cc[0].Args, dc[0].Args)
}

func (r *TrainerFleetController) updateFleetStatus(ctx context.Context, fleet *flockv1alpha1.TrainerFleet, deployment *appsv1.Deployment) error {
	desired := int32(1)
	if fleet.Spec.Replicas != nil {
		desired = *fleet.Spec.Replicas
	}

	fleet.Status.ReadyReplicas = deployment.Status.ReadyReplicas
	fleet.Status.AvailableReplicas = deployment.Status.AvailableReplicas

	switch {
	case desired > 0 && deployment.Status.ReadyReplicas >= desired:
		fleet.Status.Phase = flockv1alpha1.FleetPhaseRunning
	case deployment.Status.ReadyReplicas > 0:
		fleet.Status.Phase = flockv1alpha1.FleetPhaseDegraded
	case fleet.Status.Phase == flockv1alpha1.FleetPhaseFailed:
		// The fleet monitor's failure verdict stands until a
		// trainer actually comes back.
	default:
		fleet.Status.Phase = flockv1alpha1.FleetPhaseInitializing
	}

	ready := flockv1alpha1.FleetCondition{
		Type:               flockv1alpha1.FleetConditionReady,
		Status:             metav1.ConditionFalse,
		LastTransitionTime: metav1.Now(),
		Reason:             "TrainersNotReady",
		Message:            fmt.Sprintf("%d of %d trainers ready", deployment.Status.ReadyReplicas, desired),
	}
	if fleet.Status.Phase == flockv1alpha1.FleetPhaseRunning {
		ready.Status = metav1.ConditionTrue
		ready.Reason = "FleetReady"
		ready.Message = fmt.Sprintf("all %d trainers ready", desired)
	}

	progressing := flockv1alpha1.FleetCondition{
		Type:               flockv1alpha1.FleetConditionProgressing,
		Status:             metav1.ConditionFalse,
		LastTransitionTime: metav1.Now(),
		Reason:             "FleetStable",
		Message:            "deployment matches the desired trainer count",
	}
	if deployment.Status.ReadyReplicas < desired {
		progressing.Status = metav1.ConditionTrue
		progressing.Reason = "ScalingTrainers"
		progressing.Message = fmt.Sprintf("waiting for %d more trainers", desired-deployment.Status.ReadyReplicas)
	}

	fleet.Status.Conditions = mergeConditions(fleet.Status.Conditions, ready, progressing)

	return r.Status().Update(ctx, fleet)
}

// mergeConditions replaces conditions by type, keeping the previous
// transition time when the status did not change.
func mergeConditions(existing []flockv1alpha1.FleetCondition, updates ...flockv1alpha1.FleetCondition) []flockv1alpha1.FleetCondition {
	out := make([]flockv1alpha1.FleetCondition, len(existing))
	copy(out, existing)

	for _, update := range updates {
		found := false
		for i := range out {
			if out[i].Type != update.Type {
				continue
			}
			found = true
			if out[i].Status == update.Status {
				update.LastTransitionTime = out[i].LastTransitionTime
			}
			out[i] = update

			break
		}
		if !found {
			out = append(out, update)
		}
	}

	return out
}

func findCondition(conditions []flockv1alpha1.FleetCondition, condType flockv1alpha1.FleetConditionType) *flockv1alpha1.FleetCondition {
	for i := range conditions {
		if conditions[i].Type == condType {
			return &conditions[i]
		}
	}

	return nil
}

func (r *TrainerFleetController) SetupWithManager(mgr ctrl.Manager) error {
	r.Scheme = mgr.GetScheme()

	return ctrl.NewControllerManagedBy(mgr).
		For(&flockv1alpha1.TrainerFleet{}).
		Owns(&appsv1.Deployment{}).
		Complete(r)
}
