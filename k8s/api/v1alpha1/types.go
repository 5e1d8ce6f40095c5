package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// TrainerFleetSpec defines the desired state of a TrainerFleet.
type TrainerFleetSpec struct {
	// Image is the trainer container image. When empty the operator's
	// default trainer image is used.
	Image string `json:"image,omitempty"`

	// Replicas is the number of trainer instances to run.
	// +kubebuilder:validation:Minimum=0
	Replicas *int32 `json:"replicas,omitempty"`

	// NumSamples is the local dataset size each trainer reports when
	// joining, used for weighted aggregation.
	NumSamples int64 `json:"numSamples,omitempty"`

	// ModuleRef is the OCI reference of the training module the
	// trainers fetch through the registry proxy.
	ModuleRef string `json:"moduleRef,omitempty"`

	// Connection configures how trainers reach the coordinator's
	// MQTT channel.
	Connection ConnectionConfig `json:"connection"`

	// Resources defines per-trainer resource limits.
	Resources *TrainerResources `json:"resources,omitempty"`
}

// ConnectionConfig carries the MQTT addressing trainers connect with.
type ConnectionConfig struct {
	// BrokerURL is the MQTT broker address. When empty the operator's
	// default broker is used.
	BrokerURL string `json:"brokerUrl,omitempty"`

	// DomainID scopes the MQTT topics.
	DomainID string `json:"domainId"`

	// ChannelID scopes the MQTT topics.
	ChannelID string `json:"channelId"`
}

// TrainerResources defines resource limits for one trainer pod.
type TrainerResources struct {
	// CPU limit, e.g. "500m".
	CPU string `json:"cpu,omitempty"`

	// Memory limit, e.g. "512Mi".
	Memory string `json:"memory,omitempty"`
}

// TrainerFleetStatus defines the observed state of a TrainerFleet.
type TrainerFleetStatus struct {
	// Phase summarizes fleet health.
	Phase FleetPhase `json:"phase,omitempty"`

	// ReadyReplicas is the number of trainers ready to join rounds.
	ReadyReplicas int32 `json:"readyReplicas"`

	// AvailableReplicas is the number of available trainer replicas.
	AvailableReplicas int32 `json:"availableReplicas"`

	// Conditions represent the latest available observations.
	Conditions []FleetCondition `json:"conditions,omitempty"`
}

type FleetPhase string

const (
	// FleetPhaseInitializing means no trainer is ready yet.
	FleetPhaseInitializing FleetPhase = "Initializing"

	// FleetPhaseRunning means all desired trainers are ready.
	FleetPhaseRunning FleetPhase = "Running"

	// FleetPhaseDegraded means some but not all trainers are ready.
	FleetPhaseDegraded FleetPhase = "Degraded"

	// FleetPhaseFailed means the fleet has had no ready trainers for
	// longer than the operator's degraded threshold.
	FleetPhaseFailed FleetPhase = "Failed"
)

// FleetCondition describes one aspect of fleet state.
type FleetCondition struct {
	// Type of fleet condition.
	Type FleetConditionType `json:"type"`

	// Status of the condition (True, False, Unknown).
	Status metav1.ConditionStatus `json:"status"`

	// LastTransitionTime is when the condition status last changed.
	LastTransitionTime metav1.Time `json:"lastTransitionTime"`

	// Reason is a brief machine-readable reason for the condition.
	Reason string `json:"reason,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message,omitempty"`
}

type FleetConditionType string

const (
	FleetConditionReady       FleetConditionType = "Ready"
	FleetConditionProgressing FleetConditionType = "Progressing"
)

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=tf
// +kubebuilder:printcolumn:name="Replicas",type=integer,JSONPath=`.spec.replicas`
// +kubebuilder:printcolumn:name="Ready",type=integer,JSONPath=`.status.readyReplicas`
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`

// TrainerFleet represents a managed set of federated-learning trainer pods
// that connect to a coordinator channel.
type TrainerFleet struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   TrainerFleetSpec   `json:"spec,omitempty"`
	Status TrainerFleetStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// TrainerFleetList contains a list of TrainerFleets.
type TrainerFleetList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []TrainerFleet `json:"items"`
}

func init() {
	SchemeBuilder.Register(&TrainerFleet{}, &TrainerFleetList{})
}
