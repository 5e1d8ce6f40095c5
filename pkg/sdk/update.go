package sdk

import (
	"encoding/json"
	"net/http"

	"github.com/fxamacker/cbor/v2"
)

const updatesEndpoint = "/updates"

type TrainerUpdate struct {
	SessionID  string             `json:"session_id"`
	Round      uint64             `json:"round"`
	TrainerID  string             `json:"trainer_id"`
	Phase      string             `json:"phase"`
	NumSamples int64              `json:"num_samples"`
	Parameters [][]float64        `json:"parameters,omitempty"`
	Loss       float64            `json:"loss,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func (sdk *flockSDK) SubmitUpdate(update TrainerUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}

	url := sdk.coordinatorURL + updatesEndpoint

	if _, err := sdk.processRequest(http.MethodPost, url, CTJSON, data, http.StatusOK); err != nil {
		return err
	}

	return nil
}

func (sdk *flockSDK) SubmitUpdateCBOR(update TrainerUpdate) error {
	data, err := cbor.Marshal(update)
	if err != nil {
		return err
	}

	url := sdk.coordinatorURL + updatesEndpoint + "/cbor"

	if _, err := sdk.processRequest(http.MethodPost, url, CTCBOR, data, http.StatusOK); err != nil {
		return err
	}

	return nil
}
