package sdk

import (
	"encoding/json"
	"net/http"
	"time"
)

const trainersEndpoint = "/trainers"

type Trainer struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	NumSamples   int64       `json:"num_samples"`
	RoundCount   uint64      `json:"round_count"`
	Alive        bool        `json:"alive"`
	AliveHistory []time.Time `json:"alive_history,omitempty"`
}

type TrainerPage struct {
	Offset   uint64    `json:"offset"`
	Limit    uint64    `json:"limit"`
	Total    uint64    `json:"total"`
	Trainers []Trainer `json:"trainers"`
}

func (sdk *flockSDK) GetTrainer(id string) (Trainer, error) {
	url := sdk.coordinatorURL + trainersEndpoint + "/" + id

	body, err := sdk.processRequest(http.MethodGet, url, CTJSON, nil, http.StatusOK)
	if err != nil {
		return Trainer{}, err
	}

	var t Trainer
	if err := json.Unmarshal(body, &t); err != nil {
		return Trainer{}, err
	}

	return t, nil
}

func (sdk *flockSDK) ListTrainers(offset, limit uint64) (TrainerPage, error) {
	url := sdk.coordinatorURL + trainersEndpoint + pageQuery(offset, limit)

	body, err := sdk.processRequest(http.MethodGet, url, CTJSON, nil, http.StatusOK)
	if err != nil {
		return TrainerPage{}, err
	}

	var p TrainerPage
	if err := json.Unmarshal(body, &p); err != nil {
		return TrainerPage{}, err
	}

	return p, nil
}

func (sdk *flockSDK) DeleteTrainer(id string) error {
	url := sdk.coordinatorURL + trainersEndpoint + "/" + id

	if _, err := sdk.processRequest(http.MethodDelete, url, CTJSON, nil, http.StatusNoContent); err != nil {
		return err
	}

	return nil
}
