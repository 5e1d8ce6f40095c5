package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const sessionsEndpoint = "/sessions"

type SessionConfig struct {
	Rounds              uint64  `json:"rounds,omitempty"`
	FractionFit         float64 `json:"fraction_fit,omitempty"`
	FractionEvaluate    float64 `json:"fraction_evaluate,omitempty"`
	MinFitClients       uint64  `json:"min_fit_clients,omitempty"`
	MinEvaluateClients  uint64  `json:"min_evaluate_clients,omitempty"`
	MinAvailableClients uint64  `json:"min_available_clients,omitempty"`
	RoundTimeoutSecs    uint64  `json:"round_timeout_secs,omitempty"`
	AcceptFailures      bool    `json:"accept_failures,omitempty"`
	MaxFailedRounds     uint64  `json:"max_failed_rounds,omitempty"`
	Epochs              uint64  `json:"epochs,omitempty"`
	BatchSize           uint64  `json:"batch_size,omitempty"`
	LearningRate        float64 `json:"learning_rate,omitempty"`
}

type Session struct {
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"name"`
	State        uint8         `json:"state,omitempty"`
	Config       SessionConfig `json:"config"`
	Parameters   [][]float64   `json:"parameters,omitempty"`
	ModelVersion uint64        `json:"model_version,omitempty"`
	CurrentRound uint64        `json:"current_round,omitempty"`
	FailedRounds uint64        `json:"failed_rounds,omitempty"`
	Error        string        `json:"error,omitempty"`
	StartAt      time.Time     `json:"start_at,omitempty"`
	StartTime    time.Time     `json:"start_time,omitempty"`
	FinishTime   time.Time     `json:"finish_time,omitempty"`
	CreatedAt    time.Time     `json:"created_at,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at,omitempty"`
}

type SessionPage struct {
	Offset   uint64    `json:"offset"`
	Limit    uint64    `json:"limit"`
	Total    uint64    `json:"total"`
	Sessions []Session `json:"sessions"`
}

type Round struct {
	SessionID string         `json:"session_id"`
	Number    uint64         `json:"number"`
	Metrics   map[string]any `json:"metrics,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type RoundPage struct {
	Offset uint64  `json:"offset"`
	Limit  uint64  `json:"limit"`
	Total  uint64  `json:"total"`
	Rounds []Round `json:"rounds"`
}

type ModelVersion struct {
	ID         string      `json:"id"`
	SessionID  string      `json:"session_id"`
	Version    uint64      `json:"version"`
	Round      uint64      `json:"round"`
	Parameters [][]float64 `json:"parameters,omitempty"`
	Deployed   bool        `json:"deployed"`
	CreatedAt  time.Time   `json:"created_at"`
}

type ModelVersionPage struct {
	Offset uint64         `json:"offset"`
	Limit  uint64         `json:"limit"`
	Total  uint64         `json:"total"`
	Models []ModelVersion `json:"models"`
}

func (sdk *flockSDK) CreateSession(session Session) (Session, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return Session{}, err
	}

	url := sdk.coordinatorURL + sessionsEndpoint

	body, err := sdk.processRequest(http.MethodPost, url, CTJSON, data, http.StatusCreated)
	if err != nil {
		return Session{}, err
	}

	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return Session{}, err
	}

	return s, nil
}

func (sdk *flockSDK) GetSession(id string) (Session, error) {
	url := sdk.coordinatorURL + sessionsEndpoint + "/" + id

	body, err := sdk.processRequest(http.MethodGet, url, CTJSON, nil, http.StatusOK)
	if err != nil {
		return Session{}, err
	}

	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return Session{}, err
	}

	return s, nil
}

func (sdk *flockSDK) ListSessions(offset, limit uint64) (SessionPage, error) {
	url := sdk.coordinatorURL + sessionsEndpoint + pageQuery(offset, limit)

	body, err := sdk.processRequest(http.MethodGet, url, CTJSON, nil, http.StatusOK)
	if err != nil {
		return SessionPage{}, err
	}

	var p SessionPage
	if err := json.Unmarshal(body, &p); err != nil {
		return SessionPage{}, err
	}

	return p, nil
}

func (sdk *flockSDK) UpdateSession(session Session) (Session, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return Session{}, err
	}
	url := sdk.coordinatorURL + sessionsEndpoint + "/" + session.ID

	body, err := sdk.processRequest(http.MethodPut, url, CTJSON, data, http.StatusOK)
	if err != nil {
		return Session{}, err
	}

	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		return Session{}, err
	}

	return s, nil
}

func (sdk *flockSDK) DeleteSession(id string) error {
	url := sdk.coordinatorURL + sessionsEndpoint + "/" + id

	if _, err := sdk.processRequest(http.MethodDelete, url, CTJSON, nil, http.StatusNoContent); err != nil {
		return err
	}

	return nil
}

func (sdk *flockSDK) StartSession(id string) error {
	url := fmt.Sprintf("%s/sessions/%s/start", sdk.coordinatorURL, id)

	if _, err := sdk.processRequest(http.MethodPost, url, CTJSON, nil, http.StatusOK); err != nil {
		return err
	}

	return nil
}

func (sdk *flockSDK) CancelSession(id string) error {
	url := fmt.Sprintf("%s/sessions/%s/cancel", sdk.coordinatorURL, id)

	if _, err := sdk.processRequest(http.MethodPost, url, CTJSON, nil, http.StatusOK); err != nil {
		return err
	}

	return nil
}

func (sdk *flockSDK) GetRound(sessionID string, number uint64) (Round, error) {
	url := fmt.Sprintf("%s/sessions/%s/rounds/%d", sdk.coordinatorURL, sessionID, number)

	body, err := sdk.processRequest(http.MethodGet, url, CTJSON, nil, http.StatusOK)
	if err != nil {
		return Round{}, err
	}

	var r Round
	if err := json.Unmarshal(body, &r); err != nil {
		return Round{}, err
	}

	return r, nil
}

func (sdk *flockSDK) ListRounds(sessionID string, offset, limit uint64) (RoundPage, error) {
	url := fmt.Sprintf("%s/sessions/%s/rounds%s", sdk.coordinatorURL, sessionID, pageQuery(offset, limit))

	body, err := sdk.processRequest(http.MethodGet, url, CTJSON, nil, http.StatusOK)
	if err != nil {
		return RoundPage{}, err
	}

	var p RoundPage
	if err := json.Unmarshal(body, &p); err != nil {
		return RoundPage{}, err
	}

	return p, nil
}

func (sdk *flockSDK) GetModelVersion(sessionID, modelID string) (ModelVersion, error) {
	url := fmt.Sprintf("%s/sessions/%s/models/%s", sdk.coordinatorURL, sessionID, modelID)

	body, err := sdk.processRequest(http.MethodGet, url, CTJSON, nil, http.StatusOK)
	if err != nil {
		return ModelVersion{}, err
	}

	var m ModelVersion
	if err := json.Unmarshal(body, &m); err != nil {
		return ModelVersion{}, err
	}

	return m, nil
}

func (sdk *flockSDK) ListModelVersions(sessionID string, offset, limit uint64) (ModelVersionPage, error) {
	url := fmt.Sprintf("%s/sessions/%s/models%s", sdk.coordinatorURL, sessionID, pageQuery(offset, limit))

	body, err := sdk.processRequest(http.MethodGet, url, CTJSON, nil, http.StatusOK)
	if err != nil {
		return ModelVersionPage{}, err
	}

	var p ModelVersionPage
	if err := json.Unmarshal(body, &p); err != nil {
		return ModelVersionPage{}, err
	}

	return p, nil
}

func (sdk *flockSDK) GetDeployedModel(sessionID string) (ModelVersion, error) {
	url := fmt.Sprintf("%s/sessions/%s/models/deployed", sdk.coordinatorURL, sessionID)

	body, err := sdk.processRequest(http.MethodGet, url, CTJSON, nil, http.StatusOK)
	if err != nil {
		return ModelVersion{}, err
	}

	var m ModelVersion
	if err := json.Unmarshal(body, &m); err != nil {
		return ModelVersion{}, err
	}

	return m, nil
}

func (sdk *flockSDK) DeployModelVersion(sessionID, modelID string) error {
	url := fmt.Sprintf("%s/sessions/%s/models/%s/deploy", sdk.coordinatorURL, sessionID, modelID)

	if _, err := sdk.processRequest(http.MethodPost, url, CTJSON, nil, http.StatusOK); err != nil {
		return err
	}

	return nil
}

func pageQuery(offset, limit uint64) string {
	queries := make([]string, 0)
	if offset > 0 {
		queries = append(queries, fmt.Sprintf("offset=%d", offset))
	}
	if limit > 0 {
		queries = append(queries, fmt.Sprintf("limit=%d", limit))
	}
	if len(queries) == 0 {
		return ""
	}

	return "?" + strings.Join(queries, "&")
}
