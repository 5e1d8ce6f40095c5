package sdk

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
)

const (
	CTJSON string = "application/json"
	CTCBOR string = "application/cbor"
)

type PageMetadata struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

type SDK interface {
	// CreateSession creates a new federated learning session.
	//
	// example:
	//  session := sdk.Session{
	//    Name: "mnist-hospitals",
	//  }
	//  session, _ := sdk.CreateSession(session)
	//  fmt.Println(session)
	CreateSession(session Session) (Session, error)

	// GetSession gets a session by id.
	//
	// example:
	//  session, _ := sdk.GetSession("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(session)
	GetSession(id string) (Session, error)

	// ListSessions lists sessions.
	//
	// example:
	//  sessionPage, _ := sdk.ListSessions(0, 10)
	//  fmt.Println(sessionPage)
	ListSessions(offset uint64, limit uint64) (SessionPage, error)

	// UpdateSession updates a pending session.
	//
	// example:
	//  session := sdk.Session{
	//    ID:   "b1d10738-c5d7-4ff1-8f4d-b9328ce6f040",
	//    Name: "mnist-hospitals-v2",
	//  }
	//  session, _ := sdk.UpdateSession(session)
	//  fmt.Println(session)
	UpdateSession(session Session) (Session, error)

	// DeleteSession deletes a session that is not running.
	//
	// example:
	//  _ = sdk.DeleteSession("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	DeleteSession(id string) error

	// StartSession starts the round loop of a pending session.
	//
	// example:
	//  _ = sdk.StartSession("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	StartSession(id string) error

	// CancelSession cancels a pending or running session.
	//
	// example:
	//  _ = sdk.CancelSession("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	CancelSession(id string) error

	// GetRound gets one round of a session by number.
	//
	// example:
	//  round, _ := sdk.GetRound("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040", 3)
	//  fmt.Println(round)
	GetRound(sessionID string, number uint64) (Round, error)

	// ListRounds lists the rounds of a session.
	//
	// example:
	//  roundPage, _ := sdk.ListRounds("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040", 0, 10)
	//  fmt.Println(roundPage)
	ListRounds(sessionID string, offset uint64, limit uint64) (RoundPage, error)

	// GetModelVersion gets one model version of a session.
	//
	// example:
	//  model, _ := sdk.GetModelVersion("b1d10738-...", "0a78e583-...")
	//  fmt.Println(model)
	GetModelVersion(sessionID, modelID string) (ModelVersion, error)

	// ListModelVersions lists the model versions of a session.
	//
	// example:
	//  modelPage, _ := sdk.ListModelVersions("b1d10738-...", 0, 10)
	//  fmt.Println(modelPage)
	ListModelVersions(sessionID string, offset uint64, limit uint64) (ModelVersionPage, error)

	// GetDeployedModel gets the currently deployed model of a session.
	//
	// example:
	//  model, _ := sdk.GetDeployedModel("b1d10738-c5d7-4ff1-8f4d-b9328ce6f040")
	//  fmt.Println(model)
	GetDeployedModel(sessionID string) (ModelVersion, error)

	// DeployModelVersion marks a model version as the deployed one.
	//
	// example:
	//  _ = sdk.DeployModelVersion("b1d10738-...", "0a78e583-...")
	DeployModelVersion(sessionID, modelID string) error

	// GetTrainer gets a trainer by id.
	//
	// example:
	//  trainer, _ := sdk.GetTrainer("trainer-1")
	//  fmt.Println(trainer)
	GetTrainer(id string) (Trainer, error)

	// ListTrainers lists registered trainers.
	//
	// example:
	//  trainerPage, _ := sdk.ListTrainers(0, 10)
	//  fmt.Println(trainerPage)
	ListTrainers(offset uint64, limit uint64) (TrainerPage, error)

	// DeleteTrainer removes a trainer from the registry.
	//
	// example:
	//  _ = sdk.DeleteTrainer("trainer-1")
	DeleteTrainer(id string) error

	// SubmitUpdate submits a trainer update as JSON.
	//
	// example:
	//  update := sdk.TrainerUpdate{
	//    SessionID: "b1d10738-...",
	//    Round:     1,
	//    TrainerID: "trainer-1",
	//    Phase:     "fit",
	//  }
	//  _ = sdk.SubmitUpdate(update)
	SubmitUpdate(update TrainerUpdate) error

	// SubmitUpdateCBOR submits a trainer update as CBOR, the compact
	// encoding constrained trainers prefer for large parameter tensors.
	//
	// example:
	//  _ = sdk.SubmitUpdateCBOR(update)
	SubmitUpdateCBOR(update TrainerUpdate) error
}

type flockSDK struct {
	coordinatorURL string
	client         *http.Client
}

type Config struct {
	CoordinatorURL  string
	TLSVerification bool
}

func NewSDK(cfg Config) SDK {
	return &flockSDK{
		coordinatorURL: cfg.CoordinatorURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !cfg.TLSVerification,
				},
			},
		},
	}
}

func (sdk *flockSDK) processRequest(method, reqURL, contentType string, data []byte, expectedRespCode int) ([]byte, error) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return []byte{}, err
	}

	req.Header.Add("Content-Type", contentType)

	resp, err := sdk.client.Do(req)
	if err != nil {
		return []byte{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return []byte{}, err
	}

	if resp.StatusCode != expectedRespCode {
		return []byte{}, fmt.Errorf("unexpected response code %d: %s", resp.StatusCode, body)
	}

	return body, nil
}
