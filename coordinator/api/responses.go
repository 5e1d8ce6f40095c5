package api

import (
	"net/http"

	"github.com/absmach/supermq"

	"github.com/absmach/flock/session"
	"github.com/absmach/flock/trainer"
)

var (
	_ supermq.Response = (*sessionResponse)(nil)
	_ supermq.Response = (*listSessionsResponse)(nil)
	_ supermq.Response = (*roundResponse)(nil)
	_ supermq.Response = (*listRoundsResponse)(nil)
	_ supermq.Response = (*modelResponse)(nil)
	_ supermq.Response = (*listModelsResponse)(nil)
	_ supermq.Response = (*trainerResponse)(nil)
	_ supermq.Response = (*listTrainersResponse)(nil)
)

type sessionResponse struct {
	session.Session
	created bool
	deleted bool
}

func (s sessionResponse) Code() int {
	if s.created {
		return http.StatusCreated
	}
	if s.deleted {
		return http.StatusNoContent
	}

	return http.StatusOK
}

func (s sessionResponse) Headers() map[string]string {
	if s.created {
		return map[string]string{
			"Location": "/sessions/" + s.ID,
		}
	}

	return map[string]string{}
}

func (s sessionResponse) Empty() bool {
	return s.deleted
}

type listSessionsResponse struct {
	session.SessionPage
}

func (l listSessionsResponse) Code() int {
	return http.StatusOK
}

func (l listSessionsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listSessionsResponse) Empty() bool {
	return false
}

type roundResponse struct {
	session.Round
}

func (r roundResponse) Code() int {
	return http.StatusOK
}

func (r roundResponse) Headers() map[string]string {
	return map[string]string{}
}

func (r roundResponse) Empty() bool {
	return false
}

type listRoundsResponse struct {
	session.RoundPage
}

func (l listRoundsResponse) Code() int {
	return http.StatusOK
}

func (l listRoundsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listRoundsResponse) Empty() bool {
	return false
}

type modelResponse struct {
	session.ModelVersion
}

func (m modelResponse) Code() int {
	return http.StatusOK
}

func (m modelResponse) Headers() map[string]string {
	return map[string]string{}
}

func (m modelResponse) Empty() bool {
	return false
}

type listModelsResponse struct {
	session.ModelVersionPage
}

func (l listModelsResponse) Code() int {
	return http.StatusOK
}

func (l listModelsResponse) Headers() map[string]string {
	return map[string]string{}
}

func (l listModelsResponse) Empty() bool {
	return false
}

type trainerResponse struct {
	trainer.Trainer
	deleted bool
}

func (t trainerResponse) Code() int {
	if t.deleted {
		return http.StatusNoContent
	}

	return http.StatusOK
}

func (t trainerResponse) Headers() map[string]string {
	return map[string]string{}
}

func (t trainerResponse) Empty() bool {
	return t.deleted
}

type messageResponse map[string]any

type updateResponse struct {
	Status string `json:"status"`
}
