package api

import (
	"errors"

	apiutil "github.com/absmach/supermq/api/http/util"

	"github.com/absmach/flock/coordinator"
	"github.com/absmach/flock/session"
)

type sessionReq struct {
	session.Session `json:",inline"`
}

func (s *sessionReq) validate() error {
	return nil
}

type entityReq struct {
	id string
}

func (e *entityReq) validate() error {
	if e.id == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type listEntityReq struct {
	offset, limit uint64
}

func (e *listEntityReq) validate() error {
	return nil
}

type sessionListReq struct {
	sessionID     string
	offset, limit uint64
}

func (r *sessionListReq) validate() error {
	if r.sessionID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type roundReq struct {
	sessionID string
	number    uint64
}

func (r *roundReq) validate() error {
	if r.sessionID == "" {
		return apiutil.ErrMissingID
	}
	if r.number == 0 {
		return errors.New("round number must be positive")
	}

	return nil
}

type deployModelReq struct {
	sessionID string
	modelID   string
}

func (d *deployModelReq) validate() error {
	if d.sessionID == "" || d.modelID == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type updateReq struct {
	coordinator.TrainerUpdate `json:",inline"`
}

func (u *updateReq) validate() error {
	return nil
}
