package api

import (
	"context"
	"errors"

	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"

	"github.com/absmach/flock/coordinator"
	pkgerrors "github.com/absmach/flock/pkg/errors"
)

func createSessionEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(sessionReq)
		if !ok {
			return sessionResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return sessionResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		s, err := svc.CreateSession(ctx, req.Session)
		if err != nil {
			return sessionResponse{}, err
		}

		return sessionResponse{
			Session: s,
			created: true,
		}, nil
	}
}

func listSessionsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listSessionsResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listSessionsResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		sessions, err := svc.ListSessions(ctx, req.offset, req.limit)
		if err != nil {
			return listSessionsResponse{}, err
		}

		return listSessionsResponse{
			SessionPage: sessions,
		}, nil
	}
}

func getSessionEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return sessionResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return sessionResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		s, err := svc.GetSession(ctx, req.id)
		if err != nil {
			return sessionResponse{}, err
		}

		return sessionResponse{
			Session: s,
		}, nil
	}
}

func updateSessionEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(sessionReq)
		if !ok {
			return sessionResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return sessionResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		s, err := svc.UpdateSession(ctx, req.Session)
		if err != nil {
			return sessionResponse{}, err
		}

		return sessionResponse{
			Session: s,
		}, nil
	}
}

func deleteSessionEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return sessionResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return sessionResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.DeleteSession(ctx, req.id); err != nil {
			return sessionResponse{}, err
		}

		return sessionResponse{
			deleted: true,
		}, nil
	}
}

func startSessionEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return messageResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return messageResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.StartSession(ctx, req.id); err != nil {
			return messageResponse{}, err
		}

		return messageResponse{
			"started": true,
		}, nil
	}
}

func cancelSessionEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return messageResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return messageResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.CancelSession(ctx, req.id); err != nil {
			return messageResponse{}, err
		}

		return messageResponse{
			"cancelled": true,
		}, nil
	}
}

func listRoundsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(sessionListReq)
		if !ok {
			return listRoundsResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listRoundsResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		rounds, err := svc.ListRounds(ctx, req.sessionID, req.offset, req.limit)
		if err != nil {
			return listRoundsResponse{}, err
		}

		return listRoundsResponse{
			RoundPage: rounds,
		}, nil
	}
}

func getRoundEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(roundReq)
		if !ok {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return roundResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		round, err := svc.GetRound(ctx, req.sessionID, req.number)
		if err != nil {
			return roundResponse{}, err
		}

		return roundResponse{
			Round: round,
		}, nil
	}
}

func listModelsEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(sessionListReq)
		if !ok {
			return listModelsResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listModelsResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		models, err := svc.ListModelVersions(ctx, req.sessionID, req.offset, req.limit)
		if err != nil {
			return listModelsResponse{}, err
		}

		return listModelsResponse{
			ModelVersionPage: models,
		}, nil
	}
}

func getModelEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return modelResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return modelResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		model, err := svc.GetModelVersion(ctx, req.id)
		if err != nil {
			return modelResponse{}, err
		}

		return modelResponse{
			ModelVersion: model,
		}, nil
	}
}

func getDeployedModelEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return modelResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return modelResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		model, err := svc.GetDeployedModel(ctx, req.id)
		if err != nil {
			return modelResponse{}, err
		}

		return modelResponse{
			ModelVersion: model,
		}, nil
	}
}

func deployModelEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(deployModelReq)
		if !ok {
			return messageResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return messageResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.DeployModelVersion(ctx, req.sessionID, req.modelID); err != nil {
			return messageResponse{}, err
		}

		return messageResponse{
			"deployed": true,
		}, nil
	}
}

func listTrainersEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listTrainersResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listTrainersResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		trainers, err := svc.ListTrainers(ctx, req.offset, req.limit)
		if err != nil {
			return listTrainersResponse{}, err
		}

		return listTrainersResponse{
			TrainerPage: trainers,
		}, nil
	}
}

func getTrainerEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return trainerResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return trainerResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		t, err := svc.GetTrainer(ctx, req.id)
		if err != nil {
			return trainerResponse{}, err
		}

		return trainerResponse{
			Trainer: t,
		}, nil
	}
}

func deleteTrainerEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return trainerResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return trainerResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.DeleteTrainer(ctx, req.id); err != nil {
			return trainerResponse{}, err
		}

		return trainerResponse{
			deleted: true,
		}, nil
	}
}

func submitUpdateEndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(updateReq)
		if !ok {
			return updateResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return updateResponse{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.SubmitUpdate(ctx, req.TrainerUpdate); err != nil {
			return updateResponse{}, err
		}

		return updateResponse{Status: "accepted"}, nil
	}
}

func submitUpdateCBOREndpoint(svc coordinator.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		payload, ok := request.([]byte)
		if !ok {
			return updateResponse{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}

		if err := svc.SubmitUpdateCBOR(ctx, payload); err != nil {
			return updateResponse{}, err
		}

		return updateResponse{Status: "accepted"}, nil
	}
}
