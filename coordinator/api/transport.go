package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/absmach/flock/coordinator"
	"github.com/absmach/flock/pkg/api"
	"github.com/absmach/flock/pkg/fedavg"
)

// MakeHandler returns the coordinator HTTP API handler.
func MakeHandler(svc coordinator.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, encodeError)),
	}

	mux.Route("/sessions", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			createSessionEndpoint(svc),
			decodeSessionReq,
			api.EncodeResponse,
			opts...,
		), "create-session").ServeHTTP)
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listSessionsEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-sessions").ServeHTTP)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				getSessionEndpoint(svc),
				decodeEntityReq("sessionID"),
				api.EncodeResponse,
				opts...,
			), "get-session").ServeHTTP)
			r.Put("/", otelhttp.NewHandler(kithttp.NewServer(
				updateSessionEndpoint(svc),
				decodeUpdateSessionReq,
				api.EncodeResponse,
				opts...,
			), "update-session").ServeHTTP)
			r.Delete("/", otelhttp.NewHandler(kithttp.NewServer(
				deleteSessionEndpoint(svc),
				decodeEntityReq("sessionID"),
				api.EncodeResponse,
				opts...,
			), "delete-session").ServeHTTP)
			r.Post("/start", otelhttp.NewHandler(kithttp.NewServer(
				startSessionEndpoint(svc),
				decodeEntityReq("sessionID"),
				api.EncodeResponse,
				opts...,
			), "start-session").ServeHTTP)
			r.Post("/cancel", otelhttp.NewHandler(kithttp.NewServer(
				cancelSessionEndpoint(svc),
				decodeEntityReq("sessionID"),
				api.EncodeResponse,
				opts...,
			), "cancel-session").ServeHTTP)
			r.Get("/rounds", otelhttp.NewHandler(kithttp.NewServer(
				listRoundsEndpoint(svc),
				decodeSessionListReq("sessionID"),
				api.EncodeResponse,
				opts...,
			), "list-rounds").ServeHTTP)
			r.Get("/rounds/{roundNumber}", otelhttp.NewHandler(kithttp.NewServer(
				getRoundEndpoint(svc),
				decodeRoundReq,
				api.EncodeResponse,
				opts...,
			), "get-round").ServeHTTP)
			r.Get("/models", otelhttp.NewHandler(kithttp.NewServer(
				listModelsEndpoint(svc),
				decodeSessionListReq("sessionID"),
				api.EncodeResponse,
				opts...,
			), "list-model-versions").ServeHTTP)
			r.Get("/models/deployed", otelhttp.NewHandler(kithttp.NewServer(
				getDeployedModelEndpoint(svc),
				decodeEntityReq("sessionID"),
				api.EncodeResponse,
				opts...,
			), "get-deployed-model").ServeHTTP)
			r.Get("/models/{modelID}", otelhttp.NewHandler(kithttp.NewServer(
				getModelEndpoint(svc),
				decodeEntityReq("modelID"),
				api.EncodeResponse,
				opts...,
			), "get-model-version").ServeHTTP)
			r.Post("/models/{modelID}/deploy", otelhttp.NewHandler(kithttp.NewServer(
				deployModelEndpoint(svc),
				decodeDeployModelReq,
				api.EncodeResponse,
				opts...,
			), "deploy-model-version").ServeHTTP)
		})
	})

	mux.Route("/trainers", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listTrainersEndpoint(svc),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-trainers").ServeHTTP)
		r.Route("/{trainerID}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				getTrainerEndpoint(svc),
				decodeEntityReq("trainerID"),
				api.EncodeResponse,
				opts...,
			), "get-trainer").ServeHTTP)
			r.Delete("/", otelhttp.NewHandler(kithttp.NewServer(
				deleteTrainerEndpoint(svc),
				decodeEntityReq("trainerID"),
				api.EncodeResponse,
				opts...,
			), "delete-trainer").ServeHTTP)
		})
	})

	mux.Route("/updates", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			submitUpdateEndpoint(svc),
			decodeUpdateReq,
			api.EncodeResponse,
			opts...,
		), "submit-update").ServeHTTP)
		r.Post("/cbor", otelhttp.NewHandler(kithttp.NewServer(
			submitUpdateCBOREndpoint(svc),
			decodeUpdateCBORReq,
			api.EncodeResponse,
			opts...,
		), "submit-update-cbor").ServeHTTP)
	})

	mux.Get("/health", supermq.Health("coordinator", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: chi.URLParam(r, key),
		}, nil
	}
}

func decodeSessionReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req sessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeUpdateSessionReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req sessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}
	req.ID = chi.URLParam(r, "sessionID")

	return req, nil
}

func decodeListEntityReq(_ context.Context, r *http.Request) (any, error) {
	o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, err)
	}

	return listEntityReq{
		offset: o,
		limit:  l,
	}, nil
}

func decodeSessionListReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		o, err := apiutil.ReadNumQuery[uint64](r, api.OffsetKey, api.DefOffset)
		if err != nil {
			return nil, errors.Join(apiutil.ErrValidation, err)
		}

		l, err := apiutil.ReadNumQuery[uint64](r, api.LimitKey, api.DefLimit)
		if err != nil {
			return nil, errors.Join(apiutil.ErrValidation, err)
		}

		return sessionListReq{
			sessionID: chi.URLParam(r, key),
			offset:    o,
			limit:     l,
		}, nil
	}
}

func decodeRoundReq(_ context.Context, r *http.Request) (any, error) {
	number, err := strconv.ParseUint(chi.URLParam(r, "roundNumber"), 10, 64)
	if err != nil {
		return nil, errors.Join(apiutil.ErrValidation, errors.New("invalid round number"))
	}

	return roundReq{
		sessionID: chi.URLParam(r, "sessionID"),
		number:    number,
	}, nil
}

func decodeDeployModelReq(_ context.Context, r *http.Request) (any, error) {
	return deployModelReq{
		sessionID: chi.URLParam(r, "sessionID"),
		modelID:   chi.URLParam(r, "modelID"),
	}, nil
}

func decodeUpdateReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req updateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeUpdateCBORReq(_ context.Context, r *http.Request) (any, error) {
	contentType := r.Header.Get("Content-Type")
	if contentType != "application/cbor" && contentType != "application/cbor-seq" {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return data, nil
}

// encodeError maps coordinator lifecycle errors before falling back to
// the shared encoder.
func encodeError(ctx context.Context, err error, w http.ResponseWriter) {
	switch {
	case errors.Is(err, coordinator.ErrInvalidUpdate),
		errors.Is(err, fedavg.ErrInvalidConfig):
		encodeStatus(w, http.StatusBadRequest, err)
	case errors.Is(err, coordinator.ErrSessionNotPending),
		errors.Is(err, coordinator.ErrSessionNotActive),
		errors.Is(err, coordinator.ErrSessionActive),
		errors.Is(err, coordinator.ErrNoActiveRound):
		encodeStatus(w, http.StatusConflict, err)
	case errors.Is(err, coordinator.ErrShuttingDown):
		encodeStatus(w, http.StatusServiceUnavailable, err)
	default:
		api.EncodeError(ctx, err, w)
	}
}

func encodeStatus(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", api.ContentType)
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
