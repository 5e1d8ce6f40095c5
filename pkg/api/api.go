package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	apiutil "github.com/absmach/supermq/api/http/util"

	"github.com/absmach/supermq"

	pkgerrors "github.com/absmach/flock/pkg/errors"
	"github.com/absmach/flock/pkg/storage"
)

const (
	OffsetKey = "offset"
	LimitKey  = "limit"
	DefOffset = 0
	DefLimit  = 100

	ContentType = "application/json"

	MaxLimitSize = 100
)

func EncodeResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	if ar, ok := response.(supermq.Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType)
	switch {
	case errors.Is(err, apiutil.ErrValidation),
		errors.Is(err, pkgerrors.ErrEmptyKey),
		errors.Is(err, pkgerrors.ErrInvalidData):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, pkgerrors.ErrNotFound),
		errors.Is(err, storage.ErrSessionNotFound),
		errors.Is(err, storage.ErrRoundNotFound),
		errors.Is(err, storage.ErrModelNotFound),
		errors.Is(err, storage.ErrTrainerNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, pkgerrors.ErrEntityExists):
		w.WriteHeader(http.StatusConflict)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	if err := json.NewEncoder(w).Encode(errorRes{Err: err.Error()}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type errorRes struct {
	Err string `json:"error"`
}
