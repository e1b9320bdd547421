package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"go.uber.org/zap"

	"github.com/Lllllllleong/mwmap/internal/apperr"
	"github.com/Lllllllleong/mwmap/internal/models"
	"github.com/Lllllllleong/mwmap/internal/services"
)

var (
	importInstance *services.KMLImportFunction
	once           sync.Once
	initErr        error
)

func init() {
	if logger, err := zap.NewProduction(); err == nil {
		zap.ReplaceGlobals(logger)
	}

	functions.HTTP("HandleImportKML", handleImportKML)
}

// main is required by the Go Functions Framework.
func main() {}

func handleImportKML(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		importInstance, initErr = services.NewKMLImportFunction(context.Background())
	})
	if initErr != nil {
		zap.L().Error("kml import initialization failed", zap.Error(initErr))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "failed to initialize service"})
		return
	}

	var req models.KMLImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		zap.L().Warn("could not decode request body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "could not parse JSON"})
		return
	}

	res, err := importInstance.Process(r.Context(), &req)
	if err != nil {
		// Already logged inside Process.
		writeJSON(w, apperr.Status(err), models.ErrorResponse{Error: apperr.Message(err)})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to write response", zap.Error(err))
	}
}
