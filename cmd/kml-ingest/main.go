package main

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Lllllllleong/mwmap/internal/services"
)

var (
	ingestInstance *services.KMLIngestFunction
	once           sync.Once
	initErr        error
)

func init() {
	// Replaced by the configured logger once the function initializes.
	if logger, err := zap.NewProduction(); err == nil {
		zap.ReplaceGlobals(logger)
	}

	// Triggered by object finalization on the upload bucket.
	functions.CloudEvent("IngestKML", ingestKML)
}

// main is required by the Go Functions Framework.
func main() {}

func ingestKML(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		ingestInstance, initErr = services.NewKMLIngest(context.Background())
	})
	if initErr != nil {
		zap.L().Error("kml ingest initialization failed", zap.Error(initErr))
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		zap.L().Error("failed to unmarshal event data", zap.Error(err), zap.ByteString("data", e.Data()))
		return eris.Wrap(err, "unmarshal gcs event")
	}

	// Process only returns errors worth a redelivery.
	return ingestInstance.Process(ctx, gcsEvent)
}
