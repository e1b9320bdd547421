package services

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/Lllllllleong/mwmap/internal/apperr"
	"github.com/Lllllllleong/mwmap/internal/location"
	"github.com/Lllllllleong/mwmap/internal/mapview"
	"github.com/Lllllllleong/mwmap/internal/overlay"
)

// LocationZoom is the minimum zoom after locating the user.
const LocationZoom = 15

const msgLocateFailed = "위치를 가져올 수 없습니다. 위치 권한을 허용했는지 확인하세요."

// LocationFlow places the "you are here" marker.
type LocationFlow struct {
	locator location.Locator
}

// NewLocationFlow creates the location flow. locator may be nil when geolocation is
// unavailable.
func NewLocationFlow(locator location.Locator) *LocationFlow {
	return &LocationFlow{locator: locator}
}

// Locate replaces the session's location marker with a fresh fix, pans to it and zooms
// in to at least 15. A request made while one is in flight is ignored and returns nil.
func (f *LocationFlow) Locate(ctx context.Context, sess *Session) (*location.Fix, error) {
	if f.locator == nil {
		return nil, apperr.New(apperr.ErrNotReady, msgLocateFailed)
	}
	if !sess.beginLocate() {
		return nil, nil
	}
	defer sess.endLocate()

	if sess.LocationMarker.Clear() > 0 {
		sess.Notify()
	}

	ctx, cancel := context.WithTimeout(ctx, location.DefaultTimeout)
	defer cancel()
	fix, err := f.locator.Locate(ctx)
	if err != nil {
		zap.L().Warn("geolocation failed", zap.String("session_id", sess.ID), zap.Error(err))
		return nil, apperr.Wrap(apperr.ErrExternal, err, msgLocateFailed)
	}

	sess.LocationMarker.Replace([]overlay.Marker{{
		Position: fix.Position,
		Title:    LocationTitle(fix.Accuracy),
	}})
	sess.UpdateViewport(func(v *mapview.Viewport) {
		v.PanTo(fix.Position)
		v.RaiseZoom(LocationZoom)
	})
	return &fix, nil
}

// LocationTitle labels the location marker with the fix accuracy in whole meters.
func LocationTitle(accuracy float64) string {
	acc := "?"
	if accuracy > 0 && !math.IsInf(accuracy, 0) {
		acc = fmt.Sprintf("%.0f", accuracy)
	}
	return fmt.Sprintf("현재 위치 (정확도: %s m)", acc)
}
