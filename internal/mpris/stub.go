//go:build !linux

package mpris

import (
	"context"

	"go.uber.org/zap"

	"github.com/llehouerou/plexpresence/internal/presence"
)

// Mirror is a no-op outside Linux.
type Mirror struct{}

// New returns a no-op mirror outside Linux.
func New(_ *zap.Logger) (*Mirror, error) {
	return &Mirror{}, nil
}

func (m *Mirror) TrackStarted(_ context.Context, _ presence.TrackInfo) error { return nil }

func (m *Mirror) TrackStopped(_ context.Context) error { return nil }

// Close is a no-op outside Linux.
func (m *Mirror) Close() error { return nil }
