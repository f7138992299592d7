package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestNewArtifactStampsFromClock(t *testing.T) {
	frozen := time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)
	fake := clockwork.NewFakeClockAt(frozen)
	SetClock(fake)
	defer SetClock(nil)

	a := NewArtifact("maps/test.svg", "image/svg+xml", []byte("<svg/>"))
	assert.Equal(t, frozen, a.RenderedAt)

	fake.Advance(90 * time.Minute)
	b := NewArtifact("maps/test.svg", "image/svg+xml", []byte("<svg/>"))
	assert.Equal(t, frozen.Add(90*time.Minute), b.RenderedAt)
	assert.Equal(t, 90*time.Minute, b.RenderedAt.Sub(a.RenderedAt))
}
