package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
	"github.com/fredcamaral/slidekit/internal/test/clock"
)

func deck(n int) []entities.Slide {
	slides := make([]entities.Slide, n)
	for i := range slides {
		slides[i] = entities.Slide{Index: i, HTMLContent: fmt.Sprintf("<h1>Slide %c</h1>", 'A'+i)}
	}
	return slides
}

func TestPresentationPlayer_WrapsBothWays(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	p := NewPresentationPlayer(deck(5), fake, 100*time.Millisecond, nil)
	require.NoError(t, p.Open(entities.Size{Width: 1920, Height: 1080}, 0))

	assert.True(t, p.HandleKey(KeyArrowLeft))
	assert.Equal(t, 4, p.State().CurrentSlide)
	assert.Equal(t, "Slide E", p.State().SlideTitle)

	assert.True(t, p.HandleKey(KeyArrowRight))
	assert.Equal(t, 0, p.State().CurrentSlide)

	assert.False(t, p.HandleClick(MouseLeft))
	assert.Equal(t, 1, p.State().CurrentSlide)

	// right click goes back and suppresses the context menu
	assert.True(t, p.HandleClick(MouseRight))
	assert.Equal(t, 0, p.State().CurrentSlide)

	require.NoError(t, p.GoTo(-1))
	assert.Equal(t, 4, p.State().CurrentSlide)
	require.NoError(t, p.GoTo(12))
	assert.Equal(t, 2, p.State().CurrentSlide)

	assert.False(t, p.HandleKey("Enter"))

	assert.True(t, p.HandleKey(KeyEscape))
	assert.False(t, p.IsOpen())
	assert.ErrorIs(t, p.Next(), ErrPlayerClosed)
	assert.False(t, p.HandleKey(KeyArrowRight))
}

func TestPresentationPlayer_ScaleAfterSettle(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	p := NewPresentationPlayer(deck(3), fake, 100*time.Millisecond, nil)

	require.NoError(t, p.Open(entities.Size{Width: 1920, Height: 1200}, 0))
	assert.Equal(t, 0.0, p.State().Scale)

	fake.Advance(100 * time.Millisecond)
	// min(1.5, 1.666.., 1.2)
	assert.Equal(t, 1.2, p.State().Scale)

	p.Resize(entities.Size{Width: 800, Height: 450})
	assert.Equal(t, 0.625, p.State().Scale)

	p.Resize(entities.Size{Width: 640, Height: 720})
	assert.Equal(t, 0.5, p.State().Scale)
}

func TestPresentationPlayer_CloseBeforeSettle(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	p := NewPresentationPlayer(deck(3), fake, 100*time.Millisecond, nil)

	require.NoError(t, p.Open(entities.Size{Width: 1280, Height: 720}, 0))
	p.Close()
	fake.Advance(time.Second)
	assert.Equal(t, 0.0, p.State().Scale)
	assert.Equal(t, 0, fake.Pending())
}

func TestPresentationPlayer_Subscribers(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	p := NewPresentationPlayer(deck(2), fake, 0, nil)
	events := p.Subscribe("audience")

	require.NoError(t, p.Open(entities.Size{Width: 1280, Height: 720}, 1))
	require.NoError(t, p.Next())

	first := <-events
	assert.Equal(t, entities.PlayerEventOpened, first.Type)
	assert.Equal(t, 1, first.State.CurrentSlide)

	second := <-events
	assert.Equal(t, entities.PlayerEventNavigation, second.Type)
	assert.Equal(t, 0, second.State.CurrentSlide)

	p.Stop()
	last, open := <-events
	require.True(t, open, "closing broadcasts before the channel closes")
	assert.Equal(t, entities.PlayerEventClosed, last.Type)
	assert.False(t, last.State.Open)

	_, open = <-events
	assert.False(t, open)
}

func TestPresentationPlayer_EmptyDeck(t *testing.T) {
	p := NewPresentationPlayer(nil, clock.NewFake(time.Unix(0, 0)), 0, nil)
	assert.Error(t, p.Open(entities.Size{Width: 1280, Height: 720}, 0))
	_, err := p.CurrentSlide()
	assert.Error(t, err)
}
