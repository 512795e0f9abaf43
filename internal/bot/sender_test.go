package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessenger struct {
	messages []*telego.SendMessageParams
	photos   []*telego.SendPhotoParams
	err      error
}

func (f *fakeMessenger) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	f.messages = append(f.messages, params)
	return &telego.Message{}, f.err
}

func (f *fakeMessenger) SendPhoto(_ context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	f.photos = append(f.photos, params)
	return &telego.Message{}, f.err
}

func TestSender(t *testing.T) {
	api := &fakeMessenger{}
	s := NewSender(api)

	s.SendText(context.Background(), 42, "привет")
	require.Len(t, api.messages, 1)
	assert.Equal(t, int64(42), api.messages[0].ChatID.ID)
	assert.Equal(t, "привет", api.messages[0].Text)

	s.SendPhoto(context.Background(), 42, "file-1", "подпись")
	require.Len(t, api.photos, 1)
	assert.Equal(t, "file-1", api.photos[0].Photo.FileID)
	assert.Equal(t, "подпись", api.photos[0].Caption)
}

func TestSenderSwallowsErrors(t *testing.T) {
	api := &fakeMessenger{err: errors.New("Too Many Requests")}
	s := NewSender(api)
	assert.NotPanics(t, func() { s.SendText(context.Background(), 1, "x") })
}
