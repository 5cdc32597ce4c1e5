package clipboard

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type mockWriter struct {
	mock.Mock
	name string
}

func (m *mockWriter) Name() string { return m.name }

func (m *mockWriter) Write(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

type mockPage struct {
	mock.Mock
}

func (m *mockPage) WriteClipboard(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

func TestChain_FirstSuccessWins(t *testing.T) {
	first := &mockWriter{name: "system"}
	second := &mockWriter{name: "page"}
	third := &mockWriter{name: "osc52"}
	first.On("Write", mock.Anything, "transcript").Return(errors.New("xclip not found")).Once()
	second.On("Write", mock.Anything, "transcript").Return(nil).Once()

	core, logs := observer.New(zap.InfoLevel)
	chain := NewChain(zap.New(core), first, second, third)

	method, err := chain.Write(context.Background(), "transcript")

	require.NoError(t, err)
	assert.Equal(t, "page", method)
	first.AssertExpectations(t)
	second.AssertExpectations(t)
	third.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)

	assert.Equal(t, 1, logs.FilterMessage("Clipboard method failed, trying next.").Len())
	assert.Equal(t, 1, logs.FilterMessage("Copied transcript to clipboard.").Len())
}

func TestChain_AllFail(t *testing.T) {
	first := &mockWriter{name: "system"}
	second := &mockWriter{name: "osc52"}
	first.On("Write", mock.Anything, mock.Anything).Return(ErrUnsupported)
	second.On("Write", mock.Anything, mock.Anything).Return(errors.New("no tty"))

	chain := NewChain(zaptest.NewLogger(t), first, second)
	method, err := chain.Write(context.Background(), "x")

	assert.Empty(t, method)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllFailed)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "osc52: no tty")
}

func TestChain_CancelledContext(t *testing.T) {
	w := &mockWriter{name: "system"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewChain(zaptest.NewLogger(t), w).Write(ctx, "x")

	assert.ErrorIs(t, err, context.Canceled)
	w.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
}

func TestSystem_UsesInjectedWriter(t *testing.T) {
	var got string
	s := &System{write: func(text string) error {
		got = text
		return nil
	}}
	err := s.Write(context.Background(), "hello")
	if errors.Is(err, ErrUnsupported) {
		t.Skip("no clipboard utility on this host")
	}
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestPage_DelegatesToTab(t *testing.T) {
	page := new(mockPage)
	page.On("WriteClipboard", mock.Anything, "abc").Return(nil).Once()

	require.NoError(t, NewPage(page).Write(context.Background(), "abc"))
	page.AssertExpectations(t)
}

func TestOSC52(t *testing.T) {
	t.Run("plain terminal", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewOSC52(&buf, "xterm-256color").Write(context.Background(), "hi"))
		// "hi" base64-encodes to aGk=.
		assert.Contains(t, buf.String(), "\x1b]52;c;aGk=")
	})

	t.Run("tmux passthrough", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewOSC52(&buf, "tmux-256color").Write(context.Background(), "hi"))
		assert.Contains(t, buf.String(), "\x1bPtmux;")
	})

	t.Run("no output", func(t *testing.T) {
		assert.ErrorIs(t, NewOSC52(nil, "").Write(context.Background(), "hi"), ErrUnsupported)
	})
}

func TestBuild(t *testing.T) {
	logger := zaptest.NewLogger(t)

	chain, err := Build(logger, []string{"OSC52", "page", "system"}, new(mockPage))
	require.NoError(t, err)
	assert.Equal(t, []string{"osc52", "page", "system"}, chain.Names())

	chain, err = Build(logger, []string{"page", "system"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"system"}, chain.Names(), "page is skipped without a tab")

	_, err = Build(logger, []string{"page"}, nil)
	assert.Error(t, err)

	_, err = Build(logger, []string{"telegraph"}, nil)
	assert.Error(t, err)
}
