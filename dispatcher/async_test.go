package dispatcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/ntfy-go/dispatcher"
	"github.com/shaharia-lab/ntfy-go/payload"
)

func TestAsyncSend_Success(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, "ok")
	d, err := dispatcher.NewBuilder(srv.URL).WithAuth(dispatcher.Token("tk_X")).BuildAsync()
	require.NoError(t, err)

	f := d.Send(context.Background(), payload.New("t").WithMarkdown(true))
	require.NoError(t, f.Wait(context.Background()))

	done, err := f.Result()
	assert.True(t, done)
	assert.NoError(t, err)

	req := srv.last(t)
	assert.Equal(t, "Bearer tk_X", req.Header.Get("Authorization"))
	assert.Equal(t, "yes", req.Header.Get("Markdown"))
}

func TestAsyncSend_ClassifiesLikeBlocking(t *testing.T) {
	srv := newFakeServer(t, http.StatusTooManyRequests, "slow down")
	d, err := dispatcher.NewBuilder(srv.URL).BuildAsync()
	require.NoError(t, err)

	err = d.Send(context.Background(), payload.New("t")).Wait(context.Background())
	assert.ErrorIs(t, err, dispatcher.ErrTooManyRequests)
}

func TestAsyncSend_OnDone(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, "")
	d, err := dispatcher.NewBuilder(srv.URL).BuildAsync()
	require.NoError(t, err)

	got := make(chan error, 1)
	d.Send(context.Background(), payload.New("t")).OnDone(func(err error) { got <- err })

	select {
	case err := <-got:
		assert.ErrorIs(t, err, dispatcher.ErrEmptyResponse)
	case <-time.After(5 * time.Second):
		t.Fatal("OnDone callback not called")
	}
}

func TestFuture_WaitRespectsContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()
	defer close(release)

	d, err := dispatcher.NewBuilder(srv.URL).BuildAsync()
	require.NoError(t, err)

	f := d.Send(context.Background(), payload.New("t"))

	done, _ := f.Result()
	assert.False(t, done)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.Wait(ctx), context.DeadlineExceeded)

	select {
	case <-f.Done():
		t.Fatal("future completed before the server answered")
	default:
	}
}
