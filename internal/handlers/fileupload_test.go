package handlers_test

import (
	"context"
	"errors"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eligicert/internal/session"
)

// sessionState reads what the store holds for c. A missing session reads as
// the zero state.
func (f *fixture) sessionState(c *client) (session.State, error) {
	id, err := f.tokens.Verify(c.cookie.Value)
	if err != nil {
		return session.State{}, err
	}
	st, err := f.store.Load(context.Background(), id)
	if errors.Is(err, session.ErrNotFound) {
		return session.State{}, nil
	}
	return st, err
}

// waitForSelection blocks until the session has registered a photo
// selection newer than gen.
func (f *fixture) waitForSelection(t *testing.T, c *client, gen uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		st, err := f.sessionState(c)
		return err == nil && st.Page.Form.PhotoGen > gen
	}, 5*time.Second, 5*time.Millisecond)
}

func (f *fixture) storedPhoto(t *testing.T, c *client) []byte {
	t.Helper()
	st, err := f.sessionState(c)
	require.NoError(t, err)
	if st.Page.Form.Photo == nil {
		return nil
	}
	return st.Page.Form.Photo.Data
}

// slowUpload posts photo to /photo but stalls halfway through the image until
// release is closed. The response arrives on the returned channel.
func (c *client) slowUpload(photo []byte, release <-chan struct{}) <-chan *httptest.ResponseRecorder {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	req := httptest.NewRequest(http.MethodPost, "/photo", pr)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(c.cookie)

	go func() {
		fw, err := mw.CreateFormFile("photo", "older.png")
		if err == nil {
			_, err = fw.Write(photo[:len(photo)/2])
		}
		if err == nil {
			<-release
			_, err = fw.Write(photo[len(photo)/2:])
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		defer pr.Close()
		rec := httptest.NewRecorder()
		c.h.ServeHTTP(rec, req)
		done <- rec
	}()
	return done
}

func TestPhoto_OlderUploadCannotUndoSubmit(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	c.get("/")
	st, err := f.sessionState(c)
	require.NoError(t, err)

	release := make(chan struct{})
	older := c.slowUpload(tintedPNG(t, color.RGBA{B: 255, A: 255}), release)
	f.waitForSelection(t, c, st.Page.Form.PhotoGen)

	rec := c.apply("Ravi", "85", "90", photoPNG(t))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	close(release)
	assert.Equal(t, http.StatusSeeOther, (<-older).Code)

	got := c.status()
	assert.Equal(t, "showing", got.Mode)
	require.NotNil(t, got.Certificate)
	assert.Equal(t, "Ravi", got.Certificate.Name)
	assert.Equal(t, photoPNG(t), f.storedPhoto(t, c))
}

func TestPhoto_NewestSelectionWins(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	c.get("/")
	st, err := f.sessionState(c)
	require.NoError(t, err)

	release := make(chan struct{})
	older := c.slowUpload(tintedPNG(t, color.RGBA{B: 255, A: 255}), release)
	f.waitForSelection(t, c, st.Page.Form.PhotoGen)

	newer := tintedPNG(t, color.RGBA{G: 255, A: 255})
	rec := c.postMultipart("/photo", map[string]string{"name": "Asha"}, upload{"photo", "newer.png", newer})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	close(release)
	assert.Equal(t, http.StatusSeeOther, (<-older).Code)

	got := c.status()
	assert.Equal(t, "collecting", got.Mode)
	assert.True(t, got.HasPhoto)
	assert.Empty(t, got.Toasts)
	assert.Equal(t, newer, f.storedPhoto(t, c))
	assert.Contains(t, c.get("/").Body.String(), `value="Asha"`)
}

func TestPhoto_BackDropsUploadInFlight(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	c.apply("Ravi", "85", "90", photoPNG(t))
	c.postForm("/back", nil)
	st, err := f.sessionState(c)
	require.NoError(t, err)

	release := make(chan struct{})
	older := c.slowUpload(photoPNG(t), release)
	f.waitForSelection(t, c, st.Page.Form.PhotoGen)

	c.postForm("/back", nil)
	close(release)
	<-older

	assert.False(t, c.status().HasPhoto)
}

// brokenConn fails every body write, as a client that hung up would.
type brokenConn struct {
	header http.Header
	codes  []int
}

func (b *brokenConn) Header() http.Header { return b.header }

func (b *brokenConn) WriteHeader(code int) { b.codes = append(b.codes, code) }

func (b *brokenConn) Write([]byte) (int, error) {
	if len(b.codes) == 0 {
		b.WriteHeader(http.StatusOK)
	}
	return 0, errors.New("connection reset by peer")
}

func TestDownload_BrokenConnectionIsNotRedirected(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)
	c.apply("Ravi Kumar", "85", "90", photoPNG(t))

	req := httptest.NewRequest(http.MethodGet, "/certificate.png", nil)
	req.AddCookie(c.cookie)
	w := &brokenConn{header: http.Header{}}
	f.handler.ServeHTTP(w, req)

	assert.Equal(t, []int{http.StatusOK}, w.codes)
	assert.Empty(t, w.header.Get("Location"))
	assert.Equal(t, "image/png", w.header.Get("Content-Type"))

	st := c.status()
	require.Len(t, st.Toasts, 1)
	assert.Equal(t, "Failed to download certificate. Please try again.", st.Toasts[0].Description)
}
