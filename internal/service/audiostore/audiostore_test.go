package audiostore_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/husainf4l/baridai-sub000/internal/service/audiostore"
)

type putRecord struct {
	Method      string
	Path        string
	ContentType string
}

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		srv   *httptest.Server
		mu    sync.Mutex
		puts  []putRecord
		store *audiostore.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		puts = nil
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			mu.Lock()
			puts = append(puts, putRecord{Method: r.Method, Path: r.URL.Path, ContentType: r.Header.Get("Content-Type")})
			mu.Unlock()
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.WriteHeader(http.StatusOK)
		}))
		DeferCleanup(srv.Close)

		var err error
		store, err = audiostore.New(ctx, audiostore.Config{
			Bucket:    "voice",
			Region:    "us-east-1",
			Endpoint:  srv.URL,
			AccessKey: "AKIDEXAMPLE",
			SecretKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
			Prefix:    "/Voice Replies/",
			URLExpiry: 15 * time.Minute,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("uploads under the normalized prefix and returns a presigned URL", func() {
		out, err := store.Upload(ctx, "u1/abc.mp3", []byte("mp3-bytes"), "audio/mpeg")
		Expect(err).NotTo(HaveOccurred())

		Expect(puts).To(HaveLen(1))
		Expect(puts[0].Method).To(Equal(http.MethodPut))
		Expect(puts[0].Path).To(Equal("/voice/voice-replies/u1/abc.mp3"))
		Expect(puts[0].ContentType).To(Equal("audio/mpeg"))

		u, err := url.Parse(out)
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Path).To(Equal("/voice/voice-replies/u1/abc.mp3"))
		Expect(u.Query().Get("X-Amz-Expires")).To(Equal("900"))
		Expect(u.Query().Get("X-Amz-Signature")).NotTo(BeEmpty())
	})

	It("rejects empty keys", func() {
		_, err := store.Upload(ctx, "/", []byte("x"), "audio/mpeg")
		Expect(err).To(MatchError(audiostore.ErrEmptyKey))
		Expect(puts).To(BeEmpty())
	})

	It("requires a bucket", func() {
		_, err := audiostore.New(ctx, audiostore.Config{Region: "us-east-1"})
		Expect(err).To(HaveOccurred())
	})
})
