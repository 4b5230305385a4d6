package engine_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/querydeck/querydeck/internal/engine"
	"github.com/querydeck/querydeck/internal/models"
	srvErrors "github.com/querydeck/querydeck/pkg/errors"
)

var _ = Describe("RemoteClient", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	descFor := func(server *httptest.Server) models.ConnectionDescriptor {
		host, portStr, err := net.SplitHostPort(strings.TrimPrefix(server.URL, "http://"))
		Expect(err).NotTo(HaveOccurred())
		port, err := strconv.Atoi(portStr)
		Expect(err).NotTo(HaveOccurred())
		return models.ConnectionDescriptor{
			Name:  "remote",
			Scope: models.ScopeRemote,
			Host:  host,
			Port:  port,
		}
	}

	Context("Execute", func() {
		// Given a healthy remote engine
		// When a query is posted
		// Then the raw body comes back and the request carried the query text
		It("should post the query and return the body", func() {
			var gotBody string
			var gotContentType string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				raw, _ := io.ReadAll(r.Body)
				gotBody = string(raw)
				gotContentType = r.Header.Get("Content-Type")
				w.Write([]byte(`{"meta": [], "data": []}`))
			}))
			defer server.Close()

			client := engine.NewRemoteClient(descFor(server))
			body, err := client.Execute(ctx, "SELECT 1 FORMAT JSON")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("meta"))
			Expect(gotBody).To(Equal("SELECT 1 FORMAT JSON"))
			Expect(gotContentType).To(Equal("application/x-www-form-urlencoded"))
		})

		It("should send basic credentials in password mode", func() {
			var user, password string
			var ok bool
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				user, password, ok = r.BasicAuth()
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			desc := descFor(server)
			desc.AuthMode = models.AuthModePassword
			desc.User = "reader"
			desc.Password = "hunter2"

			_, err := engine.NewRemoteClient(desc).Execute(ctx, "SELECT 1")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(user).To(Equal("reader"))
			Expect(password).To(Equal("hunter2"))
		})

		It("should send the api key header in api key mode", func() {
			var gotKey string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotKey = r.Header.Get("X-API-Key")
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			desc := descFor(server)
			desc.AuthMode = models.AuthModeAPIKey
			desc.APIKey = "key-123"

			_, err := engine.NewRemoteClient(desc).Execute(ctx, "SELECT 1")
			Expect(err).NotTo(HaveOccurred())
			Expect(gotKey).To(Equal("key-123"))
		})

		It("should classify 401 as an authentication failure", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer server.Close()

			_, err := engine.NewRemoteClient(descFor(server)).Execute(ctx, "SELECT 1")
			Expect(err).To(HaveOccurred())
			Expect(srvErrors.IsAuthenticationError(err)).To(BeTrue())
		})

		It("should classify 404 as a connectivity failure", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			_, err := engine.NewRemoteClient(descFor(server)).Execute(ctx, "SELECT 1")
			Expect(err).To(HaveOccurred())
			Expect(srvErrors.IsConnectivityError(err)).To(BeTrue())
		})

		// Given a server error with a body
		// When the response is classified
		// Then the error carries the status and the body text
		It("should carry status and body on other failures", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Code: 62. DB::Exception: Syntax error"))
			}))
			defer server.Close()

			_, err := engine.NewRemoteClient(descFor(server)).Execute(ctx, "SELEC 1")
			Expect(err).To(HaveOccurred())
			Expect(srvErrors.IsHTTPError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("500"))
			Expect(err.Error()).To(ContainSubstring("Syntax error"))
		})

		It("should classify an unreachable host as a connectivity failure", func() {
			desc := models.ConnectionDescriptor{
				Name:  "gone",
				Scope: models.ScopeRemote,
				Host:  "127.0.0.1",
				Port:  1, // nothing listens here
			}

			_, err := engine.NewRemoteClient(desc).Execute(ctx, "SELECT 1")
			Expect(err).To(HaveOccurred())
			Expect(srvErrors.IsConnectivityError(err)).To(BeTrue())
		})
	})

	Context("Ping", func() {
		It("should succeed against a healthy engine", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("1"))
			}))
			defer server.Close()

			Expect(engine.NewRemoteClient(descFor(server)).Ping(ctx)).To(Succeed())
		})
	})
})
