package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/callsight/callsight/internal/adapters/http/api"
	repository "github.com/callsight/callsight/internal/adapters/repository"
	service "github.com/callsight/callsight/internal/app"
	"github.com/callsight/callsight/internal/domain/model"
	"github.com/callsight/callsight/internal/domain/signature"
	"github.com/callsight/callsight/internal/identity"
	"github.com/callsight/callsight/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

const testSecret = "whsec_test"

// Mock implementations for testing
type mockVerifier struct {
	id  identity.Identity
	err error
}

func (m *mockVerifier) Verify(ctx context.Context, token string) (identity.Identity, error) {
	if m.err != nil {
		return identity.Identity{}, m.err
	}
	return m.id, nil
}

type mockDependencies struct {
	secret    string
	outcome   model.IngestOutcome
	ingestErr error
	ingested  [][]byte

	calls   []map[string]any
	listErr error

	client    model.Client
	signupErr error

	token     string
	expiresAt time.Time
	loginErr  error

	tokens identity.Verifier
}

func (m *mockDependencies) VerifyWebhook(header string, body []byte, now time.Time) error {
	return signature.NewVerifier(m.secret, signature.DefaultReplayWindow).Verify(header, body, now)
}

func (m *mockDependencies) Ingest(ctx context.Context, body []byte) (model.IngestOutcome, error) {
	if m.ingestErr != nil {
		return 0, m.ingestErr
	}
	m.ingested = append(m.ingested, body)
	return m.outcome, nil
}

func (m *mockDependencies) ListCalls(ctx context.Context, clientID string) ([]map[string]any, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.calls, nil
}

func (m *mockDependencies) Signup(ctx context.Context, email, password string) (model.Client, error) {
	if m.signupErr != nil {
		return model.Client{}, m.signupErr
	}
	return m.client, nil
}

func (m *mockDependencies) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	if m.loginErr != nil {
		return "", time.Time{}, m.loginErr
	}
	return m.token, m.expiresAt, nil
}

func (m *mockDependencies) TokenVerifier() identity.Verifier {
	return m.tokens
}

// signedRequest builds a webhook delivery with a valid signature header.
func signedRequest(secret, body string) *http.Request {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	header := fmt.Sprintf("t=%s,v0=%s", ts, signature.Sign(secret, ts, []byte(body)))
	req := httptest.NewRequest("POST", "/webhook/elevenlabs", strings.NewReader(body))
	req.Header.Set(api.SignatureHeader, header)
	return req
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux, deps)
	return mux
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{secret: testSecret, tokens: &mockVerifier{}}
		mux := newMux(deps)

		Convey("Then the health endpoint should serve metrics", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And unknown paths should answer 404", func() {
			req := httptest.NewRequest("GET", "/unknown", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And the webhook endpoint should reject non-POST methods", func() {
			req := httptest.NewRequest("GET", "/webhook/elevenlabs", nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestWebhookHandler_HandleWebhook(t *testing.T) {
	Convey("Given a webhook endpoint with a configured secret", t, func() {
		deps := &mockDependencies{secret: testSecret, outcome: model.OutcomeStored}
		mux := newMux(deps)
		body := `{"type":"post_call_transcription","data":{"conversation_id":"conv_1"}}`

		Convey("When a correctly signed delivery arrives", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, signedRequest(testSecret, body))

			Convey("Then it should be acknowledged and ingested", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldEqual, "Event received")
				So(deps.ingested, ShouldHaveLength, 1)
				So(string(deps.ingested[0]), ShouldEqual, body)
			})
		})

		Convey("When the delivery has no signature header", func() {
			req := httptest.NewRequest("POST", "/webhook/elevenlabs", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should answer 401 without ingesting", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(w.Body.String(), ShouldEqual, "Signature missing.")
				So(deps.ingested, ShouldBeEmpty)
			})
		})

		Convey("When the signature header is malformed", func() {
			req := httptest.NewRequest("POST", "/webhook/elevenlabs", strings.NewReader(body))
			req.Header.Set(api.SignatureHeader, "not-a-signature")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should answer 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldEqual, "Malformed signature header.")
			})
		})

		Convey("When the timestamp is outside the replay window", func() {
			ts := fmt.Sprintf("%d", time.Now().Add(-31*time.Minute).Unix())
			header := fmt.Sprintf("t=%s,v0=%s", ts, signature.Sign(testSecret, ts, []byte(body)))
			req := httptest.NewRequest("POST", "/webhook/elevenlabs", strings.NewReader(body))
			req.Header.Set(api.SignatureHeader, header)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should answer 403", func() {
				So(w.Code, ShouldEqual, http.StatusForbidden)
				So(w.Body.String(), ShouldEqual, "Request expired.")
			})
		})

		Convey("When the signature does not match the body", func() {
			ts := fmt.Sprintf("%d", time.Now().Unix())
			header := fmt.Sprintf("t=%s,v0=%s", ts, signature.Sign("whsec_other", ts, []byte(body)))
			req := httptest.NewRequest("POST", "/webhook/elevenlabs", strings.NewReader(body))
			req.Header.Set(api.SignatureHeader, header)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			Convey("Then it should answer 401 without ingesting", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(w.Body.String(), ShouldEqual, "Invalid signature.")
				So(deps.ingested, ShouldBeEmpty)
			})
		})

		Convey("When ingestion finds no phone mapping", func() {
			deps.outcome = model.OutcomeUnmapped
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, signedRequest(testSecret, body))

			Convey("Then the delivery should still be acknowledged", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldEqual, "Event received, but no client mapping found.")
			})
		})

		Convey("When ingestion finds a malformed client mapping", func() {
			deps.outcome = model.OutcomeBadMapping
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, signedRequest(testSecret, body))

			Convey("Then the delivery should still be acknowledged", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldEqual, "Event received, but client document is malformed.")
			})
		})

		Convey("When ingestion fails against the store", func() {
			deps.ingestErr = fmt.Errorf("store unavailable")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, signedRequest(testSecret, body))

			Convey("Then it should answer 500 so the provider retries", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				var resp map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["error"], ShouldEqual, "Something went wrong on the server!")
			})
		})
	})

	Convey("Given a webhook endpoint with no secret configured", t, func() {
		deps := &mockDependencies{secret: ""}
		mux := newMux(deps)

		Convey("When a delivery arrives", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, signedRequest(testSecret, `{}`))

			Convey("Then it should answer 500", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(w.Body.String(), ShouldEqual, "Webhook secret not configured.")
			})
		})
	})
}

func TestSignupHandler_HandleSignup(t *testing.T) {
	Convey("Given the signup endpoint", t, func() {
		deps := &mockDependencies{
			client: model.Client{ID: "client-1", Email: "ops@example.com"},
		}
		mux := newMux(deps)

		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest("POST", "/signup", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When valid credentials are submitted", func() {
			w := post(`{"email":"ops@example.com","password":"Sup3r$ecret"}`)

			Convey("Then the account should be created", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				var resp map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["uid"], ShouldEqual, "client-1")
				So(resp["email"], ShouldEqual, "ops@example.com")
			})
		})

		Convey("When the email is malformed", func() {
			w := post(`{"email":"not-an-email","password":"Sup3r$ecret"}`)

			Convey("Then it should answer 400 with field details", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var resp struct {
					Error   string              `json:"error"`
					Details map[string][]string `json:"details"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Error, ShouldEqual, "Invalid input")
				So(resp.Details["email"], ShouldNotBeEmpty)
			})
		})

		Convey("When the password lacks required complexity", func() {
			w := post(`{"email":"ops@example.com","password":"alllowercase1"}`)

			Convey("Then it should answer 400 with password details", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var resp struct {
					Details map[string][]string `json:"details"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Details["password"], ShouldNotBeEmpty)
			})
		})

		Convey("When the body is not JSON", func() {
			w := post(`not json`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the email is already registered", func() {
			deps.signupErr = repository.ErrEmailTaken
			w := post(`{"email":"ops@example.com","password":"Sup3r$ecret"}`)

			Convey("Then it should answer 409", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				var resp map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["error"], ShouldEqual, "The email address is already in use by another account.")
			})
		})
	})
}

func TestLoginHandler_HandleLogin(t *testing.T) {
	Convey("Given the login endpoint", t, func() {
		expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		deps := &mockDependencies{token: "signed.jwt.token", expiresAt: expires}
		mux := newMux(deps)

		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest("POST", "/login", strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When valid credentials are submitted", func() {
			w := post(`{"email":"ops@example.com","password":"Sup3r$ecret"}`)

			Convey("Then it should return the access token", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["token"], ShouldEqual, "signed.jwt.token")
			})
		})

		Convey("When credentials do not match", func() {
			deps.loginErr = service.ErrInvalidCredentials
			w := post(`{"email":"ops@example.com","password":"wrong"}`)

			Convey("Then it should answer 401 without detail", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				var resp map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp["error"], ShouldEqual, "Invalid email or password.")
			})
		})

		Convey("When token signing is not configured", func() {
			deps.loginErr = identity.ErrNotConfigured
			w := post(`{"email":"ops@example.com","password":"Sup3r$ecret"}`)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestCallsHandler_HandleListCalls(t *testing.T) {
	Convey("Given the authenticated calls endpoint", t, func() {
		deps := &mockDependencies{
			calls: []map[string]any{
				{"id": "conv_2", "type": "post_call_transcription"},
				{"id": "conv_1", "type": "post_call_transcription"},
			},
			tokens: &mockVerifier{id: identity.Identity{Subject: "client-1", Email: "ops@example.com"}},
		}
		mux := newMux(deps)

		get := func(authorization string) *httptest.ResponseRecorder {
			req := httptest.NewRequest("GET", "/me/calls", nil)
			if authorization != "" {
				req.Header.Set("Authorization", authorization)
			}
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		Convey("When a valid bearer token is presented", func() {
			w := get("Bearer signed.jwt.token")

			Convey("Then it should return the caller's calls", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp, ShouldHaveLength, 2)
				So(resp[0]["id"], ShouldEqual, "conv_2")
			})
		})

		Convey("When no token is presented", func() {
			w := get("")
			So(w.Code, ShouldEqual, http.StatusForbidden)
			So(w.Body.String(), ShouldEqual, "Unauthorized: No token provided.")
		})

		Convey("When the authorization scheme is not bearer", func() {
			w := get("Basic dXNlcjpwYXNz")
			So(w.Code, ShouldEqual, http.StatusForbidden)
			So(w.Body.String(), ShouldEqual, "Unauthorized: No token provided.")
		})

		Convey("When the token fails verification", func() {
			deps.tokens = &mockVerifier{err: identity.ErrInvalidToken}
			mux = newMux(deps)
			w := get("Bearer expired.jwt.token")
			So(w.Code, ShouldEqual, http.StatusForbidden)
			So(w.Body.String(), ShouldEqual, "Unauthorized: Invalid token.")
		})

		Convey("When the client has no calls yet", func() {
			deps.calls = nil
			w := get("Bearer signed.jwt.token")

			Convey("Then it should return an empty array", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When no identity provider is configured", func() {
			deps.tokens = nil
			mux = newMux(deps)
			w := get("Bearer signed.jwt.token")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}
