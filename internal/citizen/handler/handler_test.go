package handler_test

import (
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"civitas/internal/citizen/handler"
	"civitas/internal/citizen/models"
	"civitas/internal/citizen/service"
	"civitas/internal/citizen/store"
	"civitas/internal/citizen/token"
	"civitas/internal/platform/middleware"
	"civitas/pkg/testutil"
)

// jwtValidator adapts the token service to the middleware interface, the
// same way the server wiring does.
type jwtValidator struct {
	tokens *token.Service
}

func (v *jwtValidator) ValidateAccessToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := v.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		CitizenID:         claims.CitizenID,
		VerificationLevel: claims.VerificationLevel,
	}, nil
}

type CitizenHandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestCitizenHandlerSuite(t *testing.T) {
	suite.Run(t, new(CitizenHandlerSuite))
}

func (s *CitizenHandlerSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	tokens := token.NewService("test-signing-key", "civitas-test", "civitas-api")
	svc, err := service.New(store.NewMemory(), tokens, service.WithLogger(logger))
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	handler.New(svc, logger, &jwtValidator{tokens: tokens}).Register(s.router)
}

func (s *CitizenHandlerSuite) register(username string) *models.Citizen {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/register", map[string]string{
		"username": username,
		"email":    username + "@example.org",
		"password": "correct-horse-battery",
	})
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code)
	return testutil.UnmarshalResponse[models.Citizen](s.T(), rr)
}

func (s *CitizenHandlerSuite) TestRegister() {
	citizen := s.register("ana")
	s.Equal("ana", citizen.Username)
	s.False(citizen.ID.IsNil())
}

func (s *CitizenHandlerSuite) TestRegisterMissingFields() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/register", map[string]string{
		"username": "ana",
	})
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *CitizenHandlerSuite) TestRegisterMalformedJSON() {
	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/auth/register", `{"username":`)
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *CitizenHandlerSuite) TestRegisterDuplicateUsername() {
	s.register("ana")
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/register", map[string]string{
		"username": "ANA",
		"email":    "other@example.org",
		"password": "correct-horse-battery",
	})
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusConflict, rr.Code)
}

func (s *CitizenHandlerSuite) TestLoginAndMe() {
	s.register("ana")

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
		"username": "ana",
		"password": "correct-horse-battery",
	})
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code)

	login := testutil.UnmarshalResponse[struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}](s.T(), rr)
	s.Equal("Bearer", login.TokenType)
	s.NotEmpty(login.AccessToken)

	me := testutil.NewRequest(s.T(), http.MethodGet, "/citizens/me")
	me.Header.Set("Authorization", "Bearer "+login.AccessToken)
	rr = testutil.DoRequest(s.router, me)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal("ana", testutil.UnmarshalResponse[models.Citizen](s.T(), rr).Username)
}

func (s *CitizenHandlerSuite) TestLoginWrongPassword() {
	s.register("ana")
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]string{
		"username": "ana",
		"password": "wrong",
	})
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *CitizenHandlerSuite) TestMeRequiresToken() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/citizens/me"))
	s.Equal(http.StatusUnauthorized, rr.Code)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/citizens/me")
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr = testutil.DoRequest(s.router, req)
	s.Equal(http.StatusUnauthorized, rr.Code)
}
