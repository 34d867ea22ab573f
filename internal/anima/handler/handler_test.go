package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"anima/internal/anima/handler/mocks"
	assetmodels "anima/internal/asset/models"
	paymentmodels "anima/internal/payment/models"
	"anima/internal/progression"
	"anima/internal/ratelimit"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/middleware/auth"
	"anima/pkg/requestcontext"
	"anima/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/anima-mocks.go -package=mocks

const validToken = "valid-token"

// tokenValidator accepts exactly one token, issued to subject.
type tokenValidator struct {
	subject string
}

func (v tokenValidator) ValidateToken(token string) (*auth.JWTClaims, error) {
	if token != validToken {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return &auth.JWTClaims{Subject: v.subject, JTI: "jti-1"}, nil
}

type HandlerSuite struct {
	suite.Suite
	payments    *mocks.MockPaymentService
	assets      *mocks.MockAssetService
	progression *mocks.MockProgressionService
	handler     *Handler
	router      http.Handler
	alice       id.PrincipalID
	now         time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.payments = mocks.NewMockPaymentService(ctrl)
	s.assets = mocks.NewMockAssetService(ctrl)
	s.progression = mocks.NewMockProgressionService(ctrl)
	s.alice = id.PrincipalID(uuid.New())
	s.now = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.handler = New(s.payments, s.assets, s.progression, logger, nil, tokenValidator{subject: s.alice.String()})
	r := chi.NewRouter()
	s.handler.Register(r)
	s.router = r
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("Authorization", "Bearer "+validToken)
	return testutil.DoRequest(s.router, req)
}

// callerIs matches a context carrying the expected principal.
func callerIs(p id.PrincipalID) gomock.Matcher {
	return gomock.Cond(func(ctx context.Context) bool {
		return requestcontext.Principal(ctx) == p
	})
}

func (s *HandlerSuite) TestRegisterPayment() {
	t := s.T()

	testutil.Given(t, "an authenticated caller", func(t *testing.T) {
		testutil.When(t, "registering a memo", func(t *testing.T) {
			s.payments.EXPECT().Register(callerIs(s.alice), id.Memo(42)).Return(&paymentmodels.PaymentRecord{
				Payer:     s.alice,
				Memo:      42,
				Timestamp: s.now,
				Amount:    paymentmodels.MintPriceE8s,
				Status:    paymentmodels.PaymentStatusPending,
			}, nil)

			rr := s.do(testutil.NewJSONRequest(t, http.MethodPost, "/payments", map[string]any{"memo": 42}))

			testutil.Then(t, "the pending intent is returned", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusCreated)
				resp := testutil.UnmarshalResponse[PaymentResponse](t, rr)
				s.Equal(s.alice.String(), resp.Payer)
				s.Equal(uint64(42), resp.Memo)
				s.Equal(paymentmodels.MintPriceE8s, resp.Amount)
				s.Equal("pending", resp.Status)
			})
		})

		testutil.When(t, "the memo belongs to someone else", func(t *testing.T) {
			s.payments.EXPECT().Register(gomock.Any(), id.Memo(43)).
				Return(nil, dErrors.New(dErrors.CodePayerMismatch, "memo is registered to a different payer"))

			rr := s.do(testutil.NewJSONRequest(t, http.MethodPost, "/payments", map[string]any{"memo": 43}))

			testutil.Then(t, "403 payer_mismatch", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusForbidden, string(dErrors.CodePayerMismatch))
			})
		})

		testutil.When(t, "the memo is missing", func(t *testing.T) {
			rr := s.do(testutil.NewJSONRequest(t, http.MethodPost, "/payments", map[string]any{}))

			testutil.Then(t, "400 validation_error", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
			})
		})

		testutil.When(t, "the memo is negative", func(t *testing.T) {
			rr := s.do(testutil.NewRequestWithBody(t, http.MethodPost, "/payments", `{"memo":-1}`))

			testutil.Then(t, "400 bad_request", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
			})
		})
	})
}

func (s *HandlerSuite) TestPayerComesFromTokenNotBody() {
	s.payments.EXPECT().Register(callerIs(s.alice), id.Memo(1)).Return(&paymentmodels.PaymentRecord{
		Payer: s.alice, Memo: 1, Amount: paymentmodels.MintPriceE8s, Status: paymentmodels.PaymentStatusPending,
	}, nil)

	body := `{"memo":1,"payer":"` + uuid.NewString() + `"}`
	rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/payments", body))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
}

func (s *HandlerSuite) TestVerifyPayment() {
	s.payments.EXPECT().Verify(callerIs(s.alice), id.Memo(7)).
		Return(nil, dErrors.New(dErrors.CodePaymentNotFound, "payment not found"))

	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/payments/7"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodePaymentNotFound))

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/payments/not-a-number"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeInvalidInput))
}

func (s *HandlerSuite) TestMint() {
	s.Run("success", func() {
		s.assets.EXPECT().Mint(callerIs(s.alice), id.Memo(42)).
			Return(&assetmodels.MintResult{ID: 0, Designation: "ANIMA-00000000"}, nil)

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets/mint", map[string]any{"memo": 42}))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[MintResponse](s.T(), rr)
		s.Equal(uint64(0), resp.Identifier)
		s.Equal("ANIMA-00000000", resp.Designation)
	})

	s.Run("replay", func() {
		s.assets.EXPECT().Mint(gomock.Any(), id.Memo(42)).
			Return(nil, dErrors.New(dErrors.CodePaymentConsumed, "payment already used for minting"))

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets/mint", map[string]any{"memo": 42}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodePaymentConsumed))
	})

	s.Run("internal errors hide details", func() {
		s.assets.EXPECT().Mint(gomock.Any(), id.Memo(5)).
			Return(nil, dErrors.New(dErrors.CodeInternal, "pq: connection refused"))

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets/mint", map[string]any{"memo": 5}))
		s.Equal(http.StatusInternalServerError, rr.Code)
		s.NotContains(rr.Body.String(), "connection refused")
	})
}

func (s *HandlerSuite) TestGetAsset() {
	s.Run("minted asset", func() {
		s.assets.EXPECT().Get(gomock.Any(), id.AssetID(42)).Return(&assetmodels.AssetData{
			ID: 42, Owner: s.alice, Designation: "ANIMA-0000002A", CreatedAt: s.now, Level: 2, Experience: 105, SourceMemo: 9,
		}, nil)

		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/assets/42"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[AssetEnvelope](s.T(), rr)
		s.Require().NotNil(resp.Asset)
		s.Equal("ANIMA-0000002A", resp.Asset.Designation)
		s.Equal(uint64(105), resp.Asset.Experience)
		s.Equal(uint64(9), resp.Asset.SourceMemo)
	})

	s.Run("never minted", func() {
		s.assets.EXPECT().Get(gomock.Any(), id.AssetID(9)).Return(nil, nil)

		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/assets/9"))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"asset":null}`, rr.Body.String())
	})
}

func (s *HandlerSuite) TestListOwned() {
	s.assets.EXPECT().ListOwned(callerIs(s.alice)).Return([]*assetmodels.AssetData{}, nil)

	req := testutil.WithPrincipal(testutil.NewRequest(s.T(), http.MethodGet, "/assets"), s.alice.String())
	rr := testutil.DoRequest(http.HandlerFunc(s.handler.handleListOwned), req)

	testutil.AssertStatusOK(s.T(), rr)
	s.JSONEq(`{"assets":[]}`, rr.Body.String())
}

func (s *HandlerSuite) TestInteract() {
	s.Run("with message", func() {
		s.progression.EXPECT().Interact(callerIs(s.alice), id.AssetID(3), gomock.Cond(func(m *string) bool {
			return m != nil && *m == "hi"
		})).Return(&progression.InteractionResult{Message: "ANIMA-00000003 gained 10 experience", ExperienceGained: 10}, nil)

		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets/3/interact", map[string]any{"message": "hi"}))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[InteractResponse](s.T(), rr)
		s.Equal(uint64(10), resp.ExperienceGained)
	})

	s.Run("empty body", func() {
		s.progression.EXPECT().Interact(gomock.Any(), id.AssetID(3), gomock.Nil()).
			Return(&progression.InteractionResult{Message: "ok", ExperienceGained: 10}, nil)

		rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, "/assets/3/interact"))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("unknown asset", func() {
		s.progression.EXPECT().Interact(gomock.Any(), id.AssetID(99), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeAssetNotFound, "asset not found"))

		rr := s.do(testutil.NewRequest(s.T(), http.MethodPost, "/assets/99/interact"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeAssetNotFound))
	})

	s.Run("message too long", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets/3/interact",
			map[string]any{"message": strings.Repeat("a", maxMessageLength+1)}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *HandlerSuite) TestRejectsNonJSONBody() {
	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader("memo=42"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := s.do(req)
	s.Equal(http.StatusUnsupportedMediaType, rr.Code)
}

func (s *HandlerSuite) TestMintIsRateLimitedPerCaller() {
	limiter := ratelimit.New(ratelimit.NewMemoryStore(),
		map[ratelimit.Class]ratelimit.Limit{ratelimit.ClassPayment: {Requests: 1, Window: time.Minute}},
		ratelimit.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	h := New(s.payments, s.assets, s.progression, slog.New(slog.NewTextHandler(io.Discard, nil)), nil,
		tokenValidator{subject: s.alice.String()}, WithRateLimiter(limiter))
	r := chi.NewRouter()
	h.Register(r)
	s.router = r

	s.assets.EXPECT().Mint(gomock.Any(), id.Memo(1)).
		Return(&assetmodels.MintResult{ID: 0, Designation: "ANIMA-00000000"}, nil).Times(1)

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets/mint", map[string]any{"memo": 1}))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/assets/mint", map[string]any{"memo": 1}))
	testutil.AssertRateLimited(s.T(), rr)

	s.assets.EXPECT().Get(gomock.Any(), id.AssetID(0)).Return(nil, nil)
	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/assets/0"))
	testutil.AssertStatusOK(s.T(), rr)
}

func (s *HandlerSuite) TestRequiresBearerToken() {
	req := testutil.NewRequest(s.T(), http.MethodGet, "/assets")
	rr := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusUnauthorized, rr.Code)

	req = testutil.NewRequest(s.T(), http.MethodGet, "/assets")
	req.Header.Set("Authorization", "Bearer forged")
	rr = testutil.DoRequest(s.router, req)
	s.Equal(http.StatusUnauthorized, rr.Code)
}
