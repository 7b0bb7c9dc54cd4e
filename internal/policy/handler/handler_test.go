package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"clarence/internal/policy/handler/mocks"
	"clarence/internal/policy/models"
	id "clarence/pkg/domain"
	dErrors "clarence/pkg/domain-errors"
	"clarence/pkg/testutil"
)

func newRouter(t *testing.T, userID id.UserID) (*mocks.MockService, http.Handler) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, testutil.WithUserID(r, userID))
		})
	})
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return svc, r
}

func ownedPolicy(userID id.UserID) *models.Policy {
	return &models.Policy{
		ID:           id.NewPolicyID(),
		PolicyNumber: "ACME-100",
		UserID:       &userID,
		Status:       models.StatusBound,
	}
}

func TestBind_UsesAuthenticatedUser(t *testing.T) {
	userID := id.NewUserID()
	svc, router := newRouter(t, userID)
	quoteID := id.NewCarrierQuoteID()
	svc.EXPECT().Bind(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, req *models.BindRequest) (*models.Policy, error) {
			require.NotNil(t, req.UserID)
			assert.Equal(t, userID, *req.UserID)
			assert.Equal(t, quoteID, req.CarrierQuoteID)
			assert.Equal(t, models.PlanMonthly, req.PaymentPlan)
			assert.Equal(t, "tok_visa", req.PaymentMethodRef)
			return ownedPolicy(userID), nil
		})

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/policies/bind", map[string]any{
		"carrierQuoteId":  quoteID.String(),
		"paymentPlan":     "monthly",
		"paymentMethodId": "tok_visa",
		"userId":          id.NewUserID().String(),
	}))

	testutil.AssertStatus(t, rr, http.StatusCreated)
	testutil.AssertJSONContains(t, rr, "policyNumber", "ACME-100")
}

func TestBind_ErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   dErrors.Code
	}{
		{"expired", dErrors.New(dErrors.CodeExpired, "Quote has expired"), http.StatusBadRequest, dErrors.CodeExpired},
		{"rejected", dErrors.New(dErrors.CodeBindRejected, "payment method declined"), http.StatusBadRequest, dErrors.CodeBindRejected},
		{"already bound", dErrors.New(dErrors.CodeConflict, "Quote already bound"), http.StatusConflict, dErrors.CodeConflict},
		{"not found", dErrors.New(dErrors.CodeNotFound, "Quote not found"), http.StatusNotFound, dErrors.CodeNotFound},
		{"carrier down", dErrors.New(dErrors.CodeInternal, "carrier bind failed"), http.StatusInternalServerError, dErrors.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, router := newRouter(t, id.NewUserID())
			svc.EXPECT().Bind(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/policies/bind", map[string]any{
				"carrierQuoteId": id.NewCarrierQuoteID().String(),
				"paymentPlan":    "annual",
			}))

			testutil.AssertStatusAndError(t, rr, tt.status, string(tt.code))
		})
	}
}

func TestList(t *testing.T) {
	tests := []struct {
		name  string
		query string
		setup func(svc *mocks.MockService, userID id.UserID, out []*models.Policy)
	}{
		{"all", "", func(svc *mocks.MockService, userID id.UserID, out []*models.Policy) {
			svc.EXPECT().ListForUser(gomock.Any(), userID).Return(out, nil)
		}},
		{"active", "?status=active", func(svc *mocks.MockService, userID id.UserID, out []*models.Policy) {
			svc.EXPECT().ListActive(gomock.Any(), userID).Return(out, nil)
		}},
		{"expiring", "?status=expiring", func(svc *mocks.MockService, userID id.UserID, out []*models.Policy) {
			svc.EXPECT().ListExpiringSoon(gomock.Any(), userID).Return(out, nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID := id.NewUserID()
			svc, router := newRouter(t, userID)
			tt.setup(svc, userID, []*models.Policy{ownedPolicy(userID)})

			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/policies/"+tt.query))

			testutil.AssertStatusOK(t, rr)
			testutil.AssertJSONContains(t, rr, "total", float64(1))
		})
	}
}

func TestList_UnknownStatus(t *testing.T) {
	_, router := newRouter(t, id.NewUserID())

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/policies/?status=lapsed"))

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
}

func TestGet_OwnerOnly(t *testing.T) {
	userID := id.NewUserID()
	svc, router := newRouter(t, userID)
	mine := ownedPolicy(userID)
	theirs := ownedPolicy(id.NewUserID())
	svc.EXPECT().Get(gomock.Any(), mine.ID).Return(mine, nil)
	svc.EXPECT().Get(gomock.Any(), theirs.ID).Return(theirs, nil)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/policies/"+mine.ID.String()))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "id", mine.ID.String())

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/policies/"+theirs.ID.String()))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeNotFound))
}

func TestGet_InvalidID(t *testing.T) {
	_, router := newRouter(t, id.NewUserID())

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/policies/nope"))

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
}

func TestCancel(t *testing.T) {
	userID := id.NewUserID()
	svc, router := newRouter(t, userID)
	p := ownedPolicy(userID)
	cancelled := ownedPolicy(userID)
	cancelled.ID = p.ID
	cancelled.Status = models.StatusCancelled
	svc.EXPECT().Get(gomock.Any(), p.ID).Return(p, nil)
	svc.EXPECT().Cancel(gomock.Any(), p.ID, "closing business").Return(cancelled, nil)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/policies/"+p.ID.String()+"/cancel",
		map[string]any{"reason": "closing business"}))

	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "status", "cancelled")
}

func TestCancel_WithoutBody(t *testing.T) {
	userID := id.NewUserID()
	svc, router := newRouter(t, userID)
	p := ownedPolicy(userID)
	svc.EXPECT().Get(gomock.Any(), p.ID).Return(p, nil)
	svc.EXPECT().Cancel(gomock.Any(), p.ID, "").Return(nil, dErrors.New(dErrors.CodeBadRequest, "Policy already cancelled"))

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/policies/"+p.ID.String()+"/cancel"))

	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
}
