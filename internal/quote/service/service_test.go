package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"clarence/internal/quote/models"
	"clarence/internal/quote/service/mocks"
	"clarence/internal/quote/store"
	id "clarence/pkg/domain"
	dErrors "clarence/pkg/domain-errors"
	"clarence/pkg/platform/events"
	"clarence/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	store     *store.InMemoryStore
	queue     *mocks.MockQueue
	publisher *events.MemoryPublisher
	service   *Service
	now       time.Time
	ctx       context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = store.NewInMemory()
	s.queue = mocks.NewMockQueue(s.ctrl)
	s.publisher = events.NewMemoryPublisher()
	svc, err := New(s.store, s.queue, WithPublisher(s.publisher))
	s.Require().NoError(err)
	s.service = svc
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func completeCreateRequest(sessionID string) *models.CreateRequest {
	return &models.CreateRequest{
		SessionID:     sessionID,
		InsuranceType: id.InsuranceCommercial,
		RequestType:   models.RequestNewCoverage,
		Business:      &models.BusinessInfo{LegalName: "Harbor Bakery LLC", Industry: "Food Service"},
		Address:       &models.Address{Street: "12 Pier Rd", City: "Portland", State: "ME", Zip: "04101"},
		Contact:       &models.Contact{FirstName: "Ada", LastName: "Quill", Email: "ada@example.com", Phone: "2075550100"},
	}
}

func (s *ServiceSuite) createDraft(req *models.CreateRequest, coverages ...id.CoverageType) *models.QuoteRequest {
	q, err := s.service.Create(s.ctx, req)
	s.Require().NoError(err)
	if len(coverages) > 0 {
		_, err = s.service.SelectCoverages(s.ctx, q.ID, &models.SelectCoveragesRequest{SelectedCoverages: coverages})
		s.Require().NoError(err)
	}
	return q
}

func (s *ServiceSuite) TestCreate_StartsDraft() {
	q := s.createDraft(completeCreateRequest("sess-1"))

	s.Equal(models.StatusDraft, q.Status)
	s.Equal(s.now, q.CreatedAt)
	stored, err := s.store.FindByID(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Equal("Harbor Bakery LLC", stored.Business.LegalName)
}

func (s *ServiceSuite) TestCreate_RejectsInvalidInsuranceType() {
	req := completeCreateRequest("sess-1")
	req.InsuranceType = "marine"

	_, err := s.service.Create(s.ctx, req)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestSubmit_SchedulesProcessing() {
	q := s.createDraft(completeCreateRequest("sess-1"), id.CoverageGeneralLiability)
	s.queue.EXPECT().Enqueue(q.ID).Return(nil)

	out, err := s.service.Submit(s.ctx, q.ID)
	s.Require().NoError(err)

	s.Equal(models.StatusSubmitted, out.Status)
	s.Require().NotNil(out.SubmittedAt)
	s.Equal(s.now, *out.SubmittedAt)
	s.Require().NotNil(out.EstimatedCompletionTime)
	s.Equal(s.now.Add(30*time.Second), *out.EstimatedCompletionTime)

	stored, err := s.store.FindByID(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusSubmitted, stored.Status)

	submitted := s.publisher.OfType(events.QuoteRequestSubmitted)
	s.Require().Len(submitted, 1)
	s.Equal(q.ID.String(), submitted[0].Subject)
	s.Equal("general_liability", submitted[0].Attributes["coverages"])
}

func (s *ServiceSuite) TestSubmit_AlreadySubmittedIsConflict() {
	q := s.createDraft(completeCreateRequest("sess-1"), id.CoverageGeneralLiability)
	s.queue.EXPECT().Enqueue(q.ID).Return(nil)
	_, err := s.service.Submit(s.ctx, q.ID)
	s.Require().NoError(err)

	_, err = s.service.Submit(s.ctx, q.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestSubmit_StatusCheckedBeforeFields() {
	q := s.createDraft(&models.CreateRequest{SessionID: "sess-1", InsuranceType: id.InsuranceCommercial, RequestType: models.RequestNewCoverage})
	q.Status = models.StatusQuotesReady
	s.Require().NoError(s.store.Update(s.ctx, q))

	_, err := s.service.Submit(s.ctx, q.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestSubmit_MissingFieldsListedInOrder() {
	q := s.createDraft(&models.CreateRequest{SessionID: "sess-1", InsuranceType: id.InsuranceCommercial, RequestType: models.RequestNewCoverage},
		id.CoverageGeneralLiability)

	_, err := s.service.Submit(s.ctx, q.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "Missing required fields: legalBusinessName, industry, streetAddress, city, state, zipCode, contactFirstName, contactLastName, contactEmail, contactPhone")

	stored, err := s.store.FindByID(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDraft, stored.Status)
}

func (s *ServiceSuite) TestSubmit_FieldsCheckedBeforeCoverages() {
	req := completeCreateRequest("sess-1")
	req.Contact.Phone = ""
	q := s.createDraft(req)

	_, err := s.service.Submit(s.ctx, q.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "contactPhone")
}

func (s *ServiceSuite) TestSubmit_NoCoveragesSelected() {
	q := s.createDraft(completeCreateRequest("sess-1"))

	_, err := s.service.Submit(s.ctx, q.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.Contains(err.Error(), "No coverages selected")
}

func (s *ServiceSuite) TestSubmit_UnknownRequest() {
	_, err := s.service.Submit(s.ctx, id.NewQuoteRequestID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestSubmit_EnqueueFailureRevertsToDraft() {
	q := s.createDraft(completeCreateRequest("sess-1"), id.CoverageGeneralLiability)
	s.queue.EXPECT().Enqueue(q.ID).Return(ErrDispatcherClosed)

	_, err := s.service.Submit(s.ctx, q.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	stored, err := s.store.FindByID(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDraft, stored.Status)
	s.Nil(stored.SubmittedAt)
	s.Empty(s.publisher.OfType(events.QuoteRequestSubmitted))
}

func (s *ServiceSuite) TestUpdate_OnlyWhileDraft() {
	q := s.createDraft(completeCreateRequest("sess-1"), id.CoverageGeneralLiability)
	updated, err := s.service.Update(s.ctx, q.ID, &models.UpdateRequest{
		Business: &models.BusinessInfo{LegalName: "Harbor Bakery Inc", Industry: "Food Service"},
	})
	s.Require().NoError(err)
	s.Equal("Harbor Bakery Inc", updated.Business.LegalName)

	s.queue.EXPECT().Enqueue(q.ID).Return(nil)
	_, err = s.service.Submit(s.ctx, q.ID)
	s.Require().NoError(err)

	_, err = s.service.Update(s.ctx, q.ID, &models.UpdateRequest{Contact: &models.Contact{FirstName: "Bo"}})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestSelectCoverages_ReplacesSet() {
	q := s.createDraft(completeCreateRequest("sess-1"), id.CoverageGeneralLiability, id.CoverageCyberLiability)

	got, err := s.service.SelectCoverages(s.ctx, q.ID, &models.SelectCoveragesRequest{
		SelectedCoverages: []id.CoverageType{" Workers_Comp ", "workers_comp"},
	})
	s.Require().NoError(err)
	s.Len(got, 1)

	stored, err := s.store.ListCoverages(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Equal([]id.CoverageType{id.CoverageWorkersComp}, models.SelectedTypes(stored))
}

func (s *ServiceSuite) TestSelectCoverages_UnknownRequest() {
	_, err := s.service.SelectCoverages(s.ctx, id.NewQuoteRequestID(), &models.SelectCoveragesRequest{
		SelectedCoverages: []id.CoverageType{id.CoverageGeneralLiability},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestGet_IncludesCoveragesAndEmptyQuotes() {
	q := s.createDraft(completeCreateRequest("sess-1"), id.CoverageGeneralLiability)

	detail, err := s.service.Get(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Equal(q.ID, detail.QuoteRequest.ID)
	s.Len(detail.Coverages, 1)
	s.NotNil(detail.Quotes)
	s.Empty(detail.Quotes)
}

func (s *ServiceSuite) TestGetBySession_ReturnsLatest() {
	s.createDraft(completeCreateRequest("sess-1"))
	later := s.now.Add(time.Minute)
	q2, err := s.service.Create(requestcontext.WithTime(context.Background(), later), completeCreateRequest("sess-1"))
	s.Require().NoError(err)

	got, err := s.service.GetBySession(s.ctx, "sess-1")
	s.Require().NoError(err)
	s.Equal(q2.ID, got.ID)

	_, err = s.service.GetBySession(s.ctx, "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestMarkPurchased() {
	q := s.createDraft(completeCreateRequest("sess-1"))
	err := s.service.MarkPurchased(s.ctx, q.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	q.Status = models.StatusQuotesReady
	s.Require().NoError(s.store.Update(s.ctx, q))
	s.Require().NoError(s.service.MarkPurchased(s.ctx, q.ID))
	s.Require().NoError(s.service.MarkPurchased(s.ctx, q.ID))

	stored, err := s.store.FindByID(s.ctx, q.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPurchased, stored.Status)
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)
}
