package attach

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"vetdesk/internal/platform/metrics"
	"vetdesk/internal/registration/match"
	"vetdesk/internal/registration/mocks"
	"vetdesk/internal/registration/models"
	"vetdesk/internal/registration/ports"
	id "vetdesk/pkg/domain"
	dErrors "vetdesk/pkg/domain-errors"
)

type ProtocolSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockDirectory *mocks.MockDirectory
	mockReporter  *mocks.MockReporter
	mockConfirmer *mocks.MockConfirmer
	metrics       *metrics.Metrics
	protocol      *Protocol

	owner id.OwnerID
}

func TestProtocolSuite(t *testing.T) {
	suite.Run(t, new(ProtocolSuite))
}

func (s *ProtocolSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockDirectory = mocks.NewMockDirectory(s.ctrl)
	s.mockReporter = mocks.NewMockReporter(s.ctrl)
	s.mockConfirmer = mocks.NewMockConfirmer(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())

	classifier, err := match.New(s.mockDirectory)
	s.Require().NoError(err)
	s.protocol, err = New(s.mockDirectory, classifier, WithReporter(s.mockReporter), WithMetrics(s.metrics))
	s.Require().NoError(err)
	s.owner = id.OwnerID(uuid.New())
}

func (s *ProtocolSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ProtocolSuite) draft(identity string) Request {
	return Request{
		Fragment: identity,
		Form: models.FormRecord{
			OwnerID:        s.owner,
			AnimalKindID:   id.AnimalKindID(uuid.New()),
			SpeciesID:      id.SpeciesID(uuid.New()),
			Name:           "Rex",
			IdentityNumber: identity,
		},
	}
}

func ownedBy(owner id.OwnerID) models.Candidate {
	return models.Candidate{
		AnimalID:       id.AnimalID(uuid.New()),
		OwnerID:        owner,
		AnimalName:     "Rex",
		IdentityNumber: "99999",
	}
}

func (s *ProtocolSuite) submissions(result string) float64 {
	return testutil.ToFloat64(s.metrics.Submissions.WithLabelValues(result))
}

func (s *ProtocolSuite) TestValidationBeforeNetwork() {
	tests := []struct {
		name  string
		edit  func(*Request)
		field models.Field
	}{
		{"missing owner", func(r *Request) { r.Form.OwnerID = id.OwnerID{} }, models.FieldOwner},
		{"missing identity in manual mode", func(r *Request) { r.Fragment = "  " }, models.FieldIdentityNumber},
		{"missing kind", func(r *Request) { r.Form.AnimalKindID = id.AnimalKindID{} }, models.FieldAnimalKind},
		{"missing species", func(r *Request) { r.Form.SpeciesID = id.SpeciesID{} }, models.FieldSpecies},
		{"blank name", func(r *Request) { r.Form.Name = " " }, models.FieldName},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := s.draft("99999")
			tt.edit(&req)

			_, err := s.protocol.Save(context.Background(), req, s.mockConfirmer)

			s.Require().Error(err)
			de, ok := dErrors.As(err)
			s.Require().True(ok)
			s.Equal(dErrors.CodeValidation, de.Code)
			s.Equal(string(tt.field), de.Field)
		})
	}
}

func (s *ProtocolSuite) TestNewAnimal() {
	req := s.draft("12345")
	created := id.AnimalID(uuid.New())
	gomock.InOrder(
		s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "12345").Return(models.SearchResult{}, nil),
		s.mockDirectory.EXPECT().CreateOrAttachAnimal(gomock.Any(), models.AttachRequest{Form: req.Form, OwnerID: s.owner}).Return(created, nil),
	)

	saved, err := s.protocol.Save(context.Background(), req, s.mockConfirmer)

	s.Require().NoError(err)
	s.Equal(created, saved.AnimalID)
	s.False(saved.Attached)
	s.Equal(1.0, s.submissions(ResultCreated))
}

func (s *ProtocolSuite) TestAutomaticIdentitySkipsRecheck() {
	req := s.draft("")
	req.Automatic = true
	created := id.AnimalID(uuid.New())
	s.mockDirectory.EXPECT().CreateOrAttachAnimal(gomock.Any(), gomock.Any()).Return(created, nil)

	saved, err := s.protocol.Save(context.Background(), req, nil)

	s.Require().NoError(err)
	s.Equal(created, saved.AnimalID)
}

func (s *ProtocolSuite) TestAnimalOnlyAttachesResolvedAnimal() {
	stray := ownedBy(id.OwnerID{})
	req := s.draft("99999")
	s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "99999").
		Return(models.SearchResult{Animal: &stray}, nil)
	s.mockDirectory.EXPECT().CreateOrAttachAnimal(gomock.Any(), models.AttachRequest{
		Form: req.Form, OwnerID: s.owner, ExistingAnimalID: stray.AnimalID,
	}).Return(stray.AnimalID, nil)

	saved, err := s.protocol.Save(context.Background(), req, s.mockConfirmer)

	s.Require().NoError(err)
	s.True(saved.Attached)
	s.Equal(stray.AnimalID, saved.AnimalID)
}

func (s *ProtocolSuite) TestAlreadyOwnedNeverWrites() {
	mine := ownedBy(s.owner)
	s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "99999").
		Return(models.SearchResult{OwnerRows: []models.Candidate{ownedBy(id.OwnerID(uuid.New())), mine}}, nil)
	s.mockDirectory.EXPECT().CreateOrAttachAnimal(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.protocol.Save(context.Background(), s.draft("99999"), s.mockConfirmer)

	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyOwned))
	s.Equal(1.0, s.submissions(ResultAlreadyOwned))
}

func (s *ProtocolSuite) TestForeignOwnerDeclined() {
	other := ownedBy(id.OwnerID(uuid.New()))
	s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "99999").
		Return(models.SearchResult{OwnerRows: []models.Candidate{other}}, nil)
	s.mockConfirmer.EXPECT().ConfirmAttach(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, prompt models.AttachPrompt) (bool, error) {
			s.Equal(other.AnimalID, prompt.AnimalID)
			s.Equal([]id.OwnerID{other.OwnerID}, prompt.OtherOwners)
			return false, nil
		})
	s.mockDirectory.EXPECT().CreateOrAttachAnimal(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.protocol.Save(context.Background(), s.draft("99999"), s.mockConfirmer)

	s.True(dErrors.HasCode(err, dErrors.CodeForeignOwner))
	s.Equal(1.0, s.submissions(ResultDeclined))
}

func (s *ProtocolSuite) TestForeignOwnerWithoutConfirmerIsDeclined() {
	other := ownedBy(id.OwnerID(uuid.New()))
	s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "99999").
		Return(models.SearchResult{OwnerRows: []models.Candidate{other}}, nil)

	_, err := s.protocol.Save(context.Background(), s.draft("99999"), nil)

	s.True(dErrors.HasCode(err, dErrors.CodeForeignOwner))
}

func (s *ProtocolSuite) TestForeignOwnerAccepted() {
	first, second := ownedBy(id.OwnerID(uuid.New())), ownedBy(id.OwnerID(uuid.New()))
	req := s.draft("99999")
	req.Candidate = &second
	s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "99999").
		Return(models.SearchResult{OwnerRows: []models.Candidate{first, second}}, nil)
	s.mockConfirmer.EXPECT().ConfirmAttach(gomock.Any(), gomock.Any()).Return(true, nil)
	s.mockDirectory.EXPECT().CreateOrAttachAnimal(gomock.Any(), models.AttachRequest{
		Form: req.Form, OwnerID: s.owner, ExistingAnimalID: second.AnimalID,
	}).Return(second.AnimalID, nil)

	saved, err := s.protocol.Save(context.Background(), req, ports.ConfirmFunc(s.mockConfirmer.ConfirmAttach))

	s.Require().NoError(err)
	s.True(saved.Attached)
	s.Equal(1.0, s.submissions(ResultAttached))
}

func (s *ProtocolSuite) TestRecheckFailureFallsBackToActiveCandidate() {
	active := ownedBy(id.OwnerID{})
	req := s.draft("99999")
	req.Candidate = &active
	s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "99999").
		Return(models.SearchResult{}, errors.New("connection reset"))
	s.mockReporter.EXPECT().ReportDegraded(gomock.Any(), "attach_recheck", gomock.Any(), "identity_number", "99999")
	s.mockDirectory.EXPECT().CreateOrAttachAnimal(gomock.Any(), models.AttachRequest{
		Form: req.Form, OwnerID: s.owner, ExistingAnimalID: active.AnimalID,
	}).Return(active.AnimalID, nil)

	saved, err := s.protocol.Save(context.Background(), req, s.mockConfirmer)

	s.Require().NoError(err)
	s.Equal(active.AnimalID, saved.AnimalID)
}

func (s *ProtocolSuite) TestRecheckFailureWithoutCandidateCreates() {
	req := s.draft("99999")
	s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "99999").
		Return(models.SearchResult{}, errors.New("connection reset"))
	s.mockReporter.EXPECT().ReportDegraded(gomock.Any(), "attach_recheck", gomock.Any(), gomock.Any(), gomock.Any())
	s.mockDirectory.EXPECT().CreateOrAttachAnimal(gomock.Any(), models.AttachRequest{Form: req.Form, OwnerID: s.owner}).
		Return(id.AnimalID(uuid.New()), nil)

	saved, err := s.protocol.Save(context.Background(), req, s.mockConfirmer)

	s.Require().NoError(err)
	s.False(saved.Attached)
}

// unnumbered is a patient-surface draft: the fragment is the owner's identity
// and the locked animal has no identity number of its own.
func (s *ProtocolSuite) unnumbered(c models.Candidate) Request {
	req := s.draft("")
	req.Fragment = "12345678901"
	c.IdentityNumber = ""
	req.Candidate = &c
	return req
}

func (s *ProtocolSuite) TestUnnumberedCandidateOfRequesterIsAlreadyOwned() {
	req := s.unnumbered(ownedBy(s.owner))
	s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), gomock.Any()).Times(0)
	s.mockDirectory.EXPECT().CreateOrAttachAnimal(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.protocol.Save(context.Background(), req, s.mockConfirmer)

	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyOwned))
	s.Equal(1.0, s.submissions(ResultAlreadyOwned))
}

func (s *ProtocolSuite) TestUnnumberedCandidateOfOtherOwnerNeedsConfirmation() {
	other := ownedBy(id.OwnerID(uuid.New()))
	req := s.unnumbered(other)

	s.Run("declined", func() {
		s.mockConfirmer.EXPECT().ConfirmAttach(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, prompt models.AttachPrompt) (bool, error) {
				s.Equal(other.AnimalID, prompt.AnimalID)
				s.Equal([]id.OwnerID{other.OwnerID}, prompt.OtherOwners)
				return false, nil
			})

		_, err := s.protocol.Save(context.Background(), req, s.mockConfirmer)

		s.True(dErrors.HasCode(err, dErrors.CodeForeignOwner))
	})

	s.Run("accepted", func() {
		s.mockConfirmer.EXPECT().ConfirmAttach(gomock.Any(), gomock.Any()).Return(true, nil)
		s.mockDirectory.EXPECT().CreateOrAttachAnimal(gomock.Any(), models.AttachRequest{
			Form: req.Form, OwnerID: s.owner, ExistingAnimalID: other.AnimalID,
		}).Return(other.AnimalID, nil)

		saved, err := s.protocol.Save(context.Background(), req, s.mockConfirmer)

		s.Require().NoError(err)
		s.True(saved.Attached)
	})
}

func (s *ProtocolSuite) TestWriteFailureIsTransportError() {
	s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "12345").Return(models.SearchResult{}, nil)
	s.mockDirectory.EXPECT().CreateOrAttachAnimal(gomock.Any(), gomock.Any()).
		Return(id.AnimalID{}, errors.New("502 bad gateway"))

	_, err := s.protocol.Save(context.Background(), s.draft("12345"), s.mockConfirmer)

	s.True(dErrors.HasCode(err, dErrors.CodeTransport))
	s.Equal(1.0, s.submissions(ResultFailed))
}

func (s *ProtocolSuite) TestWriteConflictPassesThrough() {
	s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "12345").Return(models.SearchResult{}, nil)
	s.mockDirectory.EXPECT().CreateOrAttachAnimal(gomock.Any(), gomock.Any()).
		Return(id.AnimalID{}, dErrors.New(dErrors.CodeConflict, "animal changed"))

	_, err := s.protocol.Save(context.Background(), s.draft("12345"), s.mockConfirmer)

	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestNew_RequiresCollaborators(t *testing.T) {
	ctrl := gomock.NewController(t)
	directory := mocks.NewMockDirectory(ctrl)
	classifier, _ := match.New(directory)

	if _, err := New(nil, classifier); err == nil {
		t.Fatal("expected error for nil directory")
	}
	if _, err := New(directory, nil); err == nil {
		t.Fatal("expected error for nil lookup")
	}
}
