package match

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
	"vetdesk/internal/registration/mocks"
	"vetdesk/internal/registration/models"
	id "vetdesk/pkg/domain"
	dErrors "vetdesk/pkg/domain-errors"
)

type ClassifierSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockDirectory *mocks.MockDirectory
	mockReporter  *mocks.MockReporter
	metrics       *metrics.Metrics
	classifier    *Classifier
}

func TestClassifierSuite(t *testing.T) {
	suite.Run(t, new(ClassifierSuite))
}

func (s *ClassifierSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockDirectory = mocks.NewMockDirectory(s.ctrl)
	s.mockReporter = mocks.NewMockReporter(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	var err error
	s.classifier, err = New(s.mockDirectory, WithReporter(s.mockReporter), WithMetrics(s.metrics))
	s.Require().NoError(err)
}

func (s *ClassifierSuite) TearDownTest() {
	s.ctrl.Finish()
}

func row(name string) models.Candidate {
	return models.Candidate{
		AnimalID:       id.AnimalID(uuid.New()),
		OwnerID:        id.OwnerID(uuid.New()),
		AnimalKindID:   id.AnimalKindID(uuid.New()),
		AnimalName:     name,
		SpeciesName:    "Labrador",
		BirthDate:      "2019-04-01",
		IdentityNumber: "TAG-" + name,
	}
}

func (s *ClassifierSuite) TestRules() {
	ctx := context.Background()
	rex, bella := row("Rex"), row("Bella")
	animalOnly := row("Stray")
	animalOnly.OwnerID = id.OwnerID{}

	tests := []struct {
		name   string
		result models.SearchResult
		want   models.OutcomeKind
	}{
		{"no rows and no animal", models.SearchResult{}, models.NoMatch},
		{"one owner row", models.SearchResult{OwnerRows: []models.Candidate{rex}}, models.SingleOwnerMatch},
		{"animal payload only", models.SearchResult{Animal: &animalOnly}, models.AnimalOnlyMatch},
		{"two owner rows", models.SearchResult{OwnerRows: []models.Candidate{rex, bella}}, models.MultipleOwnersMatch},
		{"two owner rows beside an animal payload", models.SearchResult{OwnerRows: []models.Candidate{rex, bella}, Animal: &animalOnly}, models.MultipleOwnersMatch},
		{"one owner row beside an animal payload", models.SearchResult{OwnerRows: []models.Candidate{rex}, Animal: &animalOnly}, models.SingleOwnerMatch},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "99999").Return(tt.result, nil)
			outcome := s.classifier.Classify(ctx, "99999", models.ModeByAnimalIdentity)
			s.Equal(tt.want, outcome.Kind())
		})
	}
}

func (s *ClassifierSuite) TestMultipleOwnersSelectsFirstRow() {
	rex, bella := row("Rex"), row("Bella")
	s.mockDirectory.EXPECT().SearchByOwnerIdentity(gomock.Any(), "12345678901").
		Return(models.SearchResult{OwnerRows: []models.Candidate{rex, bella}}, nil)

	outcome := s.classifier.Classify(context.Background(), "12345678901", models.ModeByOwnerIdentity)

	selected, ok := outcome.Selected()
	s.Require().True(ok)
	s.Equal(rex, selected)
	s.Len(outcome.Candidates(), 2)
}

func (s *ClassifierSuite) TestSingleOwnerFilledFromAnimalPayload() {
	owner := models.Candidate{OwnerID: id.OwnerID(uuid.New())}
	animal := row("Rex")
	animal.OwnerID = id.OwnerID{}
	s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "99999").
		Return(models.SearchResult{OwnerRows: []models.Candidate{owner}, Animal: &animal}, nil)

	outcome := s.classifier.Classify(context.Background(), "99999", models.ModeByAnimalIdentity)

	selected, _ := outcome.Selected()
	s.Equal(owner.OwnerID, selected.OwnerID)
	s.Equal(animal.AnimalID, selected.AnimalID)
	s.Equal("Rex", selected.AnimalName)
}

func (s *ClassifierSuite) TestIdempotentForUnchangedDirectory() {
	result := models.SearchResult{OwnerRows: []models.Candidate{row("Rex")}}
	s.mockDirectory.EXPECT().SearchByOwnerIdentity(gomock.Any(), "12345678901").Return(result, nil).Times(2)

	first := s.classifier.Classify(context.Background(), "12345678901", models.ModeByOwnerIdentity)
	second := s.classifier.Classify(context.Background(), "12345678901", models.ModeByOwnerIdentity)

	s.True(first.Equal(second))
}

func (s *ClassifierSuite) TestTransportFailureFailsOpen() {
	s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "99999").
		Return(models.SearchResult{}, dErrors.Wrap(errors.New("connection refused"), dErrors.CodeTransport, "search failed"))
	s.mockReporter.EXPECT().ReportDegraded(gomock.Any(), "classify", gomock.Any(), "mode", models.ModeByAnimalIdentity)

	outcome := s.classifier.Classify(context.Background(), "99999", models.ModeByAnimalIdentity)

	s.Equal(models.NoMatch, outcome.Kind())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SearchFailures.WithLabelValues("animal")))
}

func (s *ClassifierSuite) TestCancelledSearchIsNotReported() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "99999").Return(models.SearchResult{}, context.Canceled)

	outcome := s.classifier.Classify(ctx, "99999", models.ModeByAnimalIdentity)

	s.Equal(models.NoMatch, outcome.Kind())
}

func (s *ClassifierSuite) TestLookupReturnsTransportError() {
	s.mockDirectory.EXPECT().SearchByAnimalIdentity(gomock.Any(), "99999").Return(models.SearchResult{}, errors.New("boom"))

	_, err := s.classifier.Lookup(context.Background(), "99999", models.ModeByAnimalIdentity)

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTransport))
}

func (s *ClassifierSuite) TestBlankFragmentSkipsDirectory() {
	outcome := s.classifier.Classify(context.Background(), "   ", models.ModeByAnimalIdentity)
	s.Equal(models.NoMatch, outcome.Kind())
}

func (s *ClassifierSuite) TestUnknownMode() {
	_, err := s.classifier.Lookup(context.Background(), "42", models.Mode("tattoo"))
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestNew_RequiresDirectory(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for nil directory")
	}
}
