package directory_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"vetdesk/internal/directory"
	"vetdesk/internal/directory/directorytest"
	jwttoken "vetdesk/internal/jwt_token"
	"vetdesk/internal/platform/metrics"
	"vetdesk/internal/registration/models"
	id "vetdesk/pkg/domain"
	dErrors "vetdesk/pkg/domain-errors"
	"vetdesk/pkg/platform/circuit"
	"vetdesk/pkg/platform/sentinel"
	"vetdesk/pkg/requestcontext"
)

const signingKey = "directory-test-signing-key"

type ClientSuite struct {
	suite.Suite
	fake    *directorytest.Server
	server  *httptest.Server
	metrics *metrics.Metrics
	client  *directory.Client

	dog      models.AnimalKind
	labrador models.Species
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	tokens := jwttoken.NewJWTService(signingKey, "vetdesk", directory.Audience)
	s.fake = directorytest.New(directorytest.WithTokens(tokens))
	s.server = httptest.NewServer(s.fake.Router())
	s.metrics = metrics.New(prometheus.NewRegistry())

	var err error
	s.client, err = directory.New(s.server.URL,
		directory.WithTokens(tokens),
		directory.WithMetrics(s.metrics),
		directory.WithBreaker(circuit.New("directory", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))),
	)
	s.Require().NoError(err)

	s.dog = s.fake.AddKind("Dog")
	s.labrador = s.fake.AddSpecies(s.dog.ID, "Labrador")
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) rex() models.Candidate {
	return models.Candidate{
		AnimalKindID:   s.dog.ID,
		SpeciesID:      s.labrador.ID,
		SpeciesName:    "Labrador",
		AnimalName:     "Rex",
		BirthDate:      "2019-04-01",
		IdentityNumber: "982000123456789",
	}
}

func (s *ClientSuite) TestSearchByOwnerIdentity() {
	owner := s.fake.AddOwner("12345678901")
	animalID := s.fake.AddAnimal(s.rex(), owner)

	result, err := s.client.SearchByOwnerIdentity(context.Background(), "12345678901")

	s.Require().NoError(err)
	s.Require().Len(result.OwnerRows, 1)
	row := result.OwnerRows[0]
	s.Equal(owner, row.OwnerID)
	s.Equal(animalID, row.AnimalID)
	s.Equal("Rex", row.AnimalName)
	s.Equal(s.dog.ID, row.AnimalKindID)
	s.Nil(result.Animal)
}

func (s *ClientSuite) TestUnknownOwnerIsEmptyResult() {
	result, err := s.client.SearchByOwnerIdentity(context.Background(), "00000000000")

	s.Require().NoError(err)
	s.Empty(result.OwnerRows)
	s.Nil(result.Animal)
}

func (s *ClientSuite) TestSearchByAnimalIdentity() {
	stray := s.rex()
	stray.IdentityNumber = "99999"
	strayID := s.fake.AddAnimal(stray)
	a, b := s.fake.AddOwner("1"), s.fake.AddOwner("2")
	s.fake.AddAnimal(s.rex(), a, b)

	s.Run("animal without owners", func() {
		result, err := s.client.SearchByAnimalIdentity(context.Background(), "99999")
		s.Require().NoError(err)
		s.Empty(result.OwnerRows)
		s.Require().NotNil(result.Animal)
		s.Equal(strayID, result.Animal.AnimalID)
		s.True(result.Animal.OwnerID.IsNil())
	})

	s.Run("animal with two owners", func() {
		result, err := s.client.SearchByAnimalIdentity(context.Background(), "982000123456789")
		s.Require().NoError(err)
		s.Len(result.OwnerRows, 2)
	})
}

func (s *ClientSuite) TestCatalogue() {
	kinds, err := s.client.ListAnimalKinds(context.Background())
	s.Require().NoError(err)
	s.Equal([]models.AnimalKind{s.dog}, kinds)

	list, err := s.client.ListSpecies(context.Background(), s.dog.ID)
	s.Require().NoError(err)
	s.Equal([]models.Species{s.labrador}, list)
}

func (s *ClientSuite) TestCreateAndAttach() {
	owner := s.fake.AddOwner("12345678901")
	form := models.FormRecord{
		OwnerID:        owner,
		AnimalKindID:   s.dog.ID,
		SpeciesID:      s.labrador.ID,
		Name:           "Bella",
		IdentityNumber: "555",
	}

	created, err := s.client.CreateOrAttachAnimal(context.Background(), models.AttachRequest{Form: form, OwnerID: owner})
	s.Require().NoError(err)
	s.Equal([]id.OwnerID{owner}, s.fake.Owners(created))

	other := s.fake.AddOwner("98765432109")
	attached, err := s.client.CreateOrAttachAnimal(context.Background(), models.AttachRequest{
		Form: form, OwnerID: other, ExistingAnimalID: created,
	})
	s.Require().NoError(err)
	s.Equal(created, attached)
	s.Equal([]id.OwnerID{owner, other}, s.fake.Owners(created))

	_, err = s.client.CreateOrAttachAnimal(context.Background(), models.AttachRequest{
		Form: form, OwnerID: other, ExistingAnimalID: created,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *ClientSuite) TestRejectedWriteIsValidationError() {
	_, err := s.client.CreateOrAttachAnimal(context.Background(), models.AttachRequest{
		Form:    models.FormRecord{Name: "Bella"},
		OwnerID: s.fake.AddOwner("1"),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ClientSuite) TestRequestIDForwarded() {
	ctx := requestcontext.WithRequestID(context.Background(), "req-42")
	_, err := s.client.ListAnimalKinds(ctx)
	s.Require().NoError(err)
	s.Equal([]string{"req-42"}, s.fake.RequestIDs())
}

func (s *ClientSuite) TestServerErrorIsTransportAndOpensBreaker() {
	s.fake.FailNext(http.StatusInternalServerError, http.StatusBadGateway)

	_, err := s.client.ListAnimalKinds(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeTransport))
	var apiErr *directory.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusInternalServerError, apiErr.StatusCode)

	_, err = s.client.ListAnimalKinds(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeTransport))
	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.BreakerTransitions.WithLabelValues("opened")))

	before := s.fake.Requests("GET /animal-kinds")
	_, err = s.client.ListAnimalKinds(context.Background())
	s.ErrorIs(err, sentinel.ErrUnavailable)
	s.Equal(before, s.fake.Requests("GET /animal-kinds"), "open circuit fails fast")
}

func (s *ClientSuite) TestLatencyObserved() {
	_, err := s.client.ListAnimalKinds(context.Background())
	s.Require().NoError(err)
	s.Equal(1, promtestutil.CollectAndCount(s.metrics.DirectoryLatency))
}

func TestClient_RejectedToken(t *testing.T) {
	fake := directorytest.New(directorytest.WithTokens(jwttoken.NewJWTService(signingKey, "vetdesk", directory.Audience)))
	server := httptest.NewServer(fake.Router())
	defer server.Close()

	client, err := directory.New(server.URL,
		directory.WithTokens(jwttoken.NewJWTService("some-other-signing-key", "vetdesk", directory.Audience)),
	)
	require.NoError(t, err)

	_, err = client.ListAnimalKinds(context.Background())
	var apiErr *directory.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTransport))
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := directory.New(url)
	require.NoError(t, err)

	_, err = client.SearchByAnimalIdentity(context.Background(), "1")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTransport))
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := directory.New("")
	assert.Error(t, err)
}
