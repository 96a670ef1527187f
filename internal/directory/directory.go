package directory

import (
	"context"
	"net/http"
	"net/url"

	"vetdesk/internal/registration/models"
	"vetdesk/internal/registration/ports"
	id "vetdesk/pkg/domain"
	dErrors "vetdesk/pkg/domain-errors"
)

var _ ports.Directory = (*Client)(nil)

// SearchByOwnerIdentity lists the animals of owners with the given
// government identity number.
func (c *Client) SearchByOwnerIdentity(ctx context.Context, identityNumber string) (models.SearchResult, error) {
	return c.search(ctx, "search_owner", "/owners/search", identityNumber)
}

// SearchByAnimalIdentity looks an animal up by its identity number (chip or tag).
func (c *Client) SearchByAnimalIdentity(ctx context.Context, identityNumber string) (models.SearchResult, error) {
	return c.search(ctx, "search_animal", "/animals/search", identityNumber)
}

// search treats 404 as an empty result.
func (c *Client) search(ctx context.Context, operation, path, identityNumber string) (models.SearchResult, error) {
	var resp SearchResponse
	err := c.do(ctx, operation, http.MethodGet, path+"?identity="+url.QueryEscape(identityNumber), nil, &resp)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return models.SearchResult{OwnerRows: []models.Candidate{}}, nil
	}
	if err != nil {
		return models.SearchResult{}, err
	}
	return resp.ToModel()
}

func (c *Client) ListAnimalKinds(ctx context.Context) ([]models.AnimalKind, error) {
	var resp []AnimalKindDTO
	if err := c.do(ctx, "list_animal_kinds", http.MethodGet, "/animal-kinds", nil, &resp); err != nil {
		return nil, err
	}
	kinds := make([]models.AnimalKind, 0, len(resp))
	for _, dto := range resp {
		kind, err := dto.ToModel()
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func (c *Client) ListSpecies(ctx context.Context, animalKindID id.AnimalKindID) ([]models.Species, error) {
	var resp []SpeciesDTO
	path := "/animal-kinds/" + url.PathEscape(animalKindID.String()) + "/species"
	if err := c.do(ctx, "list_species", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	list := make([]models.Species, 0, len(resp))
	for _, dto := range resp {
		s, err := dto.ToModel()
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

// CreateOrAttachAnimal creates the animal, or links the existing one to the
// owner when req.ExistingAnimalID is set. It returns the animal's id.
func (c *Client) CreateOrAttachAnimal(ctx context.Context, req models.AttachRequest) (id.AnimalID, error) {
	body := CreateAnimalRequest{
		Form:             FromForm(req.Form),
		OwnerID:          req.OwnerID.Wire(),
		ExistingAnimalID: req.ExistingAnimalID.Wire(),
	}
	var resp CreateAnimalResponse
	if err := c.do(ctx, "create_or_attach_animal", http.MethodPost, "/animals", body, &resp); err != nil {
		return id.AnimalID{}, err
	}
	animalID, err := id.ParseAnimalID(resp.ID)
	if err != nil {
		return id.AnimalID{}, badData(err, "animal id")
	}
	return animalID, nil
}
