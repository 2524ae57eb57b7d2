package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"stylo/pkg/client"
)

var ErrUpstream = errors.New("identity registry unavailable")

// Person is the registry record used to prefill the client form.
type Person struct {
	Found           bool   `json:"found"`
	DNI             string `json:"dni"`
	FirstName       string `json:"first_name,omitempty"`
	LastNamePaterno string `json:"last_name_paterno,omitempty"`
	LastNameMaterno string `json:"last_name_materno,omitempty"`
	BirthDate       string `json:"birth_date,omitempty"`
	Gender          string `json:"gender,omitempty"`
}

type Registry interface {
	Lookup(ctx context.Context, dni string) (*Person, error)
}

type registryPayload struct {
	Data *struct {
		FirstNames string `json:"preNombres"`
		Paterno    string `json:"apePaterno"`
		Materno    string `json:"apeMaterno"`
		BirthDate  string `json:"feNacimiento"`
		Sex        string `json:"sexo"`
	} `json:"data"`
}

type httpRegistry struct {
	client *client.HttpClient
}

// NewHTTPRegistry queries a DNI registry API that answers
// GET ?dni=<number> with a {"data": {...}} document.
func NewHTTPRegistry(httpClient *client.HttpClient) Registry {
	return &httpRegistry{client: httpClient}
}

func (r *httpRegistry) Lookup(ctx context.Context, dni string) (*Person, error) {
	resp, err := r.client.GET(ctx, "?dni="+url.QueryEscape(dni))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return &Person{DNI: dni}, nil
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %s", ErrUpstream, client.ErrorMessage(resp))
	}

	var payload registryPayload
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if payload.Data == nil || payload.Data.FirstNames == "" {
		return &Person{DNI: dni}, nil
	}

	person := &Person{
		Found:           true,
		DNI:             dni,
		FirstName:       strings.TrimSpace(payload.Data.FirstNames),
		LastNamePaterno: strings.TrimSpace(payload.Data.Paterno),
		LastNameMaterno: strings.TrimSpace(payload.Data.Materno),
		BirthDate:       payload.Data.BirthDate,
		Gender:          "M",
	}
	if strings.EqualFold(payload.Data.Sex, "f") {
		person.Gender = "F"
	}
	return person, nil
}
