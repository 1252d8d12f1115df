package httpapi

import (
	"bytes"
	_ "embed"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
)

//go:embed openapi.yaml
var openapiDoc []byte

// schemaValidator is a second, independent layer of request-body
// validation alongside go-playground/validator: an embedded OpenAPI 3
// document checked with kin-openapi/openapi3filter (SPEC_FULL.md §10
// — the teacher declares kin-openapi but never imports it).
type schemaValidator struct {
	doc *openapi3.T
}

func newSchemaValidator() (*schemaValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiDoc)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, err
	}
	return &schemaValidator{doc: doc}, nil
}

// validateProcessBody checks body against /v1/payments/process's
// request schema. It consumes and restores r.Body so the caller can
// still decode it afterward.
func (v *schemaValidator) validateProcessBody(r *http.Request) error {
	path := v.doc.Paths.Find("/v1/payments/process")
	if path == nil || path.Post == nil || path.Post.RequestBody == nil {
		return nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	clone := r.Clone(r.Context())
	clone.Body = io.NopCloser(bytes.NewReader(body))

	input := &openapi3filter.RequestValidationInput{
		Request: clone,
		Options: &openapi3filter.Options{
			ExcludeRequestBody: false,
		},
	}
	return openapi3filter.ValidateRequestBody(r.Context(), input, path.Post.RequestBody)
}
