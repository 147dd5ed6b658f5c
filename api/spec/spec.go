// Package spec embebe el contrato OpenAPI para servirlo desde la API.
package spec

import _ "embed"

//go:embed openapi.yaml
var OpenAPI []byte
