// Package configs embeds the example configuration written by
// `corpusidx config init`.
package configs

import _ "embed"

// ExampleConfig is the annotated template for .corpusidx.yaml. Every key
// shows its default.
//
//go:embed corpusidx.example.yaml
var ExampleConfig string
