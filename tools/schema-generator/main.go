// Command schema-generator reflects config.Config into the JSON Schema
// embedded by package schema. With --check it only reports drift, which
// CI uses to catch a stale schema.
package main

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/grovetools/notify/config"
	"github.com/grovetools/notify/logging"
)

func main() {
	log := logging.NewLogger("schema-generator")

	output := pflag.StringP("output", "o", filepath.Join("..", "schema", "notify.embedded.schema.json"), "Schema file to write")
	check := pflag.Bool("check", false, "Exit non-zero if the schema file is out of date instead of writing it")
	pflag.Parse()

	generated, err := config.GenerateSchema()
	if err != nil {
		log.WithError(err).Fatal("Error generating schema")
	}
	generated = append(generated, '\n')

	if *check {
		current, err := os.ReadFile(*output)
		if err != nil {
			log.WithError(err).Fatal("Error reading schema file")
		}
		if !bytes.Equal(current, generated) {
			log.WithField("path", *output).Fatal("Schema is out of date, run go generate ./config")
		}
		log.WithField("path", *output).Info("Schema is up to date")
		return
	}

	if err := os.WriteFile(*output, generated, 0644); err != nil {
		log.WithError(err).Fatal("Error writing schema file")
	}
	log.WithField("path", *output).Info("Generated schema")
}
