package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nimbusops/nimbusctl/pkg/reconcile"
)

// Load reads, parses and validates an input file. Unknown fields are
// rejected so typos surface as load errors instead of silently-ignored
// configuration.
func Load(path string) (*InputFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, reconcile.NewValidationError(
			fmt.Sprintf("unable to read input file %s", path), err)
	}
	defer f.Close()

	var input InputFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&input); err != nil {
		return nil, reconcile.NewValidationError(
			fmt.Sprintf("malformed YAML in %s", path), err)
	}

	if err := validator.New().Struct(&input); err != nil {
		return nil, reconcile.NewValidationError(
			fmt.Sprintf("invalid input file %s", path), err)
	}

	input.baseDir = filepath.Dir(path)
	return &input, nil
}
