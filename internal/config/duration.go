package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that yaml-decodes from "250ms" style strings.
// Plain integers are taken as nanoseconds.
type Duration time.Duration

// D returns the wrapped time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!int":
		var ns int64
		if err := value.Decode(&ns); err != nil {
			return err
		}
		*d = Duration(ns)
		return nil
	case "!!str":
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", value.Value, err)
		}
		*d = Duration(parsed)
		return nil
	}
	return fmt.Errorf("cannot decode %s into duration", value.Tag)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
