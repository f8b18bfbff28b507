// Package runtime plays narrated scripts.
//
// A Script is a YAML description of a story: an optional act and scene
// framing a tree of beats and asides. The Player walks the tree through a
// narration.Narrator, so every registered adapter sees the same invocations
// a hand-written program would produce. RunOrchestrator wraps a single play
// with adapters, metrics, report publishing and outcome determination.
package runtime

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/narrator/adapter"
)

// ErrEmptyScript is returned for a script without steps.
var ErrEmptyScript = errors.New("script has no steps")

// Script is a narrated story.
type Script struct {
	// Name identifies the run in reports. Defaults to the act title.
	Name string `yaml:"name"`
	// Act, when set, frames the whole script in an act.
	Act string `yaml:"act"`
	// Scene, when set, frames the steps in a scene (inside the act).
	Scene string `yaml:"scene"`
	// Gravitas applies to the act and the scene.
	Gravitas adapter.Gravitas `yaml:"gravitas"`
	Steps    []Step           `yaml:"steps"`
}

// Step is one beat or aside.
type Step struct {
	// Beat is the line of a beat. Exactly one of Beat and Aside is set.
	Beat string `yaml:"beat"`
	// Aside is the line of an aside.
	Aside string `yaml:"aside"`
	// Returns is the beat's result; a non-empty result is whispered as "=> v".
	Returns any `yaml:"returns"`
	// Fail makes the beat fail with this message after its children ran.
	Fail string `yaml:"fail"`
	// Repeat plays the children this many times with the cable kinked,
	// keeping only the final iteration. "{n}" in child lines is replaced by
	// the 1-based iteration number.
	Repeat int `yaml:"repeat"`
	// Steps are the beat's children.
	Steps []Step `yaml:"steps"`
}

// DisplayName returns the name used in reports and run records.
func (s *Script) DisplayName() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Act != "":
		return s.Act
	case s.Scene != "":
		return s.Scene
	default:
		return "script"
	}
}

// LoadScript reads and validates a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("script file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read script file %q: %w", path, err)
	}
	s, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScript decodes and validates a YAML script. Unknown keys are rejected.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyScript
		}
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the script structure.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return ErrEmptyScript
	}
	if _, err := adapter.ParseGravitas(string(s.Gravitas)); err != nil {
		return err
	}
	var errs []error
	for i := range s.Steps {
		errs = append(errs, s.Steps[i].validate(fmt.Sprintf("steps[%d]", i)))
	}
	return errors.Join(errs...)
}

func (st *Step) validate(at string) error {
	switch {
	case st.Beat == "" && st.Aside == "":
		return fmt.Errorf("%s: one of beat or aside is required", at)
	case st.Beat != "" && st.Aside != "":
		return fmt.Errorf("%s: beat and aside are mutually exclusive", at)
	case st.Repeat < 0:
		return fmt.Errorf("%s: repeat must not be negative", at)
	}
	if st.Aside != "" {
		if len(st.Steps) > 0 || st.Returns != nil || st.Fail != "" || st.Repeat > 0 {
			return fmt.Errorf("%s: an aside takes no steps, returns, fail or repeat", at)
		}
		return nil
	}
	if st.Repeat > 0 && len(st.Steps) == 0 {
		return fmt.Errorf("%s: repeat needs steps", at)
	}
	var errs []error
	for i := range st.Steps {
		errs = append(errs, st.Steps[i].validate(fmt.Sprintf("%s.steps[%d]", at, i)))
	}
	return errors.Join(errs...)
}
