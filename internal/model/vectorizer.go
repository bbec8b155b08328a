package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultTokenPattern = `[a-z0-9]+`

// ErrEmptyDocument is returned when no known term survives tokenization.
var ErrEmptyDocument = errors.New("document has no known terms")

// Vectorizer turns free text into the term list the classifier was trained on.
type Vectorizer struct {
	Lowercase    bool     `yaml:"lowercase"`
	TokenPattern string   `yaml:"token_pattern"`
	StopWords    []string `yaml:"stop_words"`
	Vocabulary   []string `yaml:"vocabulary"`

	token *regexp.Regexp
	stop  map[string]struct{}
	vocab map[string]struct{}
}

// ParseVectorizer decodes a vectorizer definition from YAML.
func ParseVectorizer(data []byte) (*Vectorizer, error) {
	v := &Vectorizer{Lowercase: true}
	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("failed to parse vectorizer YAML: %w", err)
	}
	if err := v.compile(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vectorizer) compile() error {
	pattern := v.TokenPattern
	if pattern == "" {
		pattern = defaultTokenPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid token_pattern %q: %w", pattern, err)
	}
	v.token = re

	v.stop = make(map[string]struct{}, len(v.StopWords))
	for _, w := range v.StopWords {
		v.stop[v.fold(w)] = struct{}{}
	}
	v.vocab = make(map[string]struct{}, len(v.Vocabulary))
	for _, w := range v.Vocabulary {
		v.vocab[v.fold(w)] = struct{}{}
	}
	return nil
}

func (v *Vectorizer) fold(s string) string {
	if v.Lowercase {
		return strings.ToLower(s)
	}
	return s
}

// Transform tokenizes text, drops stop words and, when a vocabulary is set,
// every term outside it.
func (v *Vectorizer) Transform(text string) ([]string, error) {
	if v.token == nil {
		return nil, errors.New("vectorizer used before ParseVectorizer")
	}
	var terms []string
	for _, tok := range v.token.FindAllString(v.fold(text), -1) {
		if _, skip := v.stop[tok]; skip {
			continue
		}
		if len(v.vocab) > 0 {
			if _, known := v.vocab[tok]; !known {
				continue
			}
		}
		terms = append(terms, tok)
	}
	if len(terms) == 0 {
		return nil, ErrEmptyDocument
	}
	return terms, nil
}
