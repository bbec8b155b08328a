// Package model loads the optional trained text classifier used to
// categorize expenses.
//
// An artifact is a directory holding two files:
//
//	vectorizer.yaml   tokenization settings and vocabulary
//	classifier.gob    a github.com/jbrukh/bayesian classifier
//
// The artifact is produced offline and is read once at startup.
package model

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/jbrukh/bayesian"
)

const (
	VectorizerFile = "vectorizer.yaml"
	ClassifierFile = "classifier.gob"
)

var (
	ErrArtifactNotFound = errors.New("model artifact not found")
	ErrPredictionFailed = errors.New("prediction failed")
)

// Artifact pairs a vectorizer with the classifier trained on its output.
// It is immutable once built and safe for concurrent use.
type Artifact struct {
	vectorizer *Vectorizer
	classifier *bayesian.Classifier
}

// NewArtifact checks that the classifier can discriminate at least two labels.
func NewArtifact(v *Vectorizer, c *bayesian.Classifier) (*Artifact, error) {
	if v == nil || c == nil {
		return nil, errors.New("vectorizer and classifier are required")
	}
	if len(c.Classes) < 2 {
		return nil, fmt.Errorf("classifier has %d classes, need at least 2", len(c.Classes))
	}
	return &Artifact{vectorizer: v, classifier: c}, nil
}

// Open reads an artifact directory. A missing directory yields
// ErrArtifactNotFound; anything unreadable yields a descriptive error.
func Open(dir string) (*Artifact, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stat model dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("model path %s is not a directory", dir)
	}

	raw, err := os.ReadFile(filepath.Join(dir, VectorizerFile))
	if err != nil {
		return nil, fmt.Errorf("read vectorizer: %w", err)
	}
	v, err := ParseVectorizer(raw)
	if err != nil {
		return nil, err
	}

	c, err := readClassifier(filepath.Join(dir, ClassifierFile))
	if err != nil {
		return nil, err
	}
	return NewArtifact(v, c)
}

// readClassifier decodes the gob file, turning decoder panics on garbage
// input into errors.
func readClassifier(path string) (c *bayesian.Classifier, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, fmt.Errorf("decode classifier: %v", r)
		}
	}()
	c, err = bayesian.NewClassifierFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("decode classifier: %w", err)
	}
	return c, nil
}

// Predict returns the raw label the classifier assigns to text. Any failure,
// including a panic inside the classifier, comes back as an error wrapping
// ErrPredictionFailed.
func (a *Artifact) Predict(text string) (label string, err error) {
	defer func() {
		if r := recover(); r != nil {
			label, err = "", fmt.Errorf("%w: %v", ErrPredictionFailed, r)
		}
	}()

	terms, err := a.vectorizer.Transform(text)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPredictionFailed, err)
	}

	scores, idx, strict := a.classifier.LogScores(terms)
	if !strict {
		return "", fmt.Errorf("%w: no single best class", ErrPredictionFailed)
	}
	if idx < 0 || idx >= len(a.classifier.Classes) || idx >= len(scores) {
		return "", fmt.Errorf("%w: class index %d out of range", ErrPredictionFailed, idx)
	}
	if s := scores[idx]; math.IsNaN(s) || math.IsInf(s, 0) {
		return "", fmt.Errorf("%w: non-finite score", ErrPredictionFailed)
	}
	return string(a.classifier.Classes[idx]), nil
}

// Labels lists the classes the classifier was trained on.
func (a *Artifact) Labels() []string {
	out := make([]string, len(a.classifier.Classes))
	for i, c := range a.classifier.Classes {
		out[i] = string(c)
	}
	return out
}
