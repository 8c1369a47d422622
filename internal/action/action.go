// Package action defines the closed set of requests VocabMaster can send to a
// language model and the prompt each one produces.
package action

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Tag names an action on the wire.
type Tag string

const (
	TagTest             Tag = "test"
	TagGenerateArticle  Tag = "generate_article"
	TagEvaluateSentence Tag = "evaluate_sentence"
	TagGenerateExamples Tag = "generate_examples"
)

// DefaultExampleCount is used when generate_examples omits count.
const DefaultExampleCount = 3

// DefaultTestMessage is the payload of a connection test.
const DefaultTestMessage = "Hello! This is a test message to verify the API connection."

// Tags returns every supported tag.
func Tags() []Tag {
	return []Tag{TagTest, TagGenerateArticle, TagEvaluateSentence, TagGenerateExamples}
}

// ErrUnknownAction is returned by Parse for a tag outside the supported set.
var ErrUnknownAction = errors.New("unknown action")

// ParamError reports a parameter map that does not match its action.
type ParamError struct {
	Tag    Tag
	Key    string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter %q for action %s: %s", e.Key, e.Tag, e.Reason)
}

// Action is one request variant. The set is closed: only this package can
// add variants, and each one must build its own prompt.
type Action interface {
	Tag() Tag
	Prompt(lang Languages) string
	sealed()
}

// Test is a connection diagnostic that echoes Message.
type Test struct {
	Message string
}

// GenerateArticle asks for a short passage using every word.
type GenerateArticle struct {
	Words []string
}

// EvaluateSentence asks for feedback on a sentence written with TargetWord.
type EvaluateSentence struct {
	Sentence   string
	TargetWord string
}

// GenerateExamples asks for Count example sentences using Word.
// A zero Count means DefaultExampleCount.
type GenerateExamples struct {
	Word  string
	Count int
}

func (Test) Tag() Tag             { return TagTest }
func (GenerateArticle) Tag() Tag  { return TagGenerateArticle }
func (EvaluateSentence) Tag() Tag { return TagEvaluateSentence }
func (GenerateExamples) Tag() Tag { return TagGenerateExamples }

func (Test) sealed()             {}
func (GenerateArticle) sealed()  {}
func (EvaluateSentence) sealed() {}
func (GenerateExamples) sealed() {}

// EffectiveCount returns Count, or the default when it is unset.
func (g GenerateExamples) EffectiveCount() int {
	if g.Count <= 0 {
		return DefaultExampleCount
	}
	return g.Count
}

// Parse builds the action named by tag from a loosely typed parameter map,
// as decoded from JSON or passed by a host process. The map must hold exactly
// the keys the action takes.
func Parse(tag string, params map[string]any) (Action, error) {
	t := Tag(tag)
	switch t {
	case TagTest:
		if err := checkKeys(t, params, []string{"message"}, nil); err != nil {
			return nil, err
		}
		msg, err := stringParam(t, params, "message")
		if err != nil {
			return nil, err
		}
		return Test{Message: msg}, nil

	case TagGenerateArticle:
		if err := checkKeys(t, params, []string{"words"}, nil); err != nil {
			return nil, err
		}
		words, err := stringListParam(t, params, "words")
		if err != nil {
			return nil, err
		}
		return GenerateArticle{Words: words}, nil

	case TagEvaluateSentence:
		if err := checkKeys(t, params, []string{"sentence", "target_word"}, nil); err != nil {
			return nil, err
		}
		sentence, err := stringParam(t, params, "sentence")
		if err != nil {
			return nil, err
		}
		word, err := stringParam(t, params, "target_word")
		if err != nil {
			return nil, err
		}
		return EvaluateSentence{Sentence: sentence, TargetWord: word}, nil

	case TagGenerateExamples:
		if err := checkKeys(t, params, []string{"word"}, []string{"count"}); err != nil {
			return nil, err
		}
		word, err := stringParam(t, params, "word")
		if err != nil {
			return nil, err
		}
		count := DefaultExampleCount
		if _, ok := params["count"]; ok {
			count, err = intParam(t, params, "count")
			if err != nil {
				return nil, err
			}
			if count < 1 {
				return nil, &ParamError{Tag: t, Key: "count", Reason: "must be at least 1"}
			}
		}
		return GenerateExamples{Word: word, Count: count}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, tag)
}

func checkKeys(tag Tag, params map[string]any, required, optional []string) error {
	for _, key := range required {
		if _, ok := params[key]; !ok {
			return &ParamError{Tag: tag, Key: key, Reason: "missing"}
		}
	}

	allowed := make(map[string]bool, len(required)+len(optional))
	for _, key := range required {
		allowed[key] = true
	}
	for _, key := range optional {
		allowed[key] = true
	}

	extra := make([]string, 0)
	for key := range params {
		if !allowed[key] {
			extra = append(extra, key)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return &ParamError{Tag: tag, Key: extra[0], Reason: "unexpected parameter"}
	}
	return nil
}

func stringParam(tag Tag, params map[string]any, key string) (string, error) {
	s, ok := params[key].(string)
	if !ok {
		return "", &ParamError{Tag: tag, Key: key, Reason: fmt.Sprintf("expected string, got %T", params[key])}
	}
	if strings.TrimSpace(s) == "" {
		return "", &ParamError{Tag: tag, Key: key, Reason: "must not be empty"}
	}
	return s, nil
}

func stringListParam(tag Tag, params map[string]any, key string) ([]string, error) {
	switch v := params[key].(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		words := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &ParamError{Tag: tag, Key: key, Reason: fmt.Sprintf("item %d: expected string, got %T", i, item)}
			}
			words = append(words, s)
		}
		return words, nil
	default:
		return nil, &ParamError{Tag: tag, Key: key, Reason: fmt.Sprintf("expected list of strings, got %T", params[key])}
	}
}

func intParam(tag Tag, params map[string]any, key string) (int, error) {
	switch v := params[key].(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int(v), nil
		}
		return 0, &ParamError{Tag: tag, Key: key, Reason: "expected integer"}
	default:
		return 0, &ParamError{Tag: tag, Key: key, Reason: fmt.Sprintf("expected integer, got %T", params[key])}
	}
}
