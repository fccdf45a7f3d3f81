// Package parser extracts named files from free-form model output.
//
// Every fenced block whose opening line carries a label becomes one
// extraction: the label is the file name and the block body is its content.
// Anything outside fences is ignored and malformed fences are skipped.
package parser

import (
	"iter"
	"strings"
)

const fence = "```"

// Extraction is a file name and content pulled out of one fenced block
type Extraction struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Parse returns the extractions found in text, in order of appearance.
// The sequence is lazy and can be ranged over any number of times.
func Parse(text string) iter.Seq[Extraction] {
	return func(yield func(Extraction) bool) {
		s := scanner{text: text}
		for {
			ex, ok, done := s.next()
			if done {
				return
			}
			if ok && !yield(ex) {
				return
			}
		}
	}
}

// Collect parses text and returns all extractions as a slice
func Collect(text string) []Extraction {
	var out []Extraction
	for ex := range Parse(text) {
		out = append(out, ex)
	}
	return out
}

// scanner walks text forward one fenced block at a time
type scanner struct {
	text string
	pos  int
}

// next consumes one fenced block. ok is false for a block without a label;
// done is true once no complete block remains.
func (s *scanner) next() (ex Extraction, ok bool, done bool) {
	open := strings.Index(s.text[s.pos:], fence)
	if open < 0 {
		return Extraction{}, false, true
	}
	labelStart := s.pos + open + len(fence)

	nl := strings.IndexByte(s.text[labelStart:], '\n')
	if nl < 0 {
		return Extraction{}, false, true
	}
	bodyStart := labelStart + nl + 1

	end := strings.Index(s.text[bodyStart:], fence)
	if end < 0 {
		return Extraction{}, false, true
	}
	bodyEnd := bodyStart + end
	s.pos = bodyEnd + len(fence)

	label := strings.TrimSpace(s.text[labelStart : labelStart+nl])
	if label == "" {
		return Extraction{}, false, false
	}

	return Extraction{
		Name:    label,
		Content: strings.TrimSpace(s.text[bodyStart:bodyEnd]),
	}, true, false
}
