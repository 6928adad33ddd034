package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-lists/models"
)

var listCountPattern = regexp.MustCompile(`(?i)a list of ([\d,]+) (?:films|items)`)

// ValidateRecord ensures the extractor captured the required fields.
func ValidateRecord(r *models.Record) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("record missing title")
	}
	return nil
}

// SplitTitle separates a canonical "Title (Year)" string at its last
// parenthesised suffix. Year is empty when there is no suffix.
func SplitTitle(text string) (title, year string) {
	text = strings.TrimSpace(text)
	open := strings.LastIndex(text, "(")
	closing := strings.LastIndex(text, ")")
	if open < 0 || closing < 0 || closing < open {
		return text, ""
	}
	return strings.TrimSpace(text[:open]), strings.TrimSpace(text[open+1 : closing])
}

// ParseRank converts an ordinal label such as "12" or "1,024" to an integer.
func ParseRank(label string) (int, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(label), ",", "")
	rank, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("parse rank %q: %w", label, err)
	}
	return rank, nil
}

// ParseListCount reads the item count from a summary phrase such as
// "A list of 2,500 films curated by ...".
func ParseListCount(description string) (int, bool) {
	match := listCountPattern.FindStringSubmatch(description)
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(match[1], ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}

type linkedData struct {
	AggregateRating *struct {
		RatingCount int `json:"ratingCount"`
	} `json:"aggregateRating"`
}

// ParsePopularity reads aggregateRating.ratingCount from an embedded
// JSON-LD payload. A payload without a rating block counts as zero.
func ParsePopularity(payload string) (int, error) {
	payload = strings.TrimSpace(payload)
	payload = strings.ReplaceAll(payload, "/* <![CDATA[ */", "")
	payload = strings.ReplaceAll(payload, "/* ]]> */", "")
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return 0, fmt.Errorf("empty linked data payload")
	}

	var data linkedData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return 0, fmt.Errorf("decode linked data: %w", err)
	}
	if data.AggregateRating == nil {
		return 0, nil
	}
	return data.AggregateRating.RatingCount, nil
}
